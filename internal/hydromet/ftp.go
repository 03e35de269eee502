package hydromet

import (
	"fmt"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/MonkmanMH/fasstr/internal/models"
)

// ArchiveClient downloads bulk historical daily-flow CSV dumps from an
// agency FTP server, one file per station.
type ArchiveClient struct {
	host    string // host:port
	dir     string
	columns ColumnMap
}

func NewArchiveClient(host, dir string) *ArchiveClient {
	return &ArchiveClient{host: host, dir: dir, columns: DefaultColumnMap()}
}

// FetchStationArchive retrieves and parses <dir>/<station>_daily_flows.csv.
func (a *ArchiveClient) FetchStationArchive(stationID string) ([]models.DailyFlow, error) {
	conn, err := ftp.Dial(a.host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	path := fmt.Sprintf("%s/%s_daily_flows.csv", a.dir, stationID)
	resp, err := conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", path, err)
	}
	defer resp.Close()

	flows, err := ParseDailyFlows(resp, a.columns, stationID)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return flows, nil
}

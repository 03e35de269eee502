package hydromet

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/MonkmanMH/fasstr/internal/models"
)

// ColumnMap names the CSV columns holding the station, date and value
// fields. It is resolved against the header once; everything downstream
// works on the canonical schema.
type ColumnMap struct {
	Station string
	Date    string
	Value   string
	Symbol  string
}

// DefaultColumnMap matches the HYDAT-style export layout.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{Station: "STATION_NUMBER", Date: "Date", Value: "Value", Symbol: "Symbol"}
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006"}

// ParseDailyFlows reads daily flow records from CSV. When the station column
// is absent every row is assigned defaultStation (a single implicit group,
// not an error). Empty, "NA" and "NaN" values load as null.
func ParseDailyFlows(r io.Reader, cols ColumnMap, defaultStation string) ([]models.DailyFlow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	stationIdx := idx(cols.Station)
	dateIdx := idx(cols.Date)
	valueIdx := idx(cols.Value)
	symbolIdx := idx(cols.Symbol)
	if dateIdx < 0 {
		return nil, fmt.Errorf("date column %q not found in header", cols.Date)
	}
	if valueIdx < 0 {
		return nil, fmt.Errorf("value column %q not found in header", cols.Value)
	}
	if stationIdx < 0 && defaultStation == "" {
		return nil, fmt.Errorf("station column %q not found and no default station given", cols.Station)
	}

	var flows []models.DailyFlow
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line+1, err)
		}
		line++

		station := defaultStation
		if stationIdx >= 0 && record[stationIdx] != "" {
			station = record[stationIdx]
		}

		date, err := parseDate(record[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		f := models.DailyFlow{StationID: station, Date: date}
		if symbolIdx >= 0 {
			f.Symbol = record[symbolIdx]
		}
		raw := strings.TrimSpace(record[valueIdx])
		if raw != "" && !strings.EqualFold(raw, "NA") && !strings.EqualFold(raw, "NaN") {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse value %q: %w", line, raw, err)
			}
			f.Value = sql.NullFloat64{Float64: v, Valid: true}
		}
		flows = append(flows, f)
	}
	return flows, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

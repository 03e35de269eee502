package format

import (
	"math"
	"strconv"

	"github.com/MonkmanMH/fasstr/internal/timeseries"
)

// CumulativeTable renders running volume and yield totals, one row per
// station-day. NaN totals (missing data upstream of the day, or unknown
// basin area for yield) become empty cells.
func CumulativeTable(days []timeseries.CumulativeDay) Table {
	t := Table{
		Name:    "Daily_Cumulative_Totals",
		Columns: []string{"Station", "Date", "WaterYear", "Value", "Volume_m3", "Yield_mm"},
	}
	for _, d := range days {
		t.Rows = append(t.Rows, []string{
			d.StationID,
			d.Date.Format("2006-01-02"),
			strconv.Itoa(d.WaterYear),
			floatCell(d.Value),
			floatCell(d.Volume),
			floatCell(d.Yield),
		})
	}
	return t
}

func floatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

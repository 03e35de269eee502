package format

import (
	"strconv"
	"strings"

	"github.com/MonkmanMH/fasstr/internal/screen"
)

// ScreeningTable renders annual screening summaries, one row per station ×
// water year.
func ScreeningTable(summaries []screen.AnnualScreening) Table {
	t := Table{
		Name: "Flow_Screening",
		Columns: []string{
			"Station", "Year", "DaysInYear", "NDays", "NMissing", "NZero", "NNegative",
			"Mean", "Median", "Minimum", "Maximum", "StdDev", "Flags",
		},
	}
	for _, s := range summaries {
		t.Rows = append(t.Rows, []string{
			s.StationID,
			strconv.Itoa(s.Year),
			strconv.Itoa(s.DaysInYear),
			strconv.Itoa(s.NDays),
			strconv.Itoa(s.NMissing),
			strconv.Itoa(s.NZero),
			strconv.Itoa(s.NNegative),
			Cell(s.Mean),
			Cell(s.Median),
			Cell(s.Min),
			Cell(s.Max),
			Cell(s.StdDev),
			strings.Join(s.Flags, ";"),
		})
	}
	return t
}

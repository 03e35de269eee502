package format

import (
	"fmt"
	"strconv"

	"github.com/MonkmanMH/fasstr/internal/freq"
)

// ExtremaTable lists the annual extrema feeding a frequency analysis.
func ExtremaTable(res *freq.Result, mode freq.Mode) Table {
	t := Table{
		Name:    fmt.Sprintf("Annual_%s_Extremes", modeLabel(mode)),
		Columns: []string{"Station", "RollDays", "Year", "Value"},
	}
	for _, e := range res.Extrema {
		t.Rows = append(t.Rows, []string{
			e.StationID,
			strconv.Itoa(e.RollDays),
			strconv.Itoa(e.Year),
			formatFloat(e.Value),
		})
	}
	return t
}

// PlotPointsTable lists ranked extrema with their empirical probabilities.
func PlotPointsTable(res *freq.Result, mode freq.Mode) Table {
	t := Table{
		Name:    fmt.Sprintf("Annual_%s_Plot_Positions", modeLabel(mode)),
		Columns: []string{"Station", "RollDays", "Year", "Rank", "Value", "Probability", "ReturnPeriod"},
	}
	for _, p := range res.PlotPoints {
		t.Rows = append(t.Rows, []string{
			p.StationID,
			strconv.Itoa(p.RollDays),
			strconv.Itoa(p.Year),
			strconv.Itoa(p.Rank),
			formatFloat(p.Value),
			formatFloat(p.Probability),
			formatFloat(p.ReturnPeriod),
		})
	}
	return t
}

// QuantilesTable lists fitted return-period quantiles with their standard
// errors.
func QuantilesTable(res *freq.Result, mode freq.Mode) Table {
	t := Table{
		Name:    fmt.Sprintf("%s_Frequency_Quantiles", modeLabel(mode)),
		Columns: []string{"Station", "RollDays", "ReturnPeriod", "Probability", "Value", "StdErr"},
	}
	for _, q := range res.Quantiles {
		t.Rows = append(t.Rows, []string{
			q.StationID,
			strconv.Itoa(q.RollDays),
			formatFloat(q.ReturnPeriod),
			formatFloat(q.Probability),
			formatFloat(q.Value),
			Cell(q.StdErr),
		})
	}
	return t
}

// FitsTable lists the fitted distribution parameters per station and window
// width.
func FitsTable(res *freq.Result, mode freq.Mode) Table {
	t := Table{
		Name:    fmt.Sprintf("%s_Frequency_Fits", modeLabel(mode)),
		Columns: []string{"Station", "RollDays", "Family", "Method", "Parameter", "Value", "SampleSize", "LowConfidence"},
	}
	for _, f := range res.Fits {
		for _, p := range f.Params.Params {
			t.Rows = append(t.Rows, []string{
				f.StationID,
				strconv.Itoa(f.RollDays),
				f.Params.Family,
				f.Params.Method,
				p.Name,
				formatFloat(p.Value),
				strconv.Itoa(f.SampleSize),
				strconv.FormatBool(f.LowConfidence),
			})
		}
	}
	return t
}

func modeLabel(mode freq.Mode) string {
	if mode == freq.ModeHigh {
		return "Maximums"
	}
	return "Minimums"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

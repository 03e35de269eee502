package format

import (
	"database/sql"
	"testing"

	"github.com/MonkmanMH/fasstr/internal/freq"
)

func freqResult() *freq.Result {
	return &freq.Result{
		Extrema: []freq.Extremum{
			{StationID: "A", RollDays: 7, Year: 1995, Value: 1.5},
		},
		PlotPoints: []freq.PlotPoint{
			{StationID: "A", RollDays: 7, Year: 1995, Rank: 1, Value: 1.5, Probability: 0.25, ReturnPeriod: 4},
		},
		Quantiles: []freq.FittedQuantile{
			{StationID: "A", RollDays: 7, ReturnPeriod: 10, Probability: 0.1, Value: 0.8, StdErr: sql.NullFloat64{Float64: 0.05, Valid: true}},
			{StationID: "A", RollDays: 7, ReturnPeriod: 50, Probability: 0.02, Value: 0.5},
		},
		Fits: []freq.Fit{
			{
				StationID: "A", RollDays: 7, SampleSize: 12,
				Params: freq.FitParams{
					Family: "log-pearson3", Method: "MOM", N: 12,
					Params: []freq.Param{{Name: "meanlog", Value: 0.3}, {Name: "sdlog", Value: 0.1}, {Name: "skewlog", Value: -0.2}},
				},
			},
		},
	}
}

func TestExtremaTable(t *testing.T) {
	tbl := ExtremaTable(freqResult(), freq.ModeLow)
	if tbl.Name != "Annual_Minimums_Extremes" {
		t.Errorf("name = %q", tbl.Name)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("len(rows) = %d", len(tbl.Rows))
	}
	want := []string{"A", "7", "1995", "1.5"}
	for i, cell := range want {
		if tbl.Rows[0][i] != cell {
			t.Errorf("cell %d = %q, want %q", i, tbl.Rows[0][i], cell)
		}
	}

	if name := ExtremaTable(freqResult(), freq.ModeHigh).Name; name != "Annual_Maximums_Extremes" {
		t.Errorf("high mode name = %q", name)
	}
}

func TestPlotPointsTable(t *testing.T) {
	tbl := PlotPointsTable(freqResult(), freq.ModeLow)
	if len(tbl.Columns) != 7 || len(tbl.Rows) != 1 {
		t.Fatalf("shape = %dx%d", len(tbl.Rows), len(tbl.Columns))
	}
	if tbl.Rows[0][5] != "0.25" || tbl.Rows[0][6] != "4" {
		t.Errorf("row = %v", tbl.Rows[0])
	}
}

func TestQuantilesTable(t *testing.T) {
	tbl := QuantilesTable(freqResult(), freq.ModeLow)
	if tbl.Name != "Minimums_Frequency_Quantiles" {
		t.Errorf("name = %q", tbl.Name)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("len(rows) = %d", len(tbl.Rows))
	}
	if tbl.Rows[0][5] != "0.05" {
		t.Errorf("stderr cell = %q", tbl.Rows[0][5])
	}
	if tbl.Rows[1][5] != "" {
		t.Errorf("null stderr cell = %q", tbl.Rows[1][5])
	}
}

func TestFitsTable(t *testing.T) {
	tbl := FitsTable(freqResult(), freq.ModeLow)
	// one row per fitted parameter
	if len(tbl.Rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(tbl.Rows))
	}
	if tbl.Rows[0][2] != "log-pearson3" || tbl.Rows[0][3] != "MOM" {
		t.Errorf("row = %v", tbl.Rows[0])
	}
	if tbl.Rows[2][4] != "skewlog" {
		t.Errorf("parameter order = %v", tbl.Rows[2])
	}
}

package screen

import (
	"database/sql"
	"testing"
	"time"

	"github.com/MonkmanMH/fasstr/internal/models"
	"github.com/MonkmanMH/fasstr/internal/timeseries"
)

func yearOfFlows(t *testing.T, station string, year int, value float64, nullDates ...string) []timeseries.Day {
	t.Helper()
	skip := make(map[string]bool, len(nullDates))
	for _, d := range nullDates {
		skip[d] = true
	}
	var flows []models.DailyFlow
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() == year; d = d.AddDate(0, 0, 1) {
		f := models.DailyFlow{StationID: station, Date: d}
		if !skip[d.Format("2006-01-02")] {
			f.Value = sql.NullFloat64{Float64: value, Valid: true}
		}
		flows = append(flows, f)
	}
	days, err := timeseries.Normalize(flows, time.January)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return days
}

func TestScreenCompleteYear(t *testing.T) {
	days := yearOfFlows(t, "08NM116", 1995, 4.5)
	got := ScreenFlowData(days, time.January)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	s := got[0]
	if s.StationID != "08NM116" || s.Year != 1995 {
		t.Errorf("keys = %s %d", s.StationID, s.Year)
	}
	if s.DaysInYear != 365 || s.NDays != 365 || s.NMissing != 0 {
		t.Errorf("counts = %+v", s)
	}
	if !s.Mean.Valid || s.Mean.Float64 != 4.5 {
		t.Errorf("mean = %+v", s.Mean)
	}
	if !s.StdDev.Valid || s.StdDev.Float64 != 0 {
		t.Errorf("stddev = %+v", s.StdDev)
	}
	if len(s.Flags) != 0 {
		t.Errorf("flags = %v", s.Flags)
	}
}

func TestScreenMissingDays(t *testing.T) {
	days := yearOfFlows(t, "A", 1995, 2, "1995-03-01", "1995-03-02", "1995-07-10")
	s := ScreenFlowData(days, time.January)[0]
	if s.NMissing != 3 {
		t.Errorf("NMissing = %d, want 3", s.NMissing)
	}
	if s.MissingByMonth[time.March] != 2 || s.MissingByMonth[time.July] != 1 {
		t.Errorf("MissingByMonth = %v", s.MissingByMonth)
	}
	if !hasFlag(s, FlagMissingDays) {
		t.Errorf("flags = %v, want %s", s.Flags, FlagMissingDays)
	}
	// stats still computed over the present subset
	if !s.Mean.Valid || s.Mean.Float64 != 2 {
		t.Errorf("mean = %+v", s.Mean)
	}
}

func TestScreenIncompleteYear(t *testing.T) {
	var flows []models.DailyFlow
	start := time.Date(1995, time.June, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		flows = append(flows, models.DailyFlow{
			StationID: "A",
			Date:      start.AddDate(0, 0, i),
			Value:     sql.NullFloat64{Float64: 1, Valid: true},
		})
	}
	days, err := timeseries.Normalize(flows, time.January)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	s := ScreenFlowData(days, time.January)[0]
	if s.NDays != 60 || s.DaysInYear != 365 {
		t.Errorf("counts = %+v", s)
	}
	if !hasFlag(s, FlagIncompleteYear) {
		t.Errorf("flags = %v, want %s", s.Flags, FlagIncompleteYear)
	}
}

func TestScreenSuspectValues(t *testing.T) {
	days := yearOfFlows(t, "A", 1995, 0)
	// one negative reading
	days[100].Value = -1
	s := ScreenFlowData(days, time.January)[0]
	if s.NNegative != 1 {
		t.Errorf("NNegative = %d", s.NNegative)
	}
	if s.NZero != 364 {
		t.Errorf("NZero = %d", s.NZero)
	}
	if !hasFlag(s, FlagNegativeValue) {
		t.Errorf("flags = %v, want %s", s.Flags, FlagNegativeValue)
	}

	// all-zero year
	s = ScreenFlowData(yearOfFlows(t, "A", 1996, 0), time.January)[0]
	if !hasFlag(s, FlagAllZeroFlow) {
		t.Errorf("flags = %v, want %s", s.Flags, FlagAllZeroFlow)
	}
}

func TestScreenOrdering(t *testing.T) {
	days := append(yearOfFlows(t, "B", 1995, 1), yearOfFlows(t, "A", 1996, 1)...)
	days = append(days, yearOfFlows(t, "A", 1995, 1)...)
	got := ScreenFlowData(days, time.January)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantKeys := []struct {
		station string
		year    int
	}{{"A", 1995}, {"A", 1996}, {"B", 1995}}
	for i, w := range wantKeys {
		if got[i].StationID != w.station || got[i].Year != w.year {
			t.Errorf("row %d = %s %d, want %s %d", i, got[i].StationID, got[i].Year, w.station, w.year)
		}
	}
}

func hasFlag(s AnnualScreening, flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

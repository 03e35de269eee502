// Package screen summarizes data completeness and flags suspect values so
// gaps are visible before any statistics are trusted.
package screen

import (
	"database/sql"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/MonkmanMH/fasstr/internal/timeseries"
)

const (
	FlagIncompleteYear = "incomplete_year"
	FlagMissingDays    = "missing_days"
	FlagNegativeValue  = "negative_value"
	FlagAllZeroFlow    = "all_zero_flow"
)

// AnnualScreening summarizes one station × water year of the normalized
// series.
type AnnualScreening struct {
	StationID      string
	Year           int
	DaysInYear     int
	NDays          int // days covered by the normalized series
	NMissing       int
	NZero          int
	NNegative      int
	Mean           sql.NullFloat64
	Median         sql.NullFloat64
	Min            sql.NullFloat64
	Max            sql.NullFloat64
	StdDev         sql.NullFloat64
	MissingByMonth map[time.Month]int
	Flags          []string
}

// ScreenFlowData produces one screening summary per station × water year,
// ordered by station then year.
func ScreenFlowData(days []timeseries.Day, waterYearStart time.Month) []AnnualScreening {
	if waterYearStart == 0 {
		waterYearStart = time.January
	}

	type key struct {
		station string
		year    int
	}
	groups := make(map[key][]timeseries.Day)
	var order []key
	for _, d := range days {
		k := key{d.StationID, d.WaterYear}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], d)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].station != order[j].station {
			return order[i].station < order[j].station
		}
		return order[i].year < order[j].year
	})

	out := make([]AnnualScreening, 0, len(order))
	for _, k := range order {
		out = append(out, screenYear(k.station, k.year, groups[k], waterYearStart))
	}
	return out
}

func screenYear(station string, year int, days []timeseries.Day, start time.Month) AnnualScreening {
	s := AnnualScreening{
		StationID:      station,
		Year:           year,
		DaysInYear:     timeseries.DaysInWaterYear(year, start),
		NDays:          len(days),
		MissingByMonth: make(map[time.Month]int),
	}

	var present []float64
	for _, d := range days {
		if d.Missing() {
			s.NMissing++
			s.MissingByMonth[d.Month]++
			continue
		}
		present = append(present, d.Value)
		if d.Value == 0 {
			s.NZero++
		}
		if d.Value < 0 {
			s.NNegative++
		}
	}

	if len(present) > 0 {
		sort.Float64s(present)
		mean, std := stat.MeanStdDev(present, nil)
		s.Mean = nullFloat(mean)
		s.StdDev = nullFloat(std)
		s.Median = nullFloat(stat.Quantile(0.5, stat.Empirical, present, nil))
		s.Min = nullFloat(present[0])
		s.Max = nullFloat(present[len(present)-1])
	}

	if s.NDays < s.DaysInYear {
		s.Flags = append(s.Flags, FlagIncompleteYear)
	}
	if s.NMissing > 0 {
		s.Flags = append(s.Flags, FlagMissingDays)
	}
	if s.NNegative > 0 {
		s.Flags = append(s.Flags, FlagNegativeValue)
	}
	if len(present) > 0 && s.NZero == len(present) {
		s.Flags = append(s.Flags, FlagAllZeroFlow)
	}
	return s
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

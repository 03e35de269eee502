// Package stats computes grouped descriptive statistics over normalized
// daily flow series: long-term daily, monthly, annual and long-term summaries
// with configurable percentiles and missing-data handling.
package stats

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/MonkmanMH/fasstr/internal/models"
	"github.com/MonkmanMH/fasstr/internal/timeseries"
)

type Period string

const (
	PeriodDaily    Period = "Daily"
	PeriodMonthly  Period = "Monthly"
	PeriodAnnual   Period = "Annual"
	PeriodLongterm Period = "Long-term"
)

var ErrInvalidPercentile = errors.New("percentiles must be strictly between 0 and 100")

// Options controls grouping, filtering and the missing-data policy shared by
// all Calc* functions. A zero WaterYearStart means January (calendar years).
type Options struct {
	Percentiles       []float64
	StartYear         int // water year, 0 for the station's first year
	EndYear           int // water year, 0 for the station's last year
	ExcludeYears      []int
	Months            []time.Month // restrict to these calendar months; empty means all
	IgnoreMissing     bool
	CompleteYearsOnly bool
	CustomMonths      []time.Month // extra synthetic long-term group
	CustomMonthsLabel string
	WaterYearStart    time.Month
}

func (o Options) waterYearStart() time.Month {
	if o.WaterYearStart == 0 {
		return time.January
	}
	return o.WaterYearStart
}

func (o Options) validate() error {
	for _, p := range o.Percentiles {
		if p <= 0 || p >= 100 {
			return fmt.Errorf("%w: got %g", ErrInvalidPercentile, p)
		}
	}
	return nil
}

// Quantile is one requested percentile of a group's sample.
type Quantile struct {
	Percentile float64
	Value      sql.NullFloat64
}

// StatRow is the statistics for one station × period group. All numeric
// fields are null together when the group is empty or, under the strict
// missing policy, contains any missing day.
type StatRow struct {
	StationID   string
	Period      Period
	Label       string
	Year        int        // annual and monthly rows
	Month       time.Month // monthly and long-term month rows
	DayOfYear   int        // daily rows, water-year day
	Mean        sql.NullFloat64
	Median      sql.NullFloat64
	Min         sql.NullFloat64
	Max         sql.NullFloat64
	Percentiles []Quantile
}

// Result is the output of one aggregation call: a fully-shaped rectangular
// row set plus any accumulated warnings.
type Result struct {
	Rows     []StatRow
	Warnings []models.Warning
}

// CalcAnnualStats computes one StatRow per station × water year. Every year
// in the requested range gets a row; exclusion-listed years keep their row
// with null statistics.
func CalcAnnualStats(days []timeseries.Day, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	days = applyFilters(days, opts, false)
	res := &Result{}
	forEachStation(days, func(id string, sd []timeseries.Day) {
		lo, hi := yearBounds(sd, opts)
		for y := lo; y <= hi; y++ {
			sample := sampleWhere(sd, func(d timeseries.Day) bool { return d.WaterYear == y })
			row := newRow(id, PeriodAnnual, sample, opts)
			row.Label = fmt.Sprintf("%d", y)
			row.Year = y
			if containsYear(opts.ExcludeYears, y) {
				nullRow(&row)
			}
			res.Rows = append(res.Rows, row)
		}
	})
	warnNulls(res, opts)
	return res, nil
}

// CalcMonthlyStats computes one StatRow per station × water year × month,
// months ordered from the water-year start month.
func CalcMonthlyStats(days []timeseries.Day, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	days = applyFilters(days, opts, false)
	months := filterMonths(timeseries.MonthOrder(opts.waterYearStart()), opts.Months)
	res := &Result{}
	forEachStation(days, func(id string, sd []timeseries.Day) {
		lo, hi := yearBounds(sd, opts)
		for y := lo; y <= hi; y++ {
			for _, m := range months {
				sample := sampleWhere(sd, func(d timeseries.Day) bool {
					return d.WaterYear == y && d.Month == m
				})
				row := newRow(id, PeriodMonthly, sample, opts)
				row.Label = m.String()[:3]
				row.Year = y
				row.Month = m
				if containsYear(opts.ExcludeYears, y) {
					nullRow(&row)
				}
				res.Rows = append(res.Rows, row)
			}
		}
	})
	warnNulls(res, opts)
	return res, nil
}

// CalcDailyStats computes one StatRow per station × water-year day of year
// (1..366), summarizing that calendar day across all years.
func CalcDailyStats(days []timeseries.Day, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	days = applyFilters(days, opts, true)
	start := opts.waterYearStart()
	refYear := referenceWaterYear(start)
	res := &Result{}
	forEachStation(days, func(id string, sd []timeseries.Day) {
		for doy := 1; doy <= 366; doy++ {
			date := timeseries.WaterYearStartDate(refYear, start).AddDate(0, 0, doy-1)
			if !monthAllowed(date.Month(), opts.Months) {
				continue
			}
			sample := sampleWhere(sd, func(d timeseries.Day) bool { return d.WaterDayOfYear == doy })
			row := newRow(id, PeriodDaily, sample, opts)
			row.Label = date.Format("01-02")
			row.DayOfYear = doy
			res.Rows = append(res.Rows, row)
		}
	})
	warnNulls(res, opts)
	return res, nil
}

// CalcLongtermStats computes, per station, one StatRow per month (across all
// years), a "Long-term" row over every included month, and, when configured,
// one extra row combining an arbitrary caller-named month set.
func CalcLongtermStats(days []timeseries.Day, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	days = applyFilters(days, opts, true)
	months := filterMonths(timeseries.MonthOrder(opts.waterYearStart()), opts.Months)
	res := &Result{}
	forEachStation(days, func(id string, sd []timeseries.Day) {
		for _, m := range months {
			sample := sampleWhere(sd, func(d timeseries.Day) bool { return d.Month == m })
			row := newRow(id, PeriodLongterm, sample, opts)
			row.Label = m.String()[:3]
			row.Month = m
			res.Rows = append(res.Rows, row)
		}

		all := sampleWhere(sd, func(d timeseries.Day) bool { return true })
		row := newRow(id, PeriodLongterm, all, opts)
		row.Label = "Long-term"
		res.Rows = append(res.Rows, row)

		if len(opts.CustomMonths) > 0 {
			sample := sampleWhere(sd, func(d timeseries.Day) bool {
				return monthAllowed(d.Month, opts.CustomMonths)
			})
			row := newRow(id, PeriodLongterm, sample, opts)
			row.Label = opts.CustomMonthsLabel
			if row.Label == "" {
				row.Label = "Custom-Months"
			}
			res.Rows = append(res.Rows, row)
		}
	})
	warnNulls(res, opts)
	return res, nil
}

// applyFilters narrows the input to the requested years and months and, when
// enabled, to complete years only. Exclusion-listed years are removed from
// the data only for groupings not keyed by year (dropExcluded); year-keyed
// groupings null their rows after aggregation instead so the output shape is
// invariant to the exclusion list.
func applyFilters(days []timeseries.Day, opts Options, dropExcluded bool) []timeseries.Day {
	complete := map[string]map[int]bool{}
	if opts.CompleteYearsOnly {
		complete = completeYears(days, opts.waterYearStart())
	}
	out := make([]timeseries.Day, 0, len(days))
	for _, d := range days {
		if opts.StartYear != 0 && d.WaterYear < opts.StartYear {
			continue
		}
		if opts.EndYear != 0 && d.WaterYear > opts.EndYear {
			continue
		}
		if !monthAllowed(d.Month, opts.Months) {
			continue
		}
		if opts.CompleteYearsOnly && !complete[d.StationID][d.WaterYear] {
			continue
		}
		if dropExcluded && containsYear(opts.ExcludeYears, d.WaterYear) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func completeYears(days []timeseries.Day, start time.Month) map[string]map[int]bool {
	counts := make(map[string]map[int]int)
	for _, d := range days {
		if d.Missing() {
			continue
		}
		if counts[d.StationID] == nil {
			counts[d.StationID] = make(map[int]int)
		}
		counts[d.StationID][d.WaterYear]++
	}
	out := make(map[string]map[int]bool, len(counts))
	for id, years := range counts {
		out[id] = make(map[int]bool, len(years))
		for y, n := range years {
			out[id][y] = n >= timeseries.DaysInWaterYear(y, start)
		}
	}
	return out
}

func forEachStation(days []timeseries.Day, fn func(id string, sd []timeseries.Day)) {
	for lo := 0; lo < len(days); {
		hi := lo
		for hi < len(days) && days[hi].StationID == days[lo].StationID {
			hi++
		}
		fn(days[lo].StationID, days[lo:hi])
		lo = hi
	}
}

func yearBounds(sd []timeseries.Day, opts Options) (lo, hi int) {
	lo, hi = opts.StartYear, opts.EndYear
	if lo != 0 && hi != 0 {
		return lo, hi
	}
	min, max := 0, 0
	for _, d := range sd {
		if min == 0 || d.WaterYear < min {
			min = d.WaterYear
		}
		if d.WaterYear > max {
			max = d.WaterYear
		}
	}
	if lo == 0 {
		lo = min
	}
	if hi == 0 {
		hi = max
	}
	return lo, hi
}

func sampleWhere(sd []timeseries.Day, keep func(timeseries.Day) bool) []float64 {
	var sample []float64
	for _, d := range sd {
		if keep(d) {
			sample = append(sample, d.Value)
		}
	}
	return sample
}

func newRow(id string, period Period, sample []float64, opts Options) StatRow {
	row := StatRow{StationID: id, Period: period}
	summarize(&row, sample, opts.Percentiles, opts.IgnoreMissing)
	return row
}

// summarize fills the row's statistics from the group sample under the
// missing-data policy: strict mode nulls everything if any value is missing,
// lenient mode computes over the present subset.
func summarize(row *StatRow, sample []float64, percentiles []float64, ignoreMissing bool) {
	present := make([]float64, 0, len(sample))
	anyMissing := false
	for _, v := range sample {
		if math.IsNaN(v) {
			anyMissing = true
			continue
		}
		present = append(present, v)
	}

	row.Percentiles = make([]Quantile, len(percentiles))
	for i, p := range percentiles {
		row.Percentiles[i] = Quantile{Percentile: p}
	}

	if len(present) == 0 || (anyMissing && !ignoreMissing) {
		return
	}

	sort.Float64s(present)
	row.Mean = nullFloat(stat.Mean(present, nil))
	row.Median = nullFloat(percentileOfSorted(present, 50))
	row.Min = nullFloat(present[0])
	row.Max = nullFloat(present[len(present)-1])
	for i, p := range percentiles {
		row.Percentiles[i].Value = nullFloat(percentileOfSorted(present, p))
	}
}

// percentileOfSorted linearly interpolates between order statistics, the
// same method as R's default quantile type 7.
func percentileOfSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := (p / 100) * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullRow(row *StatRow) {
	row.Mean = sql.NullFloat64{}
	row.Median = sql.NullFloat64{}
	row.Min = sql.NullFloat64{}
	row.Max = sql.NullFloat64{}
	for i := range row.Percentiles {
		row.Percentiles[i].Value = sql.NullFloat64{}
	}
}

func warnNulls(res *Result, opts Options) {
	seen := make(map[string]bool)
	for _, row := range res.Rows {
		if !seen[row.StationID] && rowHasNull(row) {
			seen[row.StationID] = true
			res.Warnings = append(res.Warnings, models.Warning{
				StationID: row.StationID,
				Message: fmt.Sprintf("one or more statistics could not be computed (missing or excluded data, ignore_missing=%t, years %s)",
					opts.IgnoreMissing, yearRangeLabel(opts)),
			})
		}
	}
}

func rowHasNull(row StatRow) bool {
	if !row.Mean.Valid || !row.Median.Valid || !row.Min.Valid || !row.Max.Valid {
		return true
	}
	for _, q := range row.Percentiles {
		if !q.Value.Valid {
			return true
		}
	}
	return false
}

func yearRangeLabel(opts Options) string {
	from, to := "first", "last"
	if opts.StartYear != 0 {
		from = fmt.Sprintf("%d", opts.StartYear)
	}
	if opts.EndYear != 0 {
		to = fmt.Sprintf("%d", opts.EndYear)
	}
	return from + "-" + to
}

func monthAllowed(m time.Month, months []time.Month) bool {
	if len(months) == 0 {
		return true
	}
	for _, want := range months {
		if m == want {
			return true
		}
	}
	return false
}

func filterMonths(order []time.Month, allowed []time.Month) []time.Month {
	out := make([]time.Month, 0, len(order))
	for _, m := range order {
		if monthAllowed(m, allowed) {
			out = append(out, m)
		}
	}
	return out
}

func containsYear(years []int, y int) bool {
	for _, want := range years {
		if y == want {
			return true
		}
	}
	return false
}

// referenceWaterYear picks a water year containing a leap day so day-of-year
// labels cover the full 366-day range.
func referenceWaterYear(start time.Month) int {
	for wy := 2000; wy <= 2004; wy++ {
		if timeseries.DaysInWaterYear(wy, start) == 366 {
			return wy
		}
	}
	return 2000
}

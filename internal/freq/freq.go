// Package freq performs volume/frequency analysis on annual low-flow or
// high-flow extrema: rolling-window extraction, plotting positions,
// distribution fitting and return-period quantile estimation.
package freq

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/MonkmanMH/fasstr/internal/models"
	"github.com/MonkmanMH/fasstr/internal/timeseries"
)

type Mode string

const (
	ModeLow  Mode = "low"  // annual minima
	ModeHigh Mode = "high" // annual maxima
)

// PlottingPosition selects the constant a in (rank − a)/(n + 1 − 2a).
type PlottingPosition string

const (
	PositionWeibull PlottingPosition = "weibull" // a = 0
	PositionMedian  PlottingPosition = "median"  // a = 0.3175
	PositionHazen   PlottingPosition = "hazen"   // a = 0.5
)

func (p PlottingPosition) constant() (float64, error) {
	switch p {
	case PositionWeibull, "":
		return 0, nil
	case PositionMedian:
		return 0.3175, nil
	case PositionHazen:
		return 0.5, nil
	default:
		return 0, fmt.Errorf("unknown plotting position %q", p)
	}
}

// DefaultRollDays are the rolling-window widths used when none are given.
var DefaultRollDays = []int{1, 3, 7, 30}

// DefaultReturnPeriods are the return periods quantiles are derived for when
// none are given.
var DefaultReturnPeriods = []float64{2, 5, 10, 20, 50, 100}

// minSampleYears is the sample size below which fits are flagged
// low-confidence rather than rejected.
const minSampleYears = 10

type Options struct {
	Mode          Mode
	RollDays      []int
	RollAlign     timeseries.Alignment // default trailing
	Months        []time.Month         // restrict extraction to these calendar months
	Position      PlottingPosition
	PositionA     *float64     // custom plotting-position constant, overrides Position
	Distribution  Distribution // default LogPearson3
	ReturnPeriods []float64
	StartYear     int
	EndYear       int
	ExcludeYears  []int
}

// Extremum is the annual minimum or maximum of one rolling-window series.
type Extremum struct {
	StationID string
	RollDays  int
	Year      int
	Value     float64
}

// PlotPoint is an extremum with its empirical probability. For low-flow
// analysis Probability is non-exceedance, for high-flow it is exceedance;
// either way ReturnPeriod is its reciprocal.
type PlotPoint struct {
	StationID    string
	RollDays     int
	Year         int
	Rank         int
	Value        float64
	Probability  float64
	ReturnPeriod float64
}

// FittedQuantile is one return-period estimate from a fitted distribution.
type FittedQuantile struct {
	StationID    string
	RollDays     int
	ReturnPeriod float64
	Probability  float64
	Value        float64
	StdErr       sql.NullFloat64
}

// Fit records the fitted parameters for one station × window width.
type Fit struct {
	StationID     string
	RollDays      int
	Params        FitParams
	SampleSize    int
	LowConfidence bool
}

// CurvePoint is one point of a fitted frequency curve, evaluated at an
// empirical plotting-position probability so the curve overlays the
// observed points on a probability plot.
type CurvePoint struct {
	StationID   string
	RollDays    int
	Probability float64
	Value       float64
}

// Result is the chart-ready output bundle of one analysis call.
type Result struct {
	Extrema    []Extremum
	PlotPoints []PlotPoint
	Quantiles  []FittedQuantile
	Curves     []CurvePoint
	Fits       []Fit
	Warnings   []models.Warning
}

// Analyze runs the full frequency analysis over a normalized daily series,
// producing annual extrema, plotting positions, fitted distributions and
// return-period quantiles per station and window width. Data problems never
// abort the batch: affected station-window pairs are skipped with a warning.
func Analyze(days []timeseries.Day, opts Options) (*Result, error) {
	a, err := opts.Position.constant()
	if err != nil {
		return nil, err
	}
	if opts.PositionA != nil {
		a = *opts.PositionA
	}
	align := opts.RollAlign
	if align == "" {
		align = timeseries.AlignTrailing
	}
	rollDays := opts.RollDays
	if len(rollDays) == 0 {
		rollDays = DefaultRollDays
	}
	dist := opts.Distribution
	if dist == nil {
		dist = LogPearson3{}
	}
	periods := opts.ReturnPeriods
	if len(periods) == 0 {
		periods = DefaultReturnPeriods
	}
	for _, t := range periods {
		if t <= 1 {
			return nil, fmt.Errorf("return periods must be greater than 1, got %g", t)
		}
	}

	res := &Result{}
	for _, rd := range rollDays {
		rolled, err := timeseries.RollingMean(days, rd, align)
		if err != nil {
			return nil, err
		}
		extrema := extractExtrema(rolled, rd, opts)
		res.Extrema = append(res.Extrema, extrema...)

		byStation := make(map[string][]Extremum)
		var order []string
		for _, e := range extrema {
			if _, ok := byStation[e.StationID]; !ok {
				order = append(order, e.StationID)
			}
			byStation[e.StationID] = append(byStation[e.StationID], e)
		}

		for _, id := range order {
			sample := byStation[id]
			points := plottingPositions(sample, opts.Mode, a)
			res.PlotPoints = append(res.PlotPoints, points...)
			res.fitAndInvert(id, rd, sample, points, dist, periods, opts.Mode)
		}
	}
	return res, nil
}

// extractExtrema pulls the annual minimum (low mode) or maximum (high mode)
// rolling value per station and water year. A year with any missing rolling
// value among its eligible days is dropped from the sample, never imputed.
func extractExtrema(rolled []timeseries.Day, rd int, opts Options) []Extremum {
	type key struct {
		station string
		year    int
	}
	extreme := make(map[key]float64)
	bad := make(map[key]bool)
	var order []key

	for _, d := range rolled {
		if opts.StartYear != 0 && d.WaterYear < opts.StartYear {
			continue
		}
		if opts.EndYear != 0 && d.WaterYear > opts.EndYear {
			continue
		}
		if containsYear(opts.ExcludeYears, d.WaterYear) {
			continue
		}
		if !monthEligible(d.Month, opts.Months) {
			continue
		}
		k := key{d.StationID, d.WaterYear}
		if d.Missing() {
			bad[k] = true
			continue
		}
		v, seen := extreme[k]
		if !seen {
			order = append(order, k)
			extreme[k] = d.Value
			continue
		}
		if (opts.Mode == ModeHigh && d.Value > v) || (opts.Mode != ModeHigh && d.Value < v) {
			extreme[k] = d.Value
		}
	}

	out := make([]Extremum, 0, len(order))
	for _, k := range order {
		if bad[k] {
			continue
		}
		out = append(out, Extremum{StationID: k.station, RollDays: rd, Year: k.year, Value: extreme[k]})
	}
	return out
}

// plottingPositions ranks a station's extrema from most to least extreme and
// assigns (rank − a)/(n + 1 − 2a) probabilities. Ties rank by value then
// year so the output is deterministic.
func plottingPositions(sample []Extremum, mode Mode, a float64) []PlotPoint {
	ranked := make([]Extremum, len(sample))
	copy(ranked, sample)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			if mode == ModeHigh {
				return ranked[i].Value > ranked[j].Value
			}
			return ranked[i].Value < ranked[j].Value
		}
		return ranked[i].Year < ranked[j].Year
	})

	n := float64(len(ranked))
	out := make([]PlotPoint, len(ranked))
	for i, e := range ranked {
		prob := (float64(i+1) - a) / (n + 1 - 2*a)
		out[i] = PlotPoint{
			StationID:    e.StationID,
			RollDays:     e.RollDays,
			Year:         e.Year,
			Rank:         i + 1,
			Value:        e.Value,
			Probability:  prob,
			ReturnPeriod: 1 / prob,
		}
	}
	return out
}

func (res *Result) fitAndInvert(id string, rd int, sample []Extremum, points []PlotPoint, dist Distribution, periods []float64, mode Mode) {
	values := make([]float64, len(sample))
	for i, e := range sample {
		values[i] = e.Value
	}

	params, err := dist.Fit(values)
	if err != nil {
		res.Warnings = append(res.Warnings, models.Warning{
			StationID: id,
			Message:   fmt.Sprintf("%d-day series: %v; no quantiles computed", rd, err),
		})
		return
	}

	fit := Fit{StationID: id, RollDays: rd, Params: params, SampleSize: len(values)}
	if len(values) < minSampleYears {
		fit.LowConfidence = true
		res.Warnings = append(res.Warnings, models.Warning{
			StationID: id,
			Message:   fmt.Sprintf("%d-day series: only %d years available (minimum %d recommended); quantiles are low-confidence", rd, len(values), minSampleYears),
		})
	}
	res.Fits = append(res.Fits, fit)

	for _, t := range periods {
		p := 1 / t
		// low-flow quantiles sit in the lower tail, high-flow in the upper
		cum := p
		if mode == ModeHigh {
			cum = 1 - p
		}
		q := FittedQuantile{
			StationID:    id,
			RollDays:     rd,
			ReturnPeriod: t,
			Probability:  p,
			Value:        dist.Quantile(params, cum),
		}
		if se := dist.StandardError(params, cum); !math.IsNaN(se) {
			q.StdErr = sql.NullFloat64{Float64: se, Valid: true}
		}
		res.Quantiles = append(res.Quantiles, q)
	}

	for _, pt := range points {
		cum := pt.Probability
		if mode == ModeHigh {
			cum = 1 - pt.Probability
		}
		res.Curves = append(res.Curves, CurvePoint{
			StationID:   id,
			RollDays:    rd,
			Probability: pt.Probability,
			Value:       dist.Quantile(params, cum),
		})
	}
}

func monthEligible(m time.Month, months []time.Month) bool {
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

func containsYear(years []int, y int) bool {
	for _, want := range years {
		if y == want {
			return true
		}
	}
	return false
}

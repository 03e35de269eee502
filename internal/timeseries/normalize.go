package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/MonkmanMH/fasstr/internal/models"
)

var ErrInvalidWaterYearStart = errors.New("water year start month must be between 1 and 12")

// Day is one station-day of the normalized series. Value is NaN for days
// with no observation.
type Day struct {
	StationID      string
	Date           time.Time
	Value          float64
	CalendarYear   int
	Month          time.Month
	DayOfYear      int
	WaterYear      int
	WaterDayOfYear int
}

// Missing reports whether the day has no observed value.
func (d Day) Missing() bool {
	return math.IsNaN(d.Value)
}

// Normalize fills gaps so every station has exactly one row per calendar day
// from its first to its last observed date, attaches calendar and water-year
// fields, and orders rows by station then date. Duplicate observations for a
// station-day keep the last value seen.
func Normalize(flows []models.DailyFlow, waterYearStart time.Month) ([]Day, error) {
	if waterYearStart < time.January || waterYearStart > time.December {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWaterYearStart, waterYearStart)
	}

	byStation := make(map[string]map[time.Time]float64)
	for _, f := range flows {
		date := midnightUTC(f.Date)
		if byStation[f.StationID] == nil {
			byStation[f.StationID] = make(map[time.Time]float64)
		}
		v := math.NaN()
		if f.Value.Valid {
			v = f.Value.Float64
		}
		byStation[f.StationID][date] = v
	}

	stations := make([]string, 0, len(byStation))
	for id := range byStation {
		stations = append(stations, id)
	}
	sort.Strings(stations)

	var out []Day
	for _, id := range stations {
		obs := byStation[id]
		first, last := dateRange(obs)
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			v, ok := obs[d]
			if !ok {
				v = math.NaN()
			}
			day := Day{StationID: id, Date: d, Value: v}
			attachCalendar(&day, waterYearStart)
			out = append(out, day)
		}
	}
	return out, nil
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dateRange(obs map[time.Time]float64) (first, last time.Time) {
	for d := range obs {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	return first, last
}

func attachCalendar(d *Day, start time.Month) {
	d.CalendarYear = d.Date.Year()
	d.Month = d.Date.Month()
	d.DayOfYear = d.Date.YearDay()
	d.WaterYear = WaterYear(d.Date, start)
	d.WaterDayOfYear = int(d.Date.Sub(WaterYearStartDate(d.WaterYear, start)).Hours()/24) + 1
}

// WaterYear labels a date with the calendar year in which its 12-month
// water-year window ends. With an October start, 1999-11-01 and 2000-01-15
// both fall in water year 2000. A January start makes the water year the
// calendar year.
func WaterYear(date time.Time, start time.Month) int {
	if start == time.January || date.Month() >= start {
		if start == time.January {
			return date.Year()
		}
		return date.Year() + 1
	}
	return date.Year()
}

// WaterYearStartDate returns the first day of the given water year.
func WaterYearStartDate(waterYear int, start time.Month) time.Time {
	y := waterYear
	if start != time.January {
		y = waterYear - 1
	}
	return time.Date(y, start, 1, 0, 0, 0, 0, time.UTC)
}

// DaysInWaterYear returns the number of calendar days in the water year.
func DaysInWaterYear(waterYear int, start time.Month) int {
	a := WaterYearStartDate(waterYear, start)
	b := WaterYearStartDate(waterYear+1, start)
	return int(b.Sub(a).Hours() / 24)
}

// MonthOrder returns the twelve months rotated so the water-year start month
// comes first. Output ordering for monthly groupings follows this order.
func MonthOrder(start time.Month) []time.Month {
	months := make([]time.Month, 12)
	for i := 0; i < 12; i++ {
		months[i] = time.Month((int(start)-1+i)%12 + 1)
	}
	return months
}

package timeseries

import "math"

const secondsPerDay = 86400

// CumulativeDay extends a station-day with running totals for its water
// year. Volume is in m³; Yield is in mm of depth over the basin and is NaN
// when the basin area is unknown.
type CumulativeDay struct {
	Day
	Volume float64
	Yield  float64
}

// Cumulative computes running daily volume (and yield where a basin area in
// km² is known) per station, resetting at each water-year boundary. A missing
// day poisons the running total for the remainder of that water year: totals
// past a gap are NaN rather than silently undercounting.
func Cumulative(days []Day, basinAreaKm2 map[string]float64) []CumulativeDay {
	out := make([]CumulativeDay, len(days))

	var (
		prevStation string
		prevYear    int
		running     float64
	)
	for i, d := range days {
		if d.StationID != prevStation || d.WaterYear != prevYear {
			running = 0
			prevStation, prevYear = d.StationID, d.WaterYear
		}
		running += d.Value * secondsPerDay
		out[i] = CumulativeDay{Day: d, Volume: running, Yield: math.NaN()}
		if area, ok := basinAreaKm2[d.StationID]; ok && area > 0 {
			// m³ over area·1e6 m² gives metres; ×1000 gives mm
			out[i].Yield = running / (area * 1000)
		}
	}
	return out
}

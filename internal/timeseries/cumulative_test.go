package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/MonkmanMH/fasstr/internal/models"
)

func TestCumulativeVolume(t *testing.T) {
	days := seriesOf(t, "A", "2000-01-01", 1, 2, 3)
	out := Cumulative(days, nil)

	want := []float64{86400, 3 * 86400, 6 * 86400}
	for i, w := range want {
		if out[i].Volume != w {
			t.Errorf("day %d volume = %v, want %v", i, out[i].Volume, w)
		}
	}
	for _, d := range out {
		if !math.IsNaN(d.Yield) {
			t.Errorf("yield without basin area should be NaN, got %v", d.Yield)
		}
	}
}

func TestCumulativeYield(t *testing.T) {
	days := seriesOf(t, "A", "2000-01-01", 1)
	out := Cumulative(days, map[string]float64{"A": 10})

	// 86400 m³ over 10 km² is 8.64 mm
	if math.Abs(out[0].Yield-8.64) > 1e-9 {
		t.Errorf("yield = %v, want 8.64", out[0].Yield)
	}
}

func TestCumulativeResetsAtWaterYear(t *testing.T) {
	flows := []models.DailyFlow{
		flow("A", "1999-09-29", 1.0),
		flow("A", "1999-09-30", 1.0),
		flow("A", "1999-10-01", 2.0),
		flow("A", "1999-10-02", 2.0),
	}
	days, err := Normalize(flows, time.October)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	out := Cumulative(days, nil)

	if out[1].Volume != 2*86400 {
		t.Errorf("end of water year 1999 volume = %v, want %v", out[1].Volume, 2*86400)
	}
	if out[2].Volume != 2*86400 {
		t.Errorf("first day of water year 2000 volume = %v, want %v (reset)", out[2].Volume, 2*86400)
	}
	if out[3].Volume != 4*86400 {
		t.Errorf("second day of water year 2000 volume = %v, want %v", out[3].Volume, 4*86400)
	}
}

func TestCumulativeMissingPoisonsYear(t *testing.T) {
	flows := []models.DailyFlow{
		flow("A", "2000-01-01", 1.0),
		missingFlow("A", "2000-01-02"),
		flow("A", "2000-01-03", 1.0),
	}
	days, err := Normalize(flows, time.January)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	out := Cumulative(days, nil)

	if out[0].Volume != 86400 {
		t.Errorf("day 0 volume = %v, want 86400", out[0].Volume)
	}
	if !math.IsNaN(out[1].Volume) || !math.IsNaN(out[2].Volume) {
		t.Errorf("totals past a gap should be NaN, got %v, %v", out[1].Volume, out[2].Volume)
	}
}

func TestCumulativeStationBoundary(t *testing.T) {
	a := seriesOf(t, "A", "2000-01-01", 5)
	b := seriesOf(t, "B", "2000-01-01", 1)
	out := Cumulative(append(a, b...), nil)

	if out[1].Volume != 86400 {
		t.Errorf("station B should restart at its own total, got %v", out[1].Volume)
	}
}

package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/MonkmanMH/fasstr/internal/models"
)

func seriesOf(t *testing.T, station string, startDate string, values ...float64) []Day {
	t.Helper()
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	var flows []models.DailyFlow
	for i, v := range values {
		f := flow(station, start.AddDate(0, 0, i).Format("2006-01-02"), v)
		if math.IsNaN(v) {
			f = missingFlow(station, start.AddDate(0, 0, i).Format("2006-01-02"))
		}
		flows = append(flows, f)
	}
	days, err := Normalize(flows, time.January)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return days
}

func TestRollingMeanIdentity(t *testing.T) {
	days := seriesOf(t, "A", "2000-01-01", 1, 2, 3, 4, 5)
	for _, align := range []Alignment{AlignTrailing, AlignLeading, AlignCentered} {
		rolled, err := RollingMean(days, 1, align)
		if err != nil {
			t.Fatalf("RollingMean(1, %s): %v", align, err)
		}
		for i := range days {
			if rolled[i].Value != days[i].Value {
				t.Errorf("align %s day %d: got %v, want %v", align, i, rolled[i].Value, days[i].Value)
			}
		}
	}
}

func TestRollingMeanTrailing(t *testing.T) {
	days := seriesOf(t, "A", "2000-01-01", 2, 4, 6, 8)
	rolled, err := RollingMean(days, 3, AlignTrailing)
	if err != nil {
		t.Fatalf("RollingMean: %v", err)
	}
	if !math.IsNaN(rolled[0].Value) || !math.IsNaN(rolled[1].Value) {
		t.Errorf("leading edge should be missing, got %v, %v", rolled[0].Value, rolled[1].Value)
	}
	if rolled[2].Value != 4 {
		t.Errorf("rolled[2] = %v, want 4", rolled[2].Value)
	}
	if rolled[3].Value != 6 {
		t.Errorf("rolled[3] = %v, want 6", rolled[3].Value)
	}
}

func TestRollingMeanLeading(t *testing.T) {
	days := seriesOf(t, "A", "2000-01-01", 2, 4, 6, 8)
	rolled, err := RollingMean(days, 3, AlignLeading)
	if err != nil {
		t.Fatalf("RollingMean: %v", err)
	}
	if rolled[0].Value != 4 || rolled[1].Value != 6 {
		t.Errorf("rolled[0,1] = %v, %v, want 4, 6", rolled[0].Value, rolled[1].Value)
	}
	if !math.IsNaN(rolled[2].Value) || !math.IsNaN(rolled[3].Value) {
		t.Errorf("trailing edge should be missing, got %v, %v", rolled[2].Value, rolled[3].Value)
	}
}

func TestRollingMeanCenteredEvenWindow(t *testing.T) {
	// 4-day centered window takes two days before and one after the label
	days := seriesOf(t, "A", "2000-01-01", 1, 2, 3, 4, 5)
	rolled, err := RollingMean(days, 4, AlignCentered)
	if err != nil {
		t.Fatalf("RollingMean: %v", err)
	}
	if rolled[2].Value != 2.5 {
		t.Errorf("rolled[2] = %v, want 2.5 (mean of days 1-4)", rolled[2].Value)
	}
	if !math.IsNaN(rolled[1].Value) {
		t.Errorf("rolled[1] should be missing, got %v", rolled[1].Value)
	}
	if rolled[3].Value != 3.5 {
		t.Errorf("rolled[3] = %v, want 3.5", rolled[3].Value)
	}
}

func TestRollingMeanMissingPropagates(t *testing.T) {
	days := seriesOf(t, "A", "2000-01-01", 1, 2, math.NaN(), 4, 5, 6, 7)
	rolled, err := RollingMean(days, 3, AlignTrailing)
	if err != nil {
		t.Fatalf("RollingMean: %v", err)
	}
	// windows ending on days 2..4 (index) include the missing day 2
	for _, i := range []int{2, 3, 4} {
		if !math.IsNaN(rolled[i].Value) {
			t.Errorf("rolled[%d] = %v, want missing", i, rolled[i].Value)
		}
	}
	if rolled[5].Value != 5 || rolled[6].Value != 6 {
		t.Errorf("unaffected windows: got %v, %v, want 5, 6", rolled[5].Value, rolled[6].Value)
	}
}

func TestRollingMeanStationBoundary(t *testing.T) {
	a := seriesOf(t, "A", "2000-01-01", 1, 2, 3)
	b := seriesOf(t, "B", "2000-01-01", 10, 20, 30)
	days := append(a, b...)

	rolled, err := RollingMean(days, 3, AlignTrailing)
	if err != nil {
		t.Fatalf("RollingMean: %v", err)
	}
	// station B's first two days must not borrow station A's values
	if !math.IsNaN(rolled[3].Value) || !math.IsNaN(rolled[4].Value) {
		t.Errorf("station boundary leaked: %v, %v", rolled[3].Value, rolled[4].Value)
	}
	if rolled[5].Value != 20 {
		t.Errorf("rolled[5] = %v, want 20", rolled[5].Value)
	}
}

func TestRollingMeanConfigErrors(t *testing.T) {
	days := seriesOf(t, "A", "2000-01-01", 1, 2, 3)
	if _, err := RollingMean(days, 0, AlignTrailing); err == nil {
		t.Error("expected error for 0-day window")
	}
	if _, err := RollingMean(days, 3, Alignment("diagonal")); err == nil {
		t.Error("expected error for unknown alignment")
	}
}

package models

import (
	"database/sql"
	"time"
)

type Station struct {
	StationID    string
	Name         string
	Province     string
	Latitude     float64
	Longitude    float64
	BasinAreaKm2 sql.NullFloat64
	Active       bool
}

// DailyFlow is one daily mean discharge record in m³/s. Value is null for
// days the gauge reported nothing.
type DailyFlow struct {
	ID        int64
	StationID string
	Date      time.Time
	Value     sql.NullFloat64
	Symbol    string // agency data-quality symbol ("A", "B", "E", ...), empty if none
	CreatedAt time.Time
}

// Warning is a non-fatal diagnostic accumulated during an analysis call and
// returned alongside the results, never mixed into them.
type Warning struct {
	StationID string
	Message   string
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/MonkmanMH/fasstr/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertStation(st models.Station) error {
	_, err := s.db.Exec(`
		INSERT INTO stations (station_id, name, province, latitude, longitude, basin_area_km2, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			name = excluded.name,
			province = excluded.province,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			basin_area_km2 = excluded.basin_area_km2,
			active = excluded.active
	`, st.StationID, st.Name, st.Province, st.Latitude, st.Longitude, st.BasinAreaKm2, st.Active)
	return err
}

func (s *Store) GetStations() ([]models.Station, error) {
	rows, err := s.db.Query(`
		SELECT station_id, name, province, latitude, longitude, basin_area_km2, active
		FROM stations ORDER BY station_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.StationID, &st.Name, &st.Province, &st.Latitude, &st.Longitude, &st.BasinAreaKm2, &st.Active); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

func (s *Store) GetStation(stationID string) (*models.Station, error) {
	row := s.db.QueryRow(`
		SELECT station_id, name, province, latitude, longitude, basin_area_km2, active
		FROM stations WHERE station_id = ?
	`, stationID)

	var st models.Station
	err := row.Scan(&st.StationID, &st.Name, &st.Province, &st.Latitude, &st.Longitude, &st.BasinAreaKm2, &st.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// BasinAreas returns basin area in km² for every station that has one.
// Stations with unknown area are simply absent, which downstream yield
// calculations treat as null yields.
func (s *Store) BasinAreas() (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT station_id, basin_area_km2 FROM stations WHERE basin_area_km2 IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := make(map[string]float64)
	for rows.Next() {
		var id string
		var area float64
		if err := rows.Scan(&id, &area); err != nil {
			return nil, err
		}
		areas[id] = area
	}
	return areas, rows.Err()
}

// InsertDailyFlows upserts a batch of daily flow records in one transaction.
func (s *Store) InsertDailyFlows(flows []models.DailyFlow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_flows (station_id, date, value, symbol)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(station_id, date) DO UPDATE SET
			value = excluded.value,
			symbol = excluded.symbol
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, f := range flows {
		if _, err := stmt.Exec(f.StationID, f.Date.Format("2006-01-02"), f.Value, f.Symbol); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s %s: %w", f.StationID, f.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

// GetDailyFlows returns a station's daily records ordered by date. Zero
// start/end times leave that side of the range open.
func (s *Store) GetDailyFlows(stationID string, start, end time.Time) ([]models.DailyFlow, error) {
	query := `
		SELECT id, station_id, date, value, symbol, created_at
		FROM daily_flows WHERE station_id = ?`
	args := []any{stationID}
	if !start.IsZero() {
		query += " AND date >= ?"
		args = append(args, start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		query += " AND date <= ?"
		args = append(args, end.Format("2006-01-02"))
	}
	query += " ORDER BY date"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flows []models.DailyFlow
	for rows.Next() {
		var f models.DailyFlow
		var date string
		if err := rows.Scan(&f.ID, &f.StationID, &date, &f.Value, &f.Symbol, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

// CountDailyFlows reports how many records a station has.
func (s *Store) CountDailyFlows(stationID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM daily_flows WHERE station_id = ?`, stationID).Scan(&n)
	return n, err
}

// Package format reshapes analysis results into labeled tables for table
// writers and chart builders. Row and column order always follows the order
// the statistics were produced in, never alphabetical.
package format

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/MonkmanMH/fasstr/internal/stats"
)

var ErrConflictingLayout = errors.New("spread and transpose layouts cannot both be requested")

// Table is a named rectangular table of formatted cells. Null statistics are
// empty cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Layout selects the output shape of Format.
type Layout struct {
	Spread    bool
	Transpose bool
}

// TableName builds the deterministic name downstream bundling keys on.
func TableName(stationID string, period stats.Period) string {
	return fmt.Sprintf("%s_%s_Statistics", stationID, period)
}

// Format reshapes aggregated statistics per the requested layout: long
// (default), spread wide, or fully transposed.
func Format(rows []stats.StatRow, name string, layout Layout) (Table, error) {
	if layout.Spread && layout.Transpose {
		return Table{}, ErrConflictingLayout
	}
	switch {
	case layout.Spread:
		return Spread(rows, name), nil
	case layout.Transpose:
		return Transpose(Spread(rows, name)), nil
	default:
		return Long(rows, name), nil
	}
}

// Long produces the canonical long table: one row per station × period ×
// statistic.
func Long(rows []stats.StatRow, name string) Table {
	t := Table{Name: name, Columns: []string{"Station", "Period", "Statistic", "Value"}}
	for _, row := range rows {
		for _, s := range statCells(row) {
			t.Rows = append(t.Rows, []string{row.StationID, periodLabel(row), s.name, s.value})
		}
	}
	return t
}

// periodLabel is unique within one station's rows; monthly rows need the
// year folded in since month names repeat across years.
func periodLabel(row stats.StatRow) string {
	if row.Period == stats.PeriodMonthly {
		return fmt.Sprintf("%d-%s", row.Year, row.Label)
	}
	return row.Label
}

// Spread produces a wide table with one row per period and one column per
// station/statistic. Statistic columns are prefixed with the station ID when
// more than one station is present. Period labels are the first-appearance
// union across stations; a station with no row for a label gets empty cells,
// so the table stays rectangular when station spans differ.
func Spread(rows []stats.StatRow, name string) Table {
	var stations []string
	byStation := make(map[string][]stats.StatRow)
	for _, row := range rows {
		if _, ok := byStation[row.StationID]; !ok {
			stations = append(stations, row.StationID)
		}
		byStation[row.StationID] = append(byStation[row.StationID], row)
	}

	t := Table{Name: name, Columns: []string{"Period"}}
	if len(stations) == 0 {
		return t
	}

	var periods []string
	cells := make(map[string][]string) // period label -> row cells
	for _, id := range stations {
		for _, row := range byStation[id] {
			label := periodLabel(row)
			if _, ok := cells[label]; !ok {
				periods = append(periods, label)
				cells[label] = []string{label}
			}
		}
	}

	for _, id := range stations {
		width := len(statCells(byStation[id][0]))
		for _, s := range statCells(byStation[id][0]) {
			col := s.name
			if len(stations) > 1 {
				col = id + "_" + s.name
			}
			t.Columns = append(t.Columns, col)
		}
		filled := make(map[string]bool, len(byStation[id]))
		for _, row := range byStation[id] {
			label := periodLabel(row)
			for _, s := range statCells(row) {
				cells[label] = append(cells[label], s.value)
			}
			filled[label] = true
		}
		for _, label := range periods {
			if !filled[label] {
				cells[label] = append(cells[label], make([]string, width)...)
			}
		}
	}

	for _, label := range periods {
		t.Rows = append(t.Rows, cells[label])
	}
	return t
}

// Transpose flips a table so its first column becomes the header row. Two
// transposes return the original table.
func Transpose(t Table) Table {
	if len(t.Columns) == 0 {
		return Table{Name: t.Name}
	}
	out := Table{Name: t.Name, Columns: []string{t.Columns[0]}}
	for _, row := range t.Rows {
		out.Columns = append(out.Columns, row[0])
	}
	for j := 1; j < len(t.Columns); j++ {
		row := []string{t.Columns[j]}
		for _, src := range t.Rows {
			row = append(row, src[j])
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

type statCell struct {
	name  string
	value string
}

func statCells(row stats.StatRow) []statCell {
	cells := []statCell{
		{"Mean", Cell(row.Mean)},
		{"Median", Cell(row.Median)},
		{"Minimum", Cell(row.Min)},
		{"Maximum", Cell(row.Max)},
	}
	for _, q := range row.Percentiles {
		cells = append(cells, statCell{fmt.Sprintf("P%g", q.Percentile), Cell(q.Value)})
	}
	return cells
}

// Cell formats a nullable statistic; nulls become empty cells.
func Cell(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'g', -1, 64)
}

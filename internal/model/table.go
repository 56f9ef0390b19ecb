package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// CellKind classifies a raw spreadsheet value.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellDate
)

// Cell is one raw value as read from a sheet.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

// TextCell returns a text cell holding s.
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }

// NumberCell returns a numeric cell holding n.
func NumberCell(n float64) Cell { return Cell{Kind: CellNumber, Number: n} }

// DateCell returns a date cell holding t.
func DateCell(t time.Time) Cell { return Cell{Kind: CellDate, Time: t} }

// IsEmpty reports whether the cell carries no usable value: absent,
// whitespace-only text, or a NaN number.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case CellEmpty:
		return true
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	case CellNumber:
		return math.IsNaN(c.Number)
	default:
		return false
	}
}

// ColumnRole is the part a column plays in a category table.
type ColumnRole string

const (
	RoleLabel    ColumnRole = "label"
	RoleTemporal ColumnRole = "temporal"
	RoleMonetary ColumnRole = "monetary"
	RolePlain    ColumnRole = "plain"
)

// ParseRole converts a config string to a ColumnRole.
func ParseRole(s string) (ColumnRole, error) {
	switch r := ColumnRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleLabel, RoleTemporal, RoleMonetary, RolePlain:
		return r, nil
	default:
		return "", fmt.Errorf("unknown column role %q", s)
	}
}

// Row maps column name to its raw cell. A missing key is an empty cell.
type Row map[string]Cell

// Table is one sheet: unique column names in sheet order plus its rows.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Column returns the cells of the named column, top to bottom.
func (t Table) Column(name string) []Cell {
	cells := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[name]
	}
	return cells
}

// WithRows returns a copy of t sharing its columns but holding rows.
func (t Table) WithRows(rows []Row) Table {
	return Table{Name: t.Name, Columns: t.Columns, Rows: rows}
}

// IsBlank reports whether every cell of the row is empty.
func (r Row) IsBlank() bool {
	for _, c := range r {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

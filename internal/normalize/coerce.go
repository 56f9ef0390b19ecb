package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"

	"github.com/expensebook/sheetsync/internal/model"
)

const isoDate = "2006-01-02"

// dateLayouts are tried in order when a temporal cell holds text.
var dateLayouts = []string{
	isoDate,
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"2006.1.2",
	"2006年1月2日",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// Coerced is a table whose cells have been mapped to JSON-safe values.
type Coerced struct {
	Fields    []string
	Items     []model.Item
	Fallbacks int // non-empty cells that degraded to a default
}

// Coerce maps every cell of t according to its column's role. Values are
// strings, except monetary columns which hold int64.
func Coerce(t model.Table, roles Roles) Coerced {
	out := Coerced{
		Fields: append([]string(nil), t.Columns...),
		Items:  make([]model.Item, len(t.Rows)),
	}
	for i, row := range t.Rows {
		item := model.NewItem(len(t.Columns))
		for _, col := range t.Columns {
			v, ok := CoerceCell(row[col], roles.Role(col))
			if !ok {
				out.Fallbacks++
			}
			item.Set(col, v)
		}
		out.Items[i] = item
	}
	return out
}

// CoerceCell converts c for the given role. ok is false when a non-empty
// cell could not be parsed and the role's default was used instead.
func CoerceCell(c model.Cell, role model.ColumnRole) (v any, ok bool) {
	switch role {
	case model.RoleTemporal:
		return CoerceTemporal(c)
	case model.RoleMonetary:
		return CoerceMonetary(c)
	default:
		return CoerceText(c), true
	}
}

// CoerceTemporal renders a date as YYYY-MM-DD, or "" if it has none.
func CoerceTemporal(c model.Cell) (string, bool) {
	if c.IsEmpty() {
		return "", true
	}
	switch c.Kind {
	case model.CellDate:
		return c.Time.Format(isoDate), true
	case model.CellText:
		if t, ok := parseDate(strings.TrimSpace(c.Text)); ok {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

func parseDate(s string) (time.Time, bool) {
	s = width.Narrow.String(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceMonetary parses an amount and truncates it toward zero. Thousands
// separators, currency symbols, whitespace and full-width digits are
// tolerated; anything unparseable or outside the int64 range is 0.
func CoerceMonetary(c model.Cell) (int64, bool) {
	if c.IsEmpty() {
		return 0, true
	}
	switch c.Kind {
	case model.CellNumber:
		if math.IsInf(c.Number, 0) {
			return 0, false
		}
		return wholeUnits(decimal.NewFromFloat(c.Number))
	case model.CellText:
		digits, ok := amountDigits(c.Text)
		if !ok {
			return 0, false
		}
		d, err := decimal.NewFromString(digits)
		if err != nil {
			return 0, false
		}
		return wholeUnits(d)
	}
	return 0, false
}

func wholeUnits(d decimal.Decimal) (int64, bool) {
	d = d.Truncate(0)
	n := d.IntPart()
	if !d.Equal(decimal.NewFromInt(n)) {
		return 0, false
	}
	return n, true
}

// amountDigits extracts the decimal number from an amount string. Text
// before the first digit may only contribute a minus sign and text after
// the last digit is dropped; between them only separators are allowed.
func amountDigits(s string) (string, bool) {
	s = width.Narrow.String(s)
	first := strings.IndexFunc(s, isDigit)
	if first < 0 {
		return "", true
	}
	last := strings.LastIndexFunc(s, isDigit)

	var b strings.Builder
	for _, r := range s[:first] {
		if r == '-' {
			b.WriteRune(r)
		}
	}
	if strings.HasSuffix(s[:first], ".") {
		b.WriteString("0.")
	}
	for _, r := range s[first : last+1] {
		switch {
		case isDigit(r), r == '.':
			b.WriteRune(r)
		case r == ',', unicode.IsSpace(r):
		default:
			return "", false
		}
	}
	return b.String(), true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// CoerceText renders any cell as a string; empty and NaN become "".
func CoerceText(c model.Cell) string {
	if c.IsEmpty() {
		return ""
	}
	switch c.Kind {
	case model.CellText:
		return c.Text
	case model.CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case model.CellDate:
		return c.Time.Format(isoDate)
	}
	return ""
}

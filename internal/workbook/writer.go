package workbook

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/expensebook/sheetsync/internal/model"
)

// Style holds the cosmetic defaults applied to written sheets.
type Style struct {
	ColumnWidth float64
	BoldHeader  bool
	WrapBody    bool
}

// DefaultStyle returns bold centred headers, wrapped body rows and width 20.
func DefaultStyle() Style {
	return Style{ColumnWidth: 20, BoldHeader: true, WrapBody: true}
}

const maxSheetName = 31

// Write emits tables as one workbook, one sheet per table in order.
func Write(w io.Writer, tables []model.Table, style Style) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f, style)
	if err != nil {
		return err
	}

	names := sheetNames(tables)
	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", names[i]); err != nil {
				return fmt.Errorf("naming sheet %q: %w", names[i], err)
			}
		} else if _, err := f.NewSheet(names[i]); err != nil {
			return fmt.Errorf("creating sheet %q: %w", names[i], err)
		}
		if err := writeSheet(f, names[i], t, style, styles); err != nil {
			return fmt.Errorf("writing sheet %q: %w", names[i], err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// WriteFile writes the workbook to path. Failures wrap
// model.ErrSinkUnwritable.
func WriteFile(path string, tables []model.Table, style Style) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkUnwritable, err)
	}
	if err := Write(out, tables, style); err != nil {
		out.Close()
		return fmt.Errorf("%w: %w", model.ErrSinkUnwritable, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrSinkUnwritable, err)
	}
	return nil
}

type sheetStyles struct {
	header int
	body   int
	date   int
}

func newStyles(f *excelize.File, style Style) (sheetStyles, error) {
	var s sheetStyles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: style.BoldHeader},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return s, fmt.Errorf("creating header style: %w", err)
	}
	body := &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: style.WrapBody}
	s.body, err = f.NewStyle(&excelize.Style{Alignment: body})
	if err != nil {
		return s, fmt.Errorf("creating body style: %w", err)
	}
	// Date cells keep a date number format so they read back as dates.
	s.date, err = f.NewStyle(&excelize.Style{Alignment: body, NumFmt: 14})
	if err != nil {
		return s, fmt.Errorf("creating date style: %w", err)
	}
	return s, nil
}

func writeSheet(f *excelize.File, sheet string, t model.Table, style Style, styles sheetStyles) error {
	if len(t.Columns) == 0 {
		return nil
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	var dateRefs []string
	for i, row := range t.Rows {
		values := make([]any, len(t.Columns))
		for j, col := range t.Columns {
			c := row[col]
			values[j] = cellValue(c)
			if c.Kind == model.CellDate {
				ref, err := excelize.CoordinatesToCellName(j+1, i+2)
				if err != nil {
					return err
				}
				dateRefs = append(dateRefs, ref)
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, ref, &values); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", styles.header); err != nil {
		return err
	}
	if len(t.Rows) > 0 {
		if err := f.SetCellStyle(sheet, "A2", lastCol+strconv.Itoa(len(t.Rows)+1), styles.body); err != nil {
			return err
		}
	}
	for _, ref := range dateRefs {
		if err := f.SetCellStyle(sheet, ref, ref, styles.date); err != nil {
			return err
		}
	}
	if style.ColumnWidth > 0 {
		if err := f.SetColWidth(sheet, "A", lastCol, style.ColumnWidth); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(c model.Cell) any {
	switch c.Kind {
	case model.CellText:
		return c.Text
	case model.CellNumber:
		return c.Number
	case model.CellDate:
		return c.Time
	default:
		return nil
	}
}

// sheetNames maps table names to valid, unique sheet names. Excel forbids
// : \ / ? * [ ] and names longer than 31 characters, and compares names
// case-insensitively.
func sheetNames(tables []model.Table) []string {
	names := make([]string, len(tables))
	used := make(map[string]bool, len(tables))
	for i, t := range tables {
		base := SanitizeSheetName(t.Name)
		name := base
		for n := 2; used[strings.ToLower(name)]; n++ {
			suffix := " (" + strconv.Itoa(n) + ")"
			name = truncateRunes(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

// SanitizeSheetName replaces characters Excel rejects and truncates to the
// sheet-name length limit. An empty result becomes "Sheet".
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		return "Sheet"
	}
	return truncateRunes(name, maxSheetName)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

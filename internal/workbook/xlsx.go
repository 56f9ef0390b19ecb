package workbook

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/expensebook/sheetsync/internal/model"
)

// XLSXReader reads every sheet of an Excel workbook. The first row of a
// sheet is its header.
type XLSXReader struct{}

// Format returns the reader name.
func (x *XLSXReader) Format() string { return "xlsx" }

// Read decodes all sheets in workbook order.
func (x *XLSXReader) Read(r io.Reader, _ string) ([]model.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening workbook: %w", model.ErrSourceUnreadable, err)
	}
	defer f.Close()

	sr := &sheetReader{file: f, dateStyles: make(map[int]bool)}
	var tables []model.Table
	for _, sheet := range f.GetSheetList() {
		t, err := sr.read(sheet)
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %w", model.ErrSourceUnreadable, sheet, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

type sheetReader struct {
	file       *excelize.File
	dateStyles map[int]bool
}

func (s *sheetReader) read(sheet string) (model.Table, error) {
	rows, err := s.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.Table{}, fmt.Errorf("reading rows: %w", err)
	}
	if len(rows) == 0 {
		return model.Table{Name: sheet}, nil
	}

	data := make([][]model.Cell, 0, len(rows)-1)
	for i, raw := range rows[1:] {
		cells := make([]model.Cell, len(raw))
		for j, v := range raw {
			if v == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return model.Table{}, err
			}
			cells[j], err = s.cell(sheet, ref, v)
			if err != nil {
				return model.Table{}, fmt.Errorf("cell %s: %w", ref, err)
			}
		}
		data = append(data, cells)
	}
	return buildTable(sheet, rows[0], data), nil
}

// cell types a raw value using the cell's stored type and number format.
// Numbers formatted as dates become date cells.
func (s *sheetReader) cell(sheet, ref, raw string) (model.Cell, error) {
	typ, err := s.file.GetCellType(sheet, ref)
	if err != nil {
		return model.Cell{}, err
	}

	switch typ {
	case excelize.CellTypeDate:
		if t, ok := parseISO(raw); ok {
			return model.DateCell(t), nil
		}
		return model.TextCell(raw), nil
	case excelize.CellTypeBool:
		if raw == "1" {
			return model.TextCell("TRUE"), nil
		}
		return model.TextCell("FALSE"), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return model.TextCell(raw), nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return model.TextCell(raw), nil
	}
	isDate, err := s.hasDateFormat(sheet, ref)
	if err != nil {
		return model.Cell{}, err
	}
	if isDate {
		t, err := excelize.ExcelDateToTime(n, false)
		if err == nil {
			return model.DateCell(t), nil
		}
	}
	return model.NumberCell(n), nil
}

func (s *sheetReader) hasDateFormat(sheet, ref string) (bool, error) {
	styleID, err := s.file.GetCellStyle(sheet, ref)
	if err != nil {
		return false, err
	}
	if styleID == 0 {
		return false, nil
	}
	if v, ok := s.dateStyles[styleID]; ok {
		return v, nil
	}

	style, err := s.file.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	isDate := isDateNumFmt(style.NumFmt)
	if style.CustomNumFmt != nil {
		isDate = isDateLayout(*style.CustomNumFmt)
	}
	s.dateStyles[styleID] = isDate
	return isDate, nil
}

// isDateNumFmt reports whether a built-in number format id renders a date.
// 14-22 and 45-47 are the international date/time formats, 27-36 and 50-58
// the East Asian ones.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

var (
	quotedSection  = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]|\\.`)
	dateLayoutRune = regexp.MustCompile(`[yYdD]|[mM]{3,}|年|月|日`)
)

// isDateLayout reports whether a custom number format contains date tokens
// outside of literal text.
func isDateLayout(layout string) bool {
	stripped := quotedSection.ReplaceAllString(layout, "")
	if strings.TrimSpace(stripped) == "" {
		return false
	}
	return dateLayoutRune.MatchString(stripped)
}

func parseISO(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

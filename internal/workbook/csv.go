package workbook

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/expensebook/sheetsync/internal/model"
)

// CSVReader reads a CSV export as a single sheet named after the file.
// Every value is a text cell; typing happens in the coercer.
type CSVReader struct{}

// Format returns the reader name.
func (c *CSVReader) Format() string { return "csv" }

// Read decodes the CSV into one table.
func (c *CSVReader) Read(r io.Reader, name string) ([]model.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return []model.Table{{Name: name}}, nil
	}

	rows := make([][]model.Cell, len(records)-1)
	for i, rec := range records[1:] {
		cells := make([]model.Cell, len(rec))
		for j, v := range rec {
			if v != "" {
				cells[j] = model.TextCell(v)
			}
		}
		rows[i] = cells
	}
	return []model.Table{buildTable(name, records[0], rows)}, nil
}

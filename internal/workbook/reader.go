package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/expensebook/sheetsync/internal/model"
)

// Reader converts an input file into named tables, one per sheet.
type Reader interface {
	Read(r io.Reader, name string) ([]model.Table, error)
	Format() string
}

// Registry holds readers keyed by file extension.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// Register adds a reader. Panics on duplicate format.
func (r *Registry) Register(rd Reader) {
	key := strings.ToLower(rd.Format())
	if _, ok := r.readers[key]; ok {
		panic("duplicate reader format: " + key)
	}
	r.readers[key] = rd
}

// Get returns the reader for format, or nil.
func (r *Registry) Get(format string) Reader {
	return r.readers[strings.ToLower(strings.TrimPrefix(format, "."))]
}

// DefaultRegistry returns a registry with all built-in readers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&XLSXReader{})
	r.Register(&CSVReader{})
	return r
}

// ReadFile opens path and decodes it with the reader registered for its
// extension. An empty path yields model.ErrSourceUnavailable; anything that
// cannot be opened or parsed yields model.ErrSourceUnreadable.
func ReadFile(reg *Registry, path string) ([]model.Table, error) {
	if path == "" {
		return nil, model.ErrSourceUnavailable
	}

	rd := reg.Get(filepath.Ext(path))
	if rd == nil {
		return nil, fmt.Errorf("%w: unsupported file type %q", model.ErrSourceUnreadable, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSourceUnreadable, err)
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tables, err := rd.Read(f, base)
	if err != nil {
		if errors.Is(err, model.ErrSourceUnreadable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrSourceUnreadable, err)
	}
	return tables, nil
}

// buildTable turns a header row and data rows into a Table. Blank headers
// become "Unnamed: N" and repeated headers get a ".N" suffix so column
// names stay unique. Rows wider than the header extend it.
func buildTable(name string, header []string, rows [][]model.Cell) model.Table {
	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	columns := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		col := ""
		if i < len(header) {
			col = normalizeHeader(header[i])
		}
		if col == "" {
			col = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[col]; dup {
			base := col
			for {
				n++
				col = base + "." + strconv.Itoa(n)
				if _, taken := seen[col]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[col] = 0
		columns[i] = col
	}

	out := make([]model.Row, len(rows))
	for i, cells := range rows {
		row := make(model.Row, width)
		for j, c := range cells {
			if c.Kind != model.CellEmpty {
				row[columns[j]] = c
			}
		}
		out[i] = row
	}
	return model.Table{Name: name, Columns: columns, Rows: out}
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ").Replace(s)
	return strings.TrimSpace(s)
}

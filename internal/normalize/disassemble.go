package normalize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/expensebook/sheetsync/internal/model"
)

// Disassemble rebuilds a table from a record: columns follow Fields and
// rows follow Items. Numbers become number cells, ISO dates date cells and
// other strings text cells; empty strings are left as empty cells.
func Disassemble(rec model.CategoryRecord) model.Table {
	t := model.Table{
		Name:    rec.Name,
		Columns: append([]string(nil), rec.Fields...),
		Rows:    make([]model.Row, len(rec.Items)),
	}
	for i, item := range rec.Items {
		row := make(model.Row, len(rec.Fields))
		for _, f := range rec.Fields {
			v, ok := item.Get(f)
			if !ok {
				continue
			}
			if c := valueCell(v); !c.IsEmpty() {
				row[f] = c
			}
		}
		t.Rows[i] = row
	}
	return t
}

func valueCell(v any) model.Cell {
	switch x := v.(type) {
	case nil:
		return model.Cell{}
	case string:
		if d, err := time.Parse(isoDate, x); err == nil {
			return model.DateCell(d)
		}
		return model.TextCell(x)
	case int:
		return model.NumberCell(float64(x))
	case int64:
		return model.NumberCell(float64(x))
	case float64:
		return model.NumberCell(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return model.NumberCell(f)
		}
		return model.TextCell(x.String())
	case bool:
		if x {
			return model.TextCell("TRUE")
		}
		return model.TextCell("FALSE")
	default:
		return model.TextCell(fmt.Sprint(x))
	}
}

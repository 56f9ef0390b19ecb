package normalize

import (
	"slices"

	"github.com/expensebook/sheetsync/internal/config"
	"github.com/expensebook/sheetsync/internal/id"
	"github.com/expensebook/sheetsync/internal/model"
)

// Assembler builds CategoryRecords from coerced tables.
type Assembler struct {
	catalog        *config.Catalog
	ids            *id.Generator
	requiredFields []string
}

// NewAssembler returns an Assembler. Sheets missing from catalog get
// metadata from ids; requiredFields are appended to records lacking them.
func NewAssembler(catalog *config.Catalog, ids *id.Generator, requiredFields []string) *Assembler {
	if catalog == nil {
		catalog = config.NewCatalog(nil)
	}
	if ids == nil {
		ids = id.NewGenerator(id.StrategyTimestamp, nil, nil)
	}
	return &Assembler{catalog: catalog, ids: ids, requiredFields: requiredFields}
}

// Assemble returns the record for one sheet.
func (a *Assembler) Assemble(sheet string, c Coerced) model.CategoryRecord {
	rec := model.CategoryRecord{
		Fields: append([]string(nil), c.Fields...),
		Items:  c.Items,
	}
	// Configured entries may leave any of id, name and color blank.
	cat, _ := a.catalog.Get(sheet)
	rec.ID, rec.Name, rec.Color = cat.ID, cat.Name, cat.Color
	if rec.ID == "" {
		rec.ID = a.ids.NextID()
	}
	if rec.Name == "" {
		rec.Name = sheet
	}
	if rec.Color == "" {
		rec.Color = a.ids.NextColor()
	}
	if rec.Items == nil {
		rec.Items = []model.Item{}
	}

	for _, f := range a.requiredFields {
		if slices.Contains(rec.Fields, f) {
			continue
		}
		rec.Fields = append(rec.Fields, f)
		for i := range rec.Items {
			rec.Items[i].Set(f, "")
		}
	}
	return rec
}

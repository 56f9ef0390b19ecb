package config

// Catalog provides lookup of category metadata by sheet name. A sheet
// named after a category's display name also resolves to it, so exported
// workbooks read back under the same category.
type Catalog struct {
	bySheet map[string]Category
	byName  map[string]Category
}

// NewCatalog creates a Catalog from a slice of categories.
func NewCatalog(categories []Category) *Catalog {
	c := &Catalog{
		bySheet: make(map[string]Category, len(categories)),
		byName:  make(map[string]Category, len(categories)),
	}
	for _, cat := range categories {
		c.bySheet[cat.Sheet] = cat
		if _, taken := c.byName[cat.Name]; cat.Name != "" && !taken {
			c.byName[cat.Name] = cat
		}
	}
	return c
}

// Catalog returns the config's categories as a Catalog.
func (c *Config) Catalog() *Catalog {
	return NewCatalog(c.Categories)
}

// Get returns the category configured for a sheet, matching the sheet key
// first and the display name second.
func (c *Catalog) Get(sheet string) (Category, bool) {
	if cat, ok := c.bySheet[sheet]; ok {
		return cat, true
	}
	cat, ok := c.byName[sheet]
	return cat, ok
}

// Exists reports whether a sheet has configured metadata.
func (c *Catalog) Exists(sheet string) bool {
	_, ok := c.Get(sheet)
	return ok
}

package normalize

import (
	"slices"
	"strings"
	"unicode"

	"github.com/expensebook/sheetsync/internal/model"
)

// Rule assigns Role to columns whose name contains one of Keywords.
type Rule struct {
	Role     model.ColumnRole
	Keywords []string
}

// DefaultRules returns the keyword table used when the config has none.
func DefaultRules() []Rule {
	return []Rule{
		{Role: model.RoleLabel, Keywords: []string{"品項", "品名", "產品名稱", "博物館", "名稱", "item", "product"}},
		{Role: model.RoleTemporal, Keywords: []string{"日期", "時間", "date", "time"}},
		{Role: model.RoleMonetary, Keywords: []string{"金額", "價格", "費用", "折扣", "amount", "price", "fee", "discount", "cost"}},
	}
}

// Roles is the classification of one table.
type Roles struct {
	ByColumn map[string]model.ColumnRole
	Label    string // "" when no column is a label
}

// Role returns the role of a column, plain if unknown.
func (r Roles) Role(col string) model.ColumnRole {
	if role, ok := r.ByColumn[col]; ok {
		return role
	}
	return model.RolePlain
}

// Columns returns the columns of t holding any of roles, in table order.
func (r Roles) Columns(t model.Table, roles ...model.ColumnRole) []string {
	var cols []string
	for _, c := range t.Columns {
		if slices.Contains(roles, r.Role(c)) {
			cols = append(cols, c)
		}
	}
	return cols
}

// Classifier assigns column roles from an ordered rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a Classifier; nil rules select DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = normalizeName(k); k != "" {
				kws = append(kws, k)
			}
		}
		normalized[i] = Rule{Role: r.Role, Keywords: kws}
	}
	return &Classifier{rules: normalized}
}

// Classify returns the role of a single column.
func (c *Classifier) Classify(name string, values []model.Cell) model.ColumnRole {
	return c.classify(name, values, true)
}

// ClassifyTable assigns a role to every column of t. Only the first
// label match in column order becomes the label; later matches are
// classified as if the label rule did not exist.
func (c *Classifier) ClassifyTable(t model.Table) Roles {
	roles := Roles{ByColumn: make(map[string]model.ColumnRole, len(t.Columns))}
	for _, col := range t.Columns {
		role := c.classify(col, t.Column(col), roles.Label == "")
		if role == model.RoleLabel {
			roles.Label = col
		}
		roles.ByColumn[col] = role
	}
	return roles
}

// classify evaluates label keywords, then cell types, then the remaining
// keyword rules in order.
func (c *Classifier) classify(name string, values []model.Cell, allowLabel bool) model.ColumnRole {
	key := normalizeName(name)

	if allowLabel && c.matches(key, model.RoleLabel) {
		return model.RoleLabel
	}
	if allDates(values) {
		return model.RoleTemporal
	}
	for _, r := range c.rules {
		if r.Role == model.RoleLabel {
			continue
		}
		if containsAny(key, r.Keywords) {
			return r.Role
		}
	}
	return model.RolePlain
}

func (c *Classifier) matches(key string, role model.ColumnRole) bool {
	for _, r := range c.rules {
		if r.Role == role && containsAny(key, r.Keywords) {
			return true
		}
	}
	return false
}

// allDates reports whether the column has at least one value and every
// non-empty value is a date cell.
func allDates(values []model.Cell) bool {
	seen := false
	for _, v := range values {
		if v.IsEmpty() {
			continue
		}
		if v.Kind != model.CellDate {
			return false
		}
		seen = true
	}
	return seen
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// normalizeName lowercases a column name and drops all whitespace.
func normalizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

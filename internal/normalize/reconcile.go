package normalize

import (
	"github.com/expensebook/sheetsync/internal/model"
)

// Reconciler removes spurious rows and fills the label column.
type Reconciler struct {
	anchorRoles    []model.ColumnRole
	fallbackColumn int
	strictLabel    bool
}

// NewReconciler returns a Reconciler. Rows are anchored on columns whose
// role is in anchorRoles, or on the column at fallbackColumn (zero-based)
// when no column has such a role.
func NewReconciler(anchorRoles []model.ColumnRole, fallbackColumn int, strictLabel bool) *Reconciler {
	if len(anchorRoles) == 0 {
		anchorRoles = []model.ColumnRole{model.RoleTemporal}
	}
	return &Reconciler{anchorRoles: anchorRoles, fallbackColumn: fallbackColumn, strictLabel: strictLabel}
}

// Reconciled is the outcome of reconciling one table.
type Reconciled struct {
	Table        model.Table
	Anchors      []string
	BlankDropped int
	DeadDropped  int
}

// Reconcile drops blank rows, forward-fills the label column and drops
// rows whose anchor columns are all empty. The input table is not modified.
func (r *Reconciler) Reconcile(t model.Table, roles Roles) (Reconciled, error) {
	rows := DropBlankRows(t.Rows)
	out := Reconciled{BlankDropped: len(t.Rows) - len(rows)}

	if roles.Label != "" {
		filled, leading := ForwardFill(rows, roles.Label)
		if leading > 0 && r.strictLabel {
			return out, model.NewSheetError(t.Name, "label column %q is empty in the first %d row(s)", roles.Label, leading)
		}
		rows = filled
	}

	anchors, err := r.anchors(t, roles)
	if err != nil {
		return out, err
	}

	kept := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		if hasAnyValue(row, anchors) {
			kept = append(kept, row)
		}
	}

	out.Table = t.WithRows(kept)
	out.Anchors = anchors
	out.DeadDropped = len(rows) - len(kept)
	return out, nil
}

func (r *Reconciler) anchors(t model.Table, roles Roles) ([]string, error) {
	if anchors := roles.Columns(t, r.anchorRoles...); len(anchors) > 0 {
		return anchors, nil
	}
	if r.fallbackColumn < len(t.Columns) {
		return []string{t.Columns[r.fallbackColumn]}, nil
	}
	return nil, model.NewSheetError(t.Name, "no anchor column determinable (%d columns, no %v column)", len(t.Columns), r.anchorRoles)
}

// DropBlankRows returns the rows that hold at least one value.
func DropBlankRows(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		if !row.IsBlank() {
			out = append(out, row)
		}
	}
	return out
}

// DropBlankColumns returns t without columns that are empty in every row.
func DropBlankColumns(t model.Table) model.Table {
	var cols []string
	for _, c := range t.Columns {
		if !allEmpty(t.Column(c)) {
			cols = append(cols, c)
		}
	}
	return model.Table{Name: t.Name, Columns: cols, Rows: t.Rows}
}

// ForwardFill returns copies of rows where each empty cell of col takes
// the nearest preceding non-empty value. Empty cells before the first
// value become empty text; their count is returned as leading.
func ForwardFill(rows []model.Row, col string) (filled []model.Row, leading int) {
	filled = make([]model.Row, len(rows))
	var last model.Cell
	seen := false
	for i, row := range rows {
		c := row[col]
		switch {
		case !c.IsEmpty():
			last, seen = c, true
			filled[i] = row
		case seen:
			cp := row.Clone()
			cp[col] = last
			filled[i] = cp
		default:
			cp := row.Clone()
			cp[col] = model.TextCell("")
			filled[i] = cp
			leading++
		}
	}
	return filled, leading
}

func hasAnyValue(row model.Row, cols []string) bool {
	for _, c := range cols {
		if !row[c].IsEmpty() {
			return true
		}
	}
	return false
}

func allEmpty(cells []model.Cell) bool {
	for _, c := range cells {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

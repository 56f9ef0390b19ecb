package normalize

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expensebook/sheetsync/internal/config"
	"github.com/expensebook/sheetsync/internal/id"
	"github.com/expensebook/sheetsync/internal/model"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func text(s string) model.Cell { return model.TextCell(s) }

func labels(rows []model.Row, col string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[col].Text
	}
	return out
}

func TestClassify_Roles(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name   string
		values []model.Cell
		want   model.ColumnRole
	}{
		{"品名", []model.Cell{text("洗髮精")}, model.RoleLabel},
		{"Item Name", nil, model.RoleLabel},
		{"博物館", nil, model.RoleLabel},
		{"購買日期", []model.Cell{text("2025/01/03")}, model.RoleTemporal},
		{"DATE", nil, model.RoleTemporal},
		{"when", []model.Cell{model.DateCell(day(2025, 1, 3)), {}}, model.RoleTemporal},
		{"價格", []model.Cell{text("1,200")}, model.RoleMonetary},
		{"Unit Price", nil, model.RoleMonetary},
		{"折 扣", nil, model.RoleMonetary},
		{"備註", []model.Cell{text("特價")}, model.RolePlain},
		{"notes", []model.Cell{{}, {}}, model.RolePlain},
		{"金額", []model.Cell{model.DateCell(day(2025, 1, 3))}, model.RoleTemporal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.name, tt.values))
		})
	}
}

func TestClassifyTable_FirstLabelWins(t *testing.T) {
	tbl := model.Table{
		Name:    "s",
		Columns: []string{"日期", "品名", "產品名稱", "價格"},
		Rows:    []model.Row{{"品名": text("a"), "產品名稱": text("b")}},
	}
	roles := NewClassifier(nil).ClassifyTable(tbl)

	assert.Equal(t, "品名", roles.Label)
	assert.Equal(t, model.RoleTemporal, roles.Role("日期"))
	assert.Equal(t, model.RoleLabel, roles.Role("品名"))
	assert.Equal(t, model.RolePlain, roles.Role("產品名稱"))
	assert.Equal(t, model.RoleMonetary, roles.Role("價格"))
	assert.Equal(t, model.RolePlain, roles.Role("missing"))
	assert.Equal(t, []string{"價格"}, roles.Columns(tbl, model.RoleMonetary))
}

func TestClassify_CustomRules(t *testing.T) {
	c := NewClassifier([]Rule{
		{Role: model.RoleMonetary, Keywords: []string{"Total"}},
		{Role: model.RoleTemporal, Keywords: []string{"total"}},
	})
	assert.Equal(t, model.RoleMonetary, c.Classify("Grand total", nil))
	assert.Equal(t, model.RolePlain, c.Classify("品名", nil))
}

func TestForwardFill(t *testing.T) {
	rows := []model.Row{
		{"品項": text("A")}, {"品項": text("")}, {}, {"品項": text("B")}, {"品項": text("  ")},
	}
	filled, leading := ForwardFill(rows, "品項")

	assert.Equal(t, []string{"A", "A", "A", "B", "B"}, labels(filled, "品項"))
	assert.Zero(t, leading)
	assert.Equal(t, "", rows[1]["品項"].Text, "input rows are not modified")
	_, ok := rows[2]["品項"]
	assert.False(t, ok)
}

func TestForwardFill_Leading(t *testing.T) {
	rows := []model.Row{{}, {"品項": model.NumberCell(math.NaN())}, {"品項": text("X")}, {}}
	filled, leading := ForwardFill(rows, "品項")

	assert.Equal(t, []string{"", "", "X", "X"}, labels(filled, "品項"))
	assert.Equal(t, 2, leading)
}

func expenseTable() model.Table {
	return model.Table{
		Name:    "POYA",
		Columns: []string{"品名", "價格", "購買日期", "備註"},
		Rows: []model.Row{
			{"品名": text("洗髮精"), "價格": model.NumberCell(199), "購買日期": model.DateCell(day(2025, 1, 3)), "備註": text("特價")},
			{"價格": text("50"), "備註": text("贈品")},
			{"備註": text("小計")},
			{"品名": text("牙膏"), "價格": text("1,200"), "購買日期": model.DateCell(day(2025, 1, 5))},
			{"價格": text("abc"), "購買日期": model.DateCell(day(2025, 1, 6))},
		},
	}
}

func TestReconcile_DropsRowsWithoutDate(t *testing.T) {
	tbl := expenseTable()
	roles := NewClassifier(nil).ClassifyTable(tbl)
	rec, err := NewReconciler(nil, 4, false).Reconcile(tbl, roles)
	require.NoError(t, err)

	require.Len(t, rec.Table.Rows, 3)
	assert.Equal(t, []string{"洗髮精", "牙膏", "牙膏"}, labels(rec.Table.Rows, "品名"))
	assert.Equal(t, []string{"購買日期"}, rec.Anchors)
	assert.Equal(t, 2, rec.DeadDropped)
	assert.Zero(t, rec.BlankDropped)
	assert.Len(t, tbl.Rows, 5)
	assert.True(t, tbl.Rows[4]["品名"].IsEmpty(), "input table is not modified")
}

func TestReconcile_MonetaryAnchor(t *testing.T) {
	tbl := model.Table{
		Name:    "snacks",
		Columns: []string{"品項", "金額", "備註"},
		Rows: []model.Row{
			{"品項": text("Drink"), "金額": text("50")},
			{"品項": text(""), "金額": text(""), "備註": text("see above")},
			{"品項": text("Snack"), "金額": text("30")},
			{},
		},
	}
	roles := NewClassifier(nil).ClassifyTable(tbl)
	rec, err := NewReconciler([]model.ColumnRole{model.RoleMonetary}, 4, false).Reconcile(tbl, roles)
	require.NoError(t, err)

	assert.Equal(t, []string{"Drink", "Snack"}, labels(rec.Table.Rows, "品項"))
	assert.Equal(t, 1, rec.DeadDropped)
	assert.Equal(t, 1, rec.BlankDropped)
}

func TestReconcile_FallbackColumn(t *testing.T) {
	cols := []string{"a", "b", "c", "d", "e"}
	tbl := model.Table{
		Name:    "positional",
		Columns: cols,
		Rows: []model.Row{
			{"a": text("1"), "e": text("x")},
			{"a": text("2")},
			{"a": text("3"), "e": text("y")},
		},
	}
	rec, err := NewReconciler(nil, 4, false).Reconcile(tbl, NewClassifier(nil).ClassifyTable(tbl))
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, rec.Anchors)
	assert.Len(t, rec.Table.Rows, 2)
}

func TestReconcile_NoAnchor(t *testing.T) {
	tbl := model.Table{Name: "tiny", Columns: []string{"a", "b"}, Rows: []model.Row{{"a": text("1")}}}
	_, err := NewReconciler(nil, 4, false).Reconcile(tbl, NewClassifier(nil).ClassifyTable(tbl))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSheetProcessing)
	assert.Contains(t, err.Error(), "no anchor column")

	var se *model.SheetError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "tiny", se.Sheet)
}

func TestReconcile_StrictLabel(t *testing.T) {
	tbl := model.Table{
		Name:    "s",
		Columns: []string{"品名", "日期"},
		Rows: []model.Row{
			{"日期": model.DateCell(day(2025, 1, 1))},
			{"品名": text("A"), "日期": model.DateCell(day(2025, 1, 2))},
		},
	}
	roles := NewClassifier(nil).ClassifyTable(tbl)

	rec, err := NewReconciler(nil, 4, false).Reconcile(tbl, roles)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "A"}, labels(rec.Table.Rows, "品名"))

	_, err = NewReconciler(nil, 4, true).Reconcile(tbl, roles)
	assert.ErrorIs(t, err, model.ErrSheetProcessing)
}

func TestDropBlankColumns(t *testing.T) {
	tbl := model.Table{
		Name:    "s",
		Columns: []string{"a", "Unnamed: 1", "b"},
		Rows:    []model.Row{{"a": text("1"), "Unnamed: 1": text(" ")}, {"b": text("2")}},
	}
	assert.Equal(t, []string{"a", "b"}, DropBlankColumns(tbl).Columns)
}

func TestCoerceMonetary(t *testing.T) {
	tests := []struct {
		name   string
		in     model.Cell
		want   int64
		wantOK bool
	}{
		{"thousands separator", text("1,200"), 1200, true},
		{"not a number", text("abc"), 0, false},
		{"truncated", text("1500.75"), 1500, true},
		{"negative truncates toward zero", text("-1,500.5"), -1500, true},
		{"currency", text("NT$ 2,000"), 2000, true},
		{"full width digits", text("１２３元"), 123, true},
		{"number", model.NumberCell(99.9), 99, true},
		{"infinite", model.NumberCell(math.Inf(1)), 0, false},
		{"empty", model.Cell{}, 0, true},
		{"blank text", text("  "), 0, true},
		{"NaN", model.NumberCell(math.NaN()), 0, true},
		{"date", model.DateCell(day(2025, 1, 1)), 0, false},
		{"leading point", text("$.5"), 0, true},
		{"trailing unit", text("1,200 元"), 1200, true},
		{"exponent text", text("1e5"), 0, false},
		{"letters between digits", text("12abc34"), 0, false},
		{"two numbers", text("12/34"), 0, false},
		{"text above int64", text("99999999999999999999"), 0, false},
		{"number above int64", model.NumberCell(1e20), 0, false},
		{"largest int64", text("9223372036854775807"), math.MaxInt64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceMonetary(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestCoerceTemporal(t *testing.T) {
	tests := []struct {
		name   string
		in     model.Cell
		want   string
		wantOK bool
	}{
		{"date cell", model.DateCell(time.Date(2025, 1, 3, 15, 4, 0, 0, time.UTC)), "2025-01-03", true},
		{"iso", text("2025-01-03"), "2025-01-03", true},
		{"slashes", text("2025/1/3"), "2025-01-03", true},
		{"padded slashes", text("2025/01/03"), "2025-01-03", true},
		{"cjk", text("2025年1月3日"), "2025-01-03", true},
		{"rfc3339", text("2025-01-03T10:00:00+08:00"), "2025-01-03", true},
		{"datetime", text(" 2025-01-03 10:00:00 "), "2025-01-03", true},
		{"us", text("01/03/2025"), "2025-01-03", true},
		{"full width", text("２０２５/０１/０３"), "2025-01-03", true},
		{"garbage", text("soon"), "", false},
		{"number", model.NumberCell(45000), "", false},
		{"empty", model.Cell{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceTemporal(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestCoerceText(t *testing.T) {
	assert.Equal(t, "洗髮精", CoerceText(text("洗髮精")))
	assert.Equal(t, "199", CoerceText(model.NumberCell(199)))
	assert.Equal(t, "1.5", CoerceText(model.NumberCell(1.5)))
	assert.Equal(t, "2025-01-03", CoerceText(model.DateCell(day(2025, 1, 3))))
	assert.Equal(t, "", CoerceText(model.NumberCell(math.NaN())))
	assert.Equal(t, "", CoerceText(text(" ")))
	assert.Equal(t, "", CoerceText(model.Cell{}))
}

func TestCoerce_Table(t *testing.T) {
	tbl := expenseTable()
	roles := NewClassifier(nil).ClassifyTable(tbl)
	c := Coerce(tbl, roles)

	assert.Equal(t, tbl.Columns, c.Fields)
	require.Len(t, c.Items, 5)
	assert.Equal(t, 1, c.Fallbacks, `"abc" is the only unparseable value`)

	first := c.Items[0]
	assert.Equal(t, tbl.Columns, first.Keys())
	v, _ := first.Get("價格")
	assert.Equal(t, int64(199), v)
	v, _ = first.Get("購買日期")
	assert.Equal(t, "2025-01-03", v)

	for i, item := range c.Items {
		for _, k := range item.Keys() {
			v, _ := item.Get(k)
			assert.NotNil(t, v, "item %d key %q", i, k)
		}
	}
	got, _ := c.Items[3].Get("備註")
	assert.Equal(t, "", got)
}

func fixedGenerator() *id.Generator {
	return id.NewGenerator(id.StrategyTimestamp, func() time.Time { return time.UnixMilli(1736000000000) }, nil)
}

func TestAssemble_Configured(t *testing.T) {
	catalog := config.NewCatalog([]config.Category{{Sheet: "POYA", ID: "poya", Name: "POYA", Color: "#d00278"}})
	a := NewAssembler(catalog, fixedGenerator(), nil)

	rec := a.Assemble("POYA", Coerced{Fields: []string{"品名"}})
	assert.Equal(t, "poya", rec.ID)
	assert.Equal(t, "POYA", rec.Name)
	assert.Equal(t, "#d00278", rec.Color)
	assert.NotNil(t, rec.Items)
}

func TestAssemble_Synthesized(t *testing.T) {
	a := NewAssembler(nil, fixedGenerator(), nil)

	first := a.Assemble("雜貨", Coerced{Fields: []string{"品名"}})
	second := a.Assemble("雜貨", Coerced{Fields: []string{"品名"}})

	assert.Equal(t, "雜貨", first.Name)
	assert.Regexp(t, `^1736000000000\d{3}$`, first.ID)
	assert.Regexp(t, `^#[0-9a-f]{6}$`, first.Color)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAssemble_PartialConfig(t *testing.T) {
	catalog := config.NewCatalog([]config.Category{{Sheet: "DAISO", Name: "大創"}})
	rec := NewAssembler(catalog, fixedGenerator(), nil).Assemble("DAISO", Coerced{})

	assert.Equal(t, "大創", rec.Name)
	assert.NotEmpty(t, rec.ID)
	assert.Regexp(t, `^#[0-9a-f]{6}$`, rec.Color)
}

func TestAssemble_RequiredFields(t *testing.T) {
	item := model.NewItem(2)
	item.Set("品名", "牙刷")
	a := NewAssembler(nil, fixedGenerator(), []string{"品名", "圖片檔名"})

	rec := a.Assemble("s", Coerced{Fields: []string{"品名"}, Items: []model.Item{item}})
	assert.Equal(t, []string{"品名", "圖片檔名"}, rec.Fields)
	assert.Equal(t, []string{"品名", "圖片檔名"}, rec.Items[0].Keys())
	v, ok := rec.Items[0].Get("圖片檔名")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestDisassemble(t *testing.T) {
	item := model.NewItem(4)
	item.Set("品名", "洗髮精")
	item.Set("價格", int64(199))
	item.Set("日期", "2025-01-03")
	item.Set("備註", "")
	item.Set("編號", "2025-1-3")

	tbl := Disassemble(model.CategoryRecord{
		Name:   "POYA",
		Fields: []string{"品名", "價格", "日期", "備註", "編號"},
		Items:  []model.Item{item},
	})

	assert.Equal(t, "POYA", tbl.Name)
	assert.Equal(t, []string{"品名", "價格", "日期", "備註", "編號"}, tbl.Columns)
	require.Len(t, tbl.Rows, 1)
	row := tbl.Rows[0]
	assert.Equal(t, text("洗髮精"), row["品名"])
	assert.Equal(t, model.NumberCell(199), row["價格"])
	assert.Equal(t, model.DateCell(day(2025, 1, 3)), row["日期"])
	assert.Equal(t, text("2025-1-3"), row["編號"], "only ISO dates become date cells")
	_, ok := row["備註"]
	assert.False(t, ok)
}

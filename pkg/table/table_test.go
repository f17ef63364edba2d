package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string
	Name  string
	Stock int
}

func testColumns() []Column[item] {
	return []Column[item]{
		{ID: "id", Header: "ID", Accessor: func(i item) Cell { return Text(i.ID) }},
		{ID: "name", Header: "Name", Width: "40%", Accessor: func(i item) Cell { return Text(i.Name) }},
		{ID: "stock", Header: "Stock", Accessor: func(i item) Cell { return Int(i.Stock) }},
	}
}

func testData() []item {
	return []item{
		{ID: "p1", Name: "Alesion", Stock: 8},
		{ID: "p2", Name: "Brightcream", Stock: 3},
	}
}

func TestRender_RowAndCellCounts(t *testing.T) {
	tbl := &Table[item]{Columns: testColumns()}
	g := tbl.Render(testData(), false)

	require.Len(t, g.Rows, 2)
	require.Len(t, g.Columns, 3)
	for _, row := range g.Rows {
		assert.Len(t, row.Cells, 3)
	}
}

func TestRender_PreservesOrder(t *testing.T) {
	tbl := &Table[item]{Columns: testColumns()}
	g := tbl.Render(testData(), false)

	assert.Equal(t, "ID", g.Columns[0].Header)
	assert.Equal(t, "Name", g.Columns[1].Header)
	assert.Equal(t, "Stock", g.Columns[2].Header)

	assert.Equal(t, "Alesion", string(g.Rows[0].Cells[1].HTML()))
	assert.Equal(t, "Brightcream", string(g.Rows[1].Cells[1].HTML()))
}

func TestRender_AccessorCalledOncePerCell(t *testing.T) {
	calls := 0
	tbl := &Table[item]{Columns: []Column[item]{
		{ID: "name", Header: "Name", Accessor: func(i item) Cell {
			calls++
			return Text(i.Name)
		}},
	}}
	tbl.Render(testData(), false)

	assert.Equal(t, 2, calls)
}

func TestRender_Loading_SkeletonRows(t *testing.T) {
	tbl := &Table[item]{Columns: testColumns()}
	g := tbl.Render(testData(), true)

	// Data is ignored entirely while loading.
	require.Len(t, g.Rows, DefaultSkeletonRows)
	for _, row := range g.Rows {
		assert.True(t, row.Skeleton)
		assert.Len(t, row.Cells, 3)
		assert.Empty(t, row.Href)
	}
}

func TestRender_Loading_ConfiguredSkeletonCount(t *testing.T) {
	tbl := &Table[item]{Columns: testColumns(), SkeletonRows: 5}
	g := tbl.Render(nil, true)

	assert.Len(t, g.Rows, 5)
}

func TestRender_RowStyleCondition(t *testing.T) {
	tbl := &Table[item]{
		Columns: testColumns(),
		RowStyle: &RowStyleCondition[item]{
			Condition: func(i item) bool { return i.Stock <= 5 },
			Class:     "low-stock",
		},
	}
	g := tbl.Render(testData(), false)

	assert.Empty(t, g.Rows[0].Class)
	assert.Equal(t, "low-stock", g.Rows[1].Class)
}

func TestRender_RowHref(t *testing.T) {
	tbl := &Table[item]{
		Columns: testColumns(),
		RowHref: func(i item) string { return "/items/" + i.ID },
	}
	g := tbl.Render(testData(), false)

	assert.Equal(t, "/items/p1", g.Rows[0].Href)
	assert.Equal(t, "/items/p2", g.Rows[1].Href)
}

func TestRender_NoHandlerNoAffordance(t *testing.T) {
	tbl := &Table[item]{Columns: testColumns()}
	g := tbl.Render(testData(), false)

	for _, row := range g.Rows {
		assert.Empty(t, row.Href)
	}
	assert.NotContains(t, string(g.HTML()), "data-href")
}

func TestGridHTML(t *testing.T) {
	tbl := &Table[item]{
		Columns: testColumns(),
		RowHref: func(i item) string { return "/items/" + i.ID },
		RowStyle: &RowStyleCondition[item]{
			Condition: func(i item) bool { return i.Stock <= 5 },
			Class:     "low-stock",
		},
	}
	html := string(tbl.Render(testData(), false).HTML())

	assert.Equal(t, 3, strings.Count(html, "<th"))
	assert.Equal(t, 2, strings.Count(html, "<tr data-href")+strings.Count(html, `<tr class="low-stock" data-href`))
	assert.Contains(t, html, `style="width: 40%"`)
	assert.Contains(t, html, `data-href="/items/p1"`)
	assert.Contains(t, html, `class="low-stock"`)
}

func TestGridHTML_EscapesContent(t *testing.T) {
	tbl := &Table[item]{Columns: []Column[item]{
		{ID: "name", Header: "Name", Accessor: func(i item) Cell { return Text(i.Name) }},
	}}
	g := tbl.Render([]item{{Name: `<script>alert("x")</script>`}}, false)

	html := string(g.HTML())
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

// Package table renders arbitrary record slices into tabular grids.
//
// The package is fully generic: it knows nothing about the records it
// renders. All semantics live in the caller-supplied column descriptors,
// whose accessors project a record into a displayable cell. A Table can be
// rendered into a structured Grid (for inspection and testing) and from
// there into HTML.
package table

import (
	"html/template"
	"strconv"
)

// DefaultSkeletonRows is the number of placeholder rows rendered while a
// table is in the loading state and no explicit count is configured.
const DefaultSkeletonRows = 20

// Cell is a single renderable table cell. Implementations must be pure
// value types: rendering a cell must not mutate the record it was derived
// from.
type Cell interface {
	// HTML returns the cell content as safe HTML.
	HTML() template.HTML
}

// Column describes one column of a table: an identifier, a display header,
// an optional width hint, and an accessor projecting a record into a cell.
//
// ID is the column's identity and must be unique within one table instance.
// It is kept separate from Header so that two columns may share a display
// label without colliding. Uniqueness is a caller precondition and is not
// checked.
//
// Accessors must be pure and side-effect-free. Render invokes each accessor
// exactly once per (row, column) pair.
type Column[T any] struct {
	ID       string
	Header   string
	Width    string
	Accessor func(T) Cell
}

// RowStyleCondition attaches a style class to the rows whose record matches
// the predicate. The predicate is re-evaluated against every record on every
// render; results are never cached.
type RowStyleCondition[T any] struct {
	Condition func(T) bool
	Class     string
}

// Table renders records of type T according to its column descriptors.
type Table[T any] struct {
	Columns []Column[T]

	// RowStyle, when non-nil, is evaluated per row; matching rows carry
	// RowStyle.Class. Rows are styled independently of each other.
	RowStyle *RowStyleCondition[T]

	// RowHref, when non-nil, makes every body row (never the header) a
	// navigation target: the returned URL is attached to the row. When nil,
	// rows carry no interactive affordance at all.
	RowHref func(T) string

	// SkeletonRows overrides the number of placeholder rows rendered while
	// loading. Zero means DefaultSkeletonRows.
	SkeletonRows int
}

// Grid is the structured result of rendering a table: one header cell per
// column plus one row per record, in the orders given. It carries no
// reference to the source records.
type Grid struct {
	Columns []GridColumn
	Rows    []Row
}

// GridColumn is a rendered header cell.
type GridColumn struct {
	ID     string
	Header string
	Width  string
}

// Row is one rendered body row.
type Row struct {
	Cells []Cell
	Class string
	Href  string

	// Skeleton marks a non-interactive loading placeholder row.
	Skeleton bool
}

// Render produces a Grid from data. The slice order is the display order;
// no sorting is applied. When loading is true, data is ignored entirely and
// a fixed number of skeleton rows is produced instead, every cell a
// placeholder regardless of the column definitions.
func (t *Table[T]) Render(data []T, loading bool) *Grid {
	g := &Grid{Columns: make([]GridColumn, len(t.Columns))}
	for i, c := range t.Columns {
		g.Columns[i] = GridColumn{ID: c.ID, Header: c.Header, Width: c.Width}
	}

	if loading {
		n := t.SkeletonRows
		if n <= 0 {
			n = DefaultSkeletonRows
		}
		g.Rows = make([]Row, n)
		for i := range g.Rows {
			cells := make([]Cell, len(t.Columns))
			for j := range cells {
				cells[j] = skeletonCell{}
			}
			g.Rows[i] = Row{Cells: cells, Skeleton: true}
		}
		return g
	}

	g.Rows = make([]Row, len(data))
	for i, record := range data {
		row := Row{Cells: make([]Cell, len(t.Columns))}
		for j, c := range t.Columns {
			row.Cells[j] = c.Accessor(record)
		}
		if t.RowStyle != nil && t.RowStyle.Condition(record) {
			row.Class = t.RowStyle.Class
		}
		if t.RowHref != nil {
			row.Href = t.RowHref(record)
		}
		g.Rows[i] = row
	}
	return g
}

// Text returns a cell holding escaped plain text.
func Text(s string) Cell { return textCell(s) }

// Int returns a cell holding a decimal integer.
func Int(n int) Cell { return textCell(strconv.Itoa(n)) }

// HTML returns a cell holding pre-rendered HTML. The caller is responsible
// for its safety.
func HTML(h template.HTML) Cell { return htmlCell(h) }

type textCell string

func (c textCell) HTML() template.HTML {
	return template.HTML(template.HTMLEscapeString(string(c))) //nolint:gosec // escaped above
}

type htmlCell template.HTML

func (c htmlCell) HTML() template.HTML { return template.HTML(c) }

type skeletonCell struct{}

func (skeletonCell) HTML() template.HTML { return "&nbsp;" }

package table

import (
	"html/template"
	"strings"
)

// HTML serializes the grid as a <table> element. Header cells carry width
// hints as inline styles; body rows carry their style class, and clickable
// rows a data-href attribute for the page script to dispatch on. Skeleton
// rows are marked with a skeleton cell class and never made clickable.
func (g *Grid) HTML() template.HTML {
	var b strings.Builder
	b.WriteString(`<table class="table"><thead><tr>`)
	for _, c := range g.Columns {
		b.WriteString(`<th`)
		if c.Width != "" {
			b.WriteString(` style="width: ` + template.HTMLEscapeString(c.Width) + `"`)
		}
		b.WriteString(`>`)
		b.WriteString(template.HTMLEscapeString(c.Header))
		b.WriteString(`</th>`)
	}
	b.WriteString(`</tr></thead><tbody>`)

	for _, row := range g.Rows {
		b.WriteString(`<tr`)
		class := row.Class
		if row.Skeleton {
			class = strings.TrimSpace(class + " skeleton")
		}
		if class != "" {
			b.WriteString(` class="` + template.HTMLEscapeString(class) + `"`)
		}
		if row.Href != "" && !row.Skeleton {
			b.WriteString(` data-href="` + template.HTMLEscapeString(row.Href) + `"`)
		}
		b.WriteString(`>`)
		for _, cell := range row.Cells {
			b.WriteString(`<td>`)
			b.WriteString(string(cell.HTML()))
			b.WriteString(`</td>`)
		}
		b.WriteString(`</tr>`)
	}

	b.WriteString(`</tbody></table>`)
	return template.HTML(b.String()) //nolint:gosec // cell content is escaped or caller-vouched
}

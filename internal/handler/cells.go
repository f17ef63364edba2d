package handler

import (
	"fmt"
	"html/template"
	"net/url"

	"github.com/olienttech/portal/pkg/table"
)

// quantityPrefix namespaces the per-product quantity fields on the shop
// order form; the product ID follows the underscore.
const quantityPrefix = "order_"

// quantityInput renders the order-quantity field for one product row. The
// max attribute mirrors the stock bound the draft builder enforces.
func quantityInput(productID string, stock int) table.Cell {
	return table.HTML(template.HTML(fmt.Sprintf(
		`<input type="number" name="%s%s" min="0" max="%d" value="0">`,
		quantityPrefix, template.HTMLEscapeString(productID), stock,
	)))
}

// stockEditor renders the inline stock-update form for one product row on
// the manufacturer's product list.
func stockEditor(productID string, stock int) table.Cell {
	id := template.HTMLEscapeString(url.PathEscape(productID))
	return table.HTML(template.HTML(fmt.Sprintf(
		`<form method="post" action="/manufacturer/products/%s/stock">`+
			`<input type="number" name="stock" min="0" value="%d" required> `+
			`<button type="submit" class="secondary">Update</button></form>`,
		id, stock,
	)))
}

// checkmark renders the approval marker on order lists.
func checkmark(approved bool) table.Cell {
	if approved {
		return table.Text("approved")
	}
	return table.Text("pending")
}

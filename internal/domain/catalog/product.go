// Package catalog holds the handled-product reference model shared by the
// shop and manufacturer flows.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category is immutable reference data attached to products.
type Category struct {
	ID   string
	Name string
}

// Product is a manufacturer-owned catalog item. Stock is mutated only by
// the manufacturer stock-update flow; the shop-facing order flow never
// touches it directly.
type Product struct {
	ID          string
	Name        string
	Description string
	Categories  []Category
	Stock       int
	Price       decimal.Decimal

	// OrderQuantity is the cumulative number of units ordered so far,
	// reported by the manufacturer-side catalog listing.
	OrderQuantity int
}

// DisplayName reports the name used for search matching.
func (p Product) DisplayName() string { return p.Name }

// CategoryNames joins the product's category names for display.
func (p Product) CategoryNames() string {
	names := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// Manufacturer is a partner a shop can order from.
type Manufacturer struct {
	ID          string
	Name        string
	Description string
}

// DisplayName reports the name used for search matching.
func (m Manufacturer) DisplayName() string { return m.Name }

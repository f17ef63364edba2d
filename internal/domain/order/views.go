package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/olienttech/portal/internal/domain/catalog"
)

// Party identifies the shop or manufacturer side of an order.
type Party struct {
	ID   string
	Name string
}

// Summary is the server-owned order record as listed for either party.
// It is read-only from the portal's perspective.
type Summary struct {
	ID           string
	Shop         Party
	Manufacturer Party
	TotalPrice   decimal.Decimal
	OrderAt      time.Time
	Approved     bool
}

// Detail is one order with its line items, as shown on the order page.
type Detail struct {
	ID         string
	Shop       Party
	TotalPrice decimal.Decimal
	OrderAt    time.Time
	Approved   bool
	Items      []DetailItem
}

// DetailItem is one ordered line joined with its product.
type DetailItem struct {
	Product  catalog.Product
	Quantity int
}

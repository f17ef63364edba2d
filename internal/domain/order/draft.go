package order

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/olienttech/portal/internal/domain/catalog"
)

// Sentinel errors for draft construction.
var (
	// ErrNoSelection means every submitted quantity was zero or blank. It is
	// a notice to the user, not a failure of the order flow.
	ErrNoSelection = errors.New("no products selected")
)

// StockExceededError indicates a requested quantity above the product's
// current stock. Quantities are rejected outright, never clamped.
type StockExceededError struct {
	ProductID string
	Stock     int
	Quantity  int
}

func (e *StockExceededError) Error() string {
	return "quantity " + strconv.Itoa(e.Quantity) + " exceeds stock " +
		strconv.Itoa(e.Stock) + " for product " + e.ProductID
}

// Line is one draft order line. Invariant: Quantity > 0; zero-quantity
// lines are dropped at construction, not retained.
type Line struct {
	ProductID string
	Quantity  int
}

// Draft is an unsent candidate order held between form submission and
// confirmation. It is built fresh on every form submit, never mutated
// incrementally. Invariant: Lines is non-empty.
type Draft struct {
	ShopID         string
	ManufacturerID string
	Lines          []Line
}

// BuildDraft constructs a draft from raw per-product quantity input, keyed
// by product ID. Values are coerced to integers; non-numeric or missing
// values count as zero. Lines with quantity <= 0 are dropped. A quantity
// above the product's stock fails with StockExceededError. An input that
// yields no lines at all fails with ErrNoSelection.
func BuildDraft(shopID, manufacturerID string, products []catalog.Product, quantities map[string]string) (*Draft, error) {
	lines := make([]Line, 0, len(products))
	for _, p := range products {
		qty := coerceQuantity(quantities[p.ID])
		if qty <= 0 {
			continue
		}
		if qty > p.Stock {
			return nil, &StockExceededError{ProductID: p.ID, Stock: p.Stock, Quantity: qty}
		}
		lines = append(lines, Line{ProductID: p.ID, Quantity: qty})
	}
	if len(lines) == 0 {
		return nil, ErrNoSelection
	}
	return &Draft{
		ShopID:         shopID,
		ManufacturerID: manufacturerID,
		Lines:          lines,
	}, nil
}

// coerceQuantity parses a raw form value. Anything that is not a plain
// integer counts as zero.
func coerceQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/olienttech/portal/internal/domain/catalog"
	"github.com/olienttech/portal/internal/domain/order"
	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/pkg/search"
	"github.com/olienttech/portal/pkg/table"
)

// LowStockThreshold marks product rows whose stock has run down far enough
// to need attention.
const LowStockThreshold = 5

// manufacturerProducts lists the products this manufacturer handles, with
// an inline stock editor per row. The ?q parameter filters by name prefix;
// the page's search box navigates here after the debounce window.
func (h *Handler) manufacturerProducts(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	query := r.URL.Query().Get("q")

	products, err := h.upstream.ManufacturerProducts(r.Context(), sess.Token, sess.PartyID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	filtered := search.Prefix(products, query)

	t := &table.Table[catalog.Product]{
		Columns: []table.Column[catalog.Product]{
			{ID: "id", Header: "ID", Width: "25%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.ID) }},
			{ID: "name", Header: "Name", Width: "20%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.Name) }},
			{ID: "description", Header: "Description", Width: "25%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.Description) }},
			{ID: "categories", Header: "Categories", Width: "10%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.CategoryNames()) }},
			{ID: "price", Header: "Unit price", Width: "5%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.Price.StringFixed(2)) }},
			{ID: "ordered", Header: "Ordered", Width: "5%", Accessor: func(p catalog.Product) table.Cell { return table.Int(p.OrderQuantity) }},
			{ID: "stock", Header: "Stock", Width: "10%", Accessor: func(p catalog.Product) table.Cell { return stockEditor(p.ID, p.Stock) }},
		},
		RowStyle: &table.RowStyleCondition[catalog.Product]{
			Condition: func(p catalog.Product) bool { return p.Stock <= LowStockThreshold },
			Class:     "low-stock",
		},
	}

	h.render(w, r, http.StatusOK, "manufacturer_products", &manufacturerProductsPage{
		Query:          query,
		Grid:           t.Render(filtered, false),
		DebounceMillis: int(search.DefaultWindow / time.Millisecond),
	})
}

// updateStock forwards a stock change for one product to the upstream API.
func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	productID := r.PathValue("productID")

	if err := r.ParseForm(); err != nil {
		setFlash(w, FlashError, "Malformed form submission.")
		http.Redirect(w, r, "/manufacturer/products", http.StatusSeeOther)
		return
	}
	stock, err := strconv.Atoi(r.PostFormValue("stock"))
	if err != nil || stock < 0 {
		setFlash(w, FlashError, "Stock must be a non-negative number.")
		http.Redirect(w, r, "/manufacturer/products", http.StatusSeeOther)
		return
	}

	if err := h.upstream.UpdateStock(r.Context(), sess.Token, sess.PartyID, productID, stock); err != nil {
		setFlash(w, FlashError, "Failed to update the stock for "+productID+".")
		http.Redirect(w, r, "/manufacturer/products", http.StatusSeeOther)
		return
	}

	setFlash(w, FlashNotice, "Stock updated.")
	http.Redirect(w, r, "/manufacturer/products", http.StatusSeeOther)
}

// manufacturerOrders lists incoming orders. Clicking a row opens the order
// detail page.
func (h *Handler) manufacturerOrders(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	orders, err := h.upstream.ManufacturerOrders(r.Context(), sess.Token, sess.PartyID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	t := &table.Table[order.Summary]{
		Columns: []table.Column[order.Summary]{
			{ID: "id", Header: "ID", Width: "25%", Accessor: func(o order.Summary) table.Cell { return table.Text(o.ID) }},
			{ID: "shop", Header: "Shop", Width: "25%", Accessor: func(o order.Summary) table.Cell { return table.Text(o.Shop.Name) }},
			{ID: "total", Header: "Total", Width: "15%", Accessor: func(o order.Summary) table.Cell { return table.Text(o.TotalPrice.StringFixed(2)) }},
			{ID: "ordered-at", Header: "Ordered at", Width: "20%", Accessor: func(o order.Summary) table.Cell { return table.Text(o.OrderAt.Local().Format("2006-01-02 15:04")) }},
			{ID: "status", Header: "Status", Width: "15%", Accessor: func(o order.Summary) table.Cell { return checkmark(o.Approved) }},
		},
		RowHref: func(o order.Summary) string {
			return "/manufacturer/orders/" + url.PathEscape(o.ID)
		},
	}

	h.render(w, r, http.StatusOK, "orders", &ordersPage{Grid: t.Render(orders, false)})
}

// manufacturerOrder shows one order with its line items.
func (h *Handler) manufacturerOrder(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	orderID := r.PathValue("orderID")

	detail, err := h.upstream.Order(r.Context(), sess.Token, sess.PartyID, orderID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	t := &table.Table[order.DetailItem]{
		Columns: []table.Column[order.DetailItem]{
			{ID: "id", Header: "ID", Width: "25%", Accessor: func(it order.DetailItem) table.Cell { return table.Text(it.Product.ID) }},
			{ID: "name", Header: "Name", Width: "30%", Accessor: func(it order.DetailItem) table.Cell { return table.Text(it.Product.Name) }},
			{ID: "price", Header: "Unit price", Width: "15%", Accessor: func(it order.DetailItem) table.Cell { return table.Text(it.Product.Price.StringFixed(2)) }},
			{ID: "quantity", Header: "Quantity", Width: "15%", Accessor: func(it order.DetailItem) table.Cell { return table.Int(it.Quantity) }},
			{ID: "subtotal", Header: "Subtotal", Width: "15%", Accessor: func(it order.DetailItem) table.Cell {
				return table.Text(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).StringFixed(2))
			}},
		},
	}

	h.render(w, r, http.StatusOK, "order_detail", &orderDetailPage{
		Order: detail,
		Grid:  t.Render(detail.Items, false),
	})
}

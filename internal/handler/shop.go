package handler

import (
	"net/http"
	"net/url"

	"github.com/olienttech/portal/internal/domain/catalog"
	"github.com/olienttech/portal/internal/domain/order"
	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/pkg/table"
)

// shopManufacturers lists the shop's partner manufacturers. Clicking a row
// opens that manufacturer's catalog.
func (h *Handler) shopManufacturers(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	manufacturers, err := h.upstream.PartnerManufacturers(r.Context(), sess.Token, sess.PartyID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	t := &table.Table[catalog.Manufacturer]{
		Columns: []table.Column[catalog.Manufacturer]{
			{ID: "id", Header: "ID", Width: "25%", Accessor: func(m catalog.Manufacturer) table.Cell { return table.Text(m.ID) }},
			{ID: "name", Header: "Name", Width: "25%", Accessor: func(m catalog.Manufacturer) table.Cell { return table.Text(m.Name) }},
			{ID: "description", Header: "Description", Width: "50%", Accessor: func(m catalog.Manufacturer) table.Cell { return table.Text(m.Description) }},
		},
		RowHref: func(m catalog.Manufacturer) string {
			return "/shop/manufacturers/" + url.PathEscape(m.ID) + "/products"
		},
	}

	h.render(w, r, http.StatusOK, "shop_manufacturers", &shopManufacturersPage{
		Grid: t.Render(manufacturers, false),
	})
}

// shopProducts shows one manufacturer's catalog with a quantity field per
// row. A fetch failure notifies the user and sends them back to the
// manufacturer list after a short delay.
func (h *Handler) shopProducts(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	manufacturerID := r.PathValue("manufacturerID")

	entry := h.store.get(sess, manufacturerID)
	products, err := entry.loader.Load(r.Context(), catalog.Key{
		ShopID:         sess.PartyID,
		ManufacturerID: manufacturerID,
		Token:          sess.Token,
	})
	if err != nil {
		h.render(w, r, http.StatusBadGateway, "catalog_error", &catalogErrorPage{
			RedirectSeconds: CatalogErrorRedirectSeconds,
			RedirectURL:     "/shop/manufacturers",
		})
		return
	}
	entry.composer.SetProducts(products)

	manufacturer := catalog.Manufacturer{ID: manufacturerID, Name: manufacturerID}
	if ms, err := h.upstream.PartnerManufacturers(r.Context(), sess.Token, sess.PartyID); err == nil {
		for _, m := range ms {
			if m.ID == manufacturerID {
				manufacturer = m
				break
			}
		}
	}

	t := &table.Table[catalog.Product]{
		Columns: []table.Column[catalog.Product]{
			{ID: "id", Header: "ID", Width: "20%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.ID) }},
			{ID: "name", Header: "Name", Width: "20%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.Name) }},
			{ID: "description", Header: "Description", Width: "30%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.Description) }},
			{ID: "categories", Header: "Categories", Width: "15%", Accessor: func(p catalog.Product) table.Cell { return table.Text(p.CategoryNames()) }},
			{ID: "stock", Header: "Stock", Width: "5%", Accessor: func(p catalog.Product) table.Cell { return table.Int(p.Stock) }},
			{ID: "quantity", Header: "Quantity", Width: "10%", Accessor: func(p catalog.Product) table.Cell { return quantityInput(p.ID, p.Stock) }},
		},
	}

	base := "/shop/manufacturers/" + url.PathEscape(manufacturerID)
	h.render(w, r, http.StatusOK, "shop_products", &shopProductsPage{
		Manufacturer: manufacturer,
		Grid:         t.Render(products, false),
		OrderPath:    base + "/order",
	})
}

// shopOrders lists the orders this shop has placed, including whether the
// manufacturer has approved them yet.
func (h *Handler) shopOrders(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	orders, err := h.upstream.ShopOrders(r.Context(), sess.Token, sess.PartyID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	t := &table.Table[order.Summary]{
		Columns: []table.Column[order.Summary]{
			{ID: "id", Header: "ID", Width: "25%", Accessor: func(o order.Summary) table.Cell { return table.Text(o.ID) }},
			{ID: "manufacturer", Header: "Manufacturer", Width: "25%", Accessor: func(o order.Summary) table.Cell { return table.Text(o.Manufacturer.Name) }},
			{ID: "total", Header: "Total", Width: "15%", Accessor: func(o order.Summary) table.Cell { return table.Text(o.TotalPrice.StringFixed(2)) }},
			{ID: "ordered-at", Header: "Ordered at", Width: "20%", Accessor: func(o order.Summary) table.Cell { return table.Text(o.OrderAt.Local().Format("2006-01-02 15:04")) }},
			{ID: "status", Header: "Status", Width: "15%", Accessor: func(o order.Summary) table.Cell { return checkmark(o.Approved) }},
		},
	}

	h.render(w, r, http.StatusOK, "orders", &ordersPage{Grid: t.Render(orders, false)})
}

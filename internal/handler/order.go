package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/olienttech/portal/internal/domain/order"
	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/pkg/table"
)

// Page redirect delays, in seconds. The success page returns to the product
// list quickly; the catalog-failure page lingers a moment longer so the
// notification can be read.
const (
	SuccessRedirectSeconds      = 1
	CatalogErrorRedirectSeconds = 2
)

// buildOrder reads the submitted quantities and builds a draft. Rows left
// at zero (or blank, or unparseable) are skipped; a form with no positive
// quantity shows a notice instead of the confirmation page.
func (h *Handler) buildOrder(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	manufacturerID := r.PathValue("manufacturerID")
	base := "/shop/manufacturers/" + url.PathEscape(manufacturerID)

	if err := r.ParseForm(); err != nil {
		setFlash(w, FlashError, "Malformed form submission.")
		http.Redirect(w, r, base+"/products", http.StatusSeeOther)
		return
	}
	quantities := make(map[string]string)
	for key := range r.PostForm {
		if id, ok := strings.CutPrefix(key, quantityPrefix); ok {
			quantities[id] = r.PostForm.Get(key)
		}
	}

	entry := h.store.get(sess, manufacturerID)
	if err := entry.composer.BuildDraft(quantities); err != nil {
		var stockErr *order.StockExceededError
		switch {
		case errors.Is(err, order.ErrNoSelection):
			setFlash(w, FlashNotice, "No products selected.")
		case errors.As(err, &stockErr):
			setFlash(w, FlashError, "Quantity for "+stockErr.ProductID+" exceeds the available stock.")
		default:
			setFlash(w, FlashError, "Could not prepare the order. Please try again.")
		}
		http.Redirect(w, r, base+"/products", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, base+"/order/confirm", http.StatusSeeOther)
}

// confirmOrder shows the drafted lines for review. Nothing has been sent
// yet; submission happens from this page.
func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	manufacturerID := r.PathValue("manufacturerID")
	base := "/shop/manufacturers/" + url.PathEscape(manufacturerID)

	entry := h.store.get(sess, manufacturerID)
	items, err := entry.composer.Confirm()
	if err != nil {
		// No draft to confirm (expired session, direct navigation): start over.
		http.Redirect(w, r, base+"/products", http.StatusSeeOther)
		return
	}

	t := &table.Table[order.LineItem]{
		Columns: []table.Column[order.LineItem]{
			{ID: "id", Header: "ID", Width: "20%", Accessor: func(li order.LineItem) table.Cell { return table.Text(li.Product.ID) }},
			{ID: "name", Header: "Name", Width: "25%", Accessor: func(li order.LineItem) table.Cell { return table.Text(li.Product.Name) }},
			{ID: "description", Header: "Description", Width: "30%", Accessor: func(li order.LineItem) table.Cell { return table.Text(li.Product.Description) }},
			{ID: "categories", Header: "Categories", Width: "15%", Accessor: func(li order.LineItem) table.Cell { return table.Text(li.Product.CategoryNames()) }},
			{ID: "quantity", Header: "Quantity", Width: "10%", Accessor: func(li order.LineItem) table.Cell { return table.Int(li.Quantity) }},
		},
	}

	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
	}

	submitError := ""
	if err := entry.composer.Err(); err != nil {
		submitError = "Order submission failed. You can retry or cancel."
	}

	h.render(w, r, http.StatusOK, "shop_confirm", &confirmPage{
		Manufacturer: manufacturerID,
		Grid:         t.Render(items, false),
		Total:        total,
		SubmitError:  submitError,
		Submitting:   entry.composer.State() == order.StateSubmitting,
		BasePath:     base,
	})
}

// cancelOrder discards the draft and returns to the product list. While a
// submission is in flight the cancel is rejected, matching the disabled
// button on the confirmation page.
func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	manufacturerID := r.PathValue("manufacturerID")
	base := "/shop/manufacturers/" + url.PathEscape(manufacturerID)

	entry := h.store.get(sess, manufacturerID)
	if err := entry.composer.Cancel(); err != nil {
		if errors.Is(err, order.ErrSubmissionInFlight) {
			setFlash(w, FlashError, "The order is being submitted and can no longer be cancelled.")
			http.Redirect(w, r, base+"/order/confirm", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, base+"/products", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, base+"/products", http.StatusSeeOther)
}

// submitOrder sends the confirmed draft upstream. Failure returns to the
// confirmation page with the draft intact so the user can retry; a
// duplicate submit while one is outstanding is ignored.
func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	manufacturerID := r.PathValue("manufacturerID")
	base := "/shop/manufacturers/" + url.PathEscape(manufacturerID)

	entry := h.store.get(sess, manufacturerID)
	if err := entry.composer.Submit(r.Context()); err != nil {
		if errors.Is(err, order.ErrSubmissionInFlight) {
			http.Redirect(w, r, base+"/order/confirm", http.StatusSeeOther)
			return
		}
		var transitionErr *order.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			http.Redirect(w, r, base+"/products", http.StatusSeeOther)
			return
		}
		setFlash(w, FlashError, "Order submission failed. Please try again.")
		http.Redirect(w, r, base+"/order/confirm", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, base+"/order/complete", http.StatusSeeOther)
}

// orderComplete confirms the placed order and returns to the product list
// after a short delay. The composer is dropped so the next visit starts a
// fresh composition. Only a finished submission gets the success page: a
// stray visit must not throw away a composition that was never sent.
func (h *Handler) orderComplete(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	manufacturerID := r.PathValue("manufacturerID")
	base := "/shop/manufacturers/" + url.PathEscape(manufacturerID)

	entry := h.store.peek(sess, manufacturerID)
	if entry == nil || entry.composer.State() != order.StateSucceeded {
		http.Redirect(w, r, base+"/products", http.StatusSeeOther)
		return
	}
	h.store.drop(sess, manufacturerID)

	h.render(w, r, http.StatusOK, "shop_complete", &completePage{
		RedirectSeconds: SuccessRedirectSeconds,
		RedirectURL:     base + "/products",
	})
}

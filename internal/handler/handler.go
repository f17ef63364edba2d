// Package handler serves the portal's HTML pages. Every page is rendered
// server-side from the upstream API's responses; the handler holds no
// domain state of its own beyond per-session order composers.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/olienttech/portal/internal/authz"
	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/internal/upstream"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ComposerTTL bounds how long an idle order composition is kept before
	// the session's composer is discarded.
	ComposerTTL time.Duration
}

// Handler renders the portal pages and forwards mutations to the upstream
// ordering API with the session's bearer token.
type Handler struct {
	upstream *upstream.Client
	verifier *session.Verifier
	enforcer *authz.Enforcer
	store    *composerStore
}

// New constructs a Handler with the required dependencies.
func New(cfg Config, client *upstream.Client, verifier *session.Verifier, enforcer *authz.Enforcer) *Handler {
	ttl := cfg.ComposerTTL
	if ttl <= 0 {
		ttl = DefaultComposerTTL
	}
	return &Handler{
		upstream: client,
		verifier: verifier,
		enforcer: enforcer,
		store:    newComposerStore(client, ttl),
	}
}

// StartCleanup launches the composer store's background expiry loop. It
// stops when ctx is cancelled.
func (h *Handler) StartCleanup(ctx context.Context) {
	h.store.startCleanup(ctx)
}

// Routes builds the portal's route table. Signin pages are public; the
// /shop and /manufacturer subtrees require a verified session whose role
// the policy allows.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.home)
	mux.HandleFunc("GET /signin/shop", h.signinShopPage)
	mux.HandleFunc("POST /signin/shop", h.signinShop)
	mux.HandleFunc("GET /signin/manufacturer", h.signinManufacturerPage)
	mux.HandleFunc("POST /signin/manufacturer", h.signinManufacturer)
	mux.HandleFunc("POST /signout", h.signout)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /shop/manufacturers", h.shopManufacturers)
	protected.HandleFunc("GET /shop/manufacturers/{manufacturerID}/products", h.shopProducts)
	protected.HandleFunc("POST /shop/manufacturers/{manufacturerID}/order", h.buildOrder)
	protected.HandleFunc("GET /shop/manufacturers/{manufacturerID}/order/confirm", h.confirmOrder)
	protected.HandleFunc("POST /shop/manufacturers/{manufacturerID}/order/cancel", h.cancelOrder)
	protected.HandleFunc("POST /shop/manufacturers/{manufacturerID}/order/submit", h.submitOrder)
	protected.HandleFunc("GET /shop/manufacturers/{manufacturerID}/order/complete", h.orderComplete)
	protected.HandleFunc("GET /shop/orders", h.shopOrders)
	protected.HandleFunc("GET /manufacturer/products", h.manufacturerProducts)
	protected.HandleFunc("POST /manufacturer/products/{productID}/stock", h.updateStock)
	protected.HandleFunc("GET /manufacturer/orders", h.manufacturerOrders)
	protected.HandleFunc("GET /manufacturer/orders/{orderID}", h.manufacturerOrder)

	authed := h.authenticate(protected)
	mux.Handle("/shop/", authed)
	mux.Handle("/manufacturer/", authed)

	return mux
}

// home points visitors at the signin page for their party.
func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home", &homePage{})
}

// render executes the named page template. Rendering failures are logged
// and reported as a bare 500 since the page itself cannot be trusted.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	data.setSession(session.FromContext(r.Context()))
	if f := takeFlash(w, r); f != nil {
		data.setFlash(f)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.render(w, page, data); err != nil {
		zctx.From(r.Context()).Error("render page",
			zap.String("page", page),
			zap.Error(err))
	}
}

// serverError logs err and renders the generic error page.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("handler error", zap.Error(err))
	h.render(w, r, http.StatusInternalServerError, "error", &errorPage{
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong. Please try again.",
	})
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/internal/upstream"
)

// sessionCookieTTL matches the upstream token lifetime. An expired token
// fails verification regardless, so erring long here is harmless.
const sessionCookieTTL = 24 * time.Hour

// authenticate verifies the session cookie and checks the policy before
// letting a request into the protected subtrees. Unauthenticated requests
// are redirected to the matching signin page; authenticated requests for
// the other party's pages get a 403.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.verifier.FromRequest(r)
		if err != nil {
			setFlash(w, FlashError, "Please sign in.")
			http.Redirect(w, r, signinPath(r.URL.Path), http.StatusSeeOther)
			return
		}

		allowed, err := h.enforcer.Allow(sess.Role, r.URL.Path, r.Method)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		if !allowed {
			h.render(w, r, http.StatusForbidden, "error", &errorPage{
				Status:  http.StatusForbidden,
				Message: "You do not have access to this page.",
			})
			return
		}

		ctx := session.NewContext(r.Context(), sess)
		ctx = zctx.With(ctx, zap.String("party", sess.PartyID), zap.String("role", sess.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// signinPath picks the signin page matching the subtree being visited.
func signinPath(path string) string {
	if strings.HasPrefix(path, "/manufacturer/") {
		return "/signin/manufacturer"
	}
	return "/signin/shop"
}

func (h *Handler) signinShopPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signin", &signinPage{Role: session.RoleShop})
}

func (h *Handler) signinManufacturerPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signin", &signinPage{Role: session.RoleManufacturer})
}

// signinShop proxies shop credentials to the upstream API and stores the
// issued token in the session cookie.
func (h *Handler) signinShop(w http.ResponseWriter, r *http.Request) {
	h.signin(w, r, session.RoleShop, h.upstream.SigninShop, "/shop/manufacturers")
}

func (h *Handler) signinManufacturer(w http.ResponseWriter, r *http.Request) {
	h.signin(w, r, session.RoleManufacturer, h.upstream.SigninManufacturer, "/manufacturer/products")
}

type signinFunc func(ctx context.Context, id, password string) (*upstream.SigninResult, error)

func (h *Handler) signin(w http.ResponseWriter, r *http.Request, role string, fn signinFunc, landing string) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, "signin", &signinPage{Role: role, Error: "Malformed form submission."})
		return
	}
	id := strings.TrimSpace(r.PostFormValue("id"))
	password := r.PostFormValue("password")
	if id == "" || password == "" {
		h.render(w, r, http.StatusBadRequest, "signin", &signinPage{Role: role, Error: "ID and password are required."})
		return
	}

	result, err := fn(r.Context(), id, password)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) && statusErr.Code < http.StatusInternalServerError {
			h.render(w, r, http.StatusUnauthorized, "signin", &signinPage{Role: role, Error: "Sign in failed. Check your ID and password."})
			return
		}
		h.serverError(w, r, err)
		return
	}

	session.SetCookie(w, result.Token, sessionCookieTTL)
	http.Redirect(w, r, landing, http.StatusSeeOther)
}

// signout clears the session cookie. The upstream token itself stays valid
// until it expires; the portal only forgets it.
func (h *Handler) signout(w http.ResponseWriter, r *http.Request) {
	session.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

package handler

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olienttech/portal/internal/authz"
	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/internal/upstream"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, subject, name, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"name": name,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString(testSecret)
	require.NoError(t, err)
	return raw
}

// stubUpstream serves the ordering API endpoints the portal talks to, with
// a fixed two-product catalog and switchable failure modes.
type stubUpstream struct {
	srv *httptest.Server

	mu           sync.Mutex
	failProducts bool
	failPlace    bool
	placeGate    chan struct{} // when non-nil, the order mutation blocks until closed
	placeStarted bool
	placeCalls   int
	placeBody    string
	patchPath    string
	patchBody    string
}

const (
	productsJSON = `{"data":{"products":[
		{"id":"P1","name":"Alesion","description":"Antihistamine","stock":3,"price":980,"orderQuantity":12,
		 "categories":[{"id":"C1","name":"Allergy"}]},
		{"id":"P2","name":"Loxonin","description":"Pain relief","stock":50,"price":1200,"orderQuantity":4,
		 "categories":[{"id":"C2","name":"Analgesic"}]}
	]}}`
	manufacturersJSON = `{"data":{"manufacturers":[
		{"id":"M1","name":"Umbrella Pharma","description":"Generics maker"}
	]}}`
	ordersJSON = `{"data":{"orders":[
		{"id":"O1","shop":{"id":"S1","name":"Sakura Pharmacy"},
		 "manufacturer":{"id":"M1","name":"Umbrella Pharma"},
		 "totalPrice":1960,"orderAt":"2026-08-30T09:00:00Z","approved":true}
	]}}`
	orderDetailJSON = `{"data":{"id":"O1","shop":{"id":"S1","name":"Sakura Pharmacy"},
		"totalPrice":1960,"orderAt":"2026-08-30T09:00:00Z","approved":false,
		"items":[{"product":{"id":"P1","name":"Alesion","price":980},"quantity":2}]}}`
)

func newStubUpstream(t *testing.T) *stubUpstream {
	t.Helper()
	stub := &stubUpstream{}
	mux := http.NewServeMux()

	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, body)
		}
	}

	mux.HandleFunc("POST /shops/signin", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"wrong"`) {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"message":"invalid credentials"}`)
			return
		}
		token := signToken(t, "S1", "Sakura Pharmacy", session.RoleShop)
		fmt.Fprintf(w, `{"data":{"id":"S1","name":"Sakura Pharmacy","token":%q}}`, token)
	})
	mux.HandleFunc("GET /shops/S1/partner-manufacturers", serve(manufacturersJSON))
	mux.HandleFunc("GET /shops/S1/partner-manufacturers/M1/products", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		fail := stub.failProducts
		stub.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"message":"catalog unavailable"}`)
			return
		}
		serve(productsJSON)(w, r)
	})
	mux.HandleFunc("POST /shops/S1/orders", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		stub.mu.Lock()
		stub.placeStarted = true
		gate := stub.placeGate
		stub.mu.Unlock()
		if gate != nil {
			<-gate
		}
		stub.mu.Lock()
		defer stub.mu.Unlock()
		if stub.failPlace {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"message":"order rejected"}`)
			return
		}
		stub.placeCalls++
		stub.placeBody = string(body)
		io.WriteString(w, `{"data":{"id":"O9"}}`)
	})
	mux.HandleFunc("GET /shops/S1/orders", serve(ordersJSON))
	mux.HandleFunc("GET /manufacturers/M1/products", serve(productsJSON))
	mux.HandleFunc("PATCH /manufacturers/M1/products/{productID}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		stub.mu.Lock()
		stub.patchPath = r.URL.Path
		stub.patchBody = string(body)
		stub.mu.Unlock()
		io.WriteString(w, `{"data":{}}`)
	})
	mux.HandleFunc("GET /manufacturers/M1/orders", serve(ordersJSON))
	mux.HandleFunc("GET /manufacturers/M1/orders/O1", serve(orderDetailJSON))

	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

func newTestHandler(t *testing.T) (http.Handler, *stubUpstream) {
	t.Helper()
	stub := newStubUpstream(t)

	client, err := upstream.NewClient(stub.srv.URL)
	require.NoError(t, err)
	enforcer, err := authz.New()
	require.NoError(t, err)

	h := New(Config{}, client, session.NewVerifier(testSecret), enforcer)
	return h.Routes(), stub
}

func get(t *testing.T, routes http.Handler, path, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, routes http.Handler, path, token string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	return rec
}

func shopToken(t *testing.T) string {
	return signToken(t, "S1", "Sakura Pharmacy", session.RoleShop)
}

func manufacturerToken(t *testing.T) string {
	return signToken(t, "M1", "Umbrella Pharma", session.RoleManufacturer)
}

func flashCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie && c.MaxAge >= 0 {
			return c
		}
	}
	t.Fatal("no flash cookie set")
	return nil
}

func TestAuthenticate_RedirectsWithoutSession(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := get(t, routes, "/shop/manufacturers", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin/shop", rec.Header().Get("Location"))

	rec = get(t, routes, "/manufacturer/products", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/signin/manufacturer", rec.Header().Get("Location"))
}

func TestAuthenticate_ForbiddenAcrossRoles(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := get(t, routes, "/manufacturer/products", shopToken(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(t, routes, "/shop/manufacturers", manufacturerToken(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSigninShop(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := postForm(t, routes, "/signin/shop", "", url.Values{
		"id": {"S1"}, "password": {"hunter2"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop/manufacturers", rec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "signin must set the session cookie")
	assert.NotEmpty(t, sessionCookie.Value)
}

func TestSigninShop_BadCredentials(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := postForm(t, routes, "/signin/shop", "", url.Values{
		"id": {"S1"}, "password": {"wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sign in failed")
}

func TestShopManufacturers_ClickableRows(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := get(t, routes, "/shop/manufacturers", shopToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Umbrella Pharma")
	assert.Contains(t, body, `data-href="/shop/manufacturers/M1/products"`)
}

func TestShopProducts_QuantityInputs(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := get(t, routes, "/shop/manufacturers/M1/products", shopToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Alesion")
	assert.Contains(t, body, `name="order_P1"`)
	assert.Contains(t, body, `max="3"`, "quantity input is bounded by stock")
	assert.Contains(t, body, `name="order_P2"`)
}

func TestShopProducts_CatalogFailureRedirects(t *testing.T) {
	routes, stub := newTestHandler(t)
	stub.mu.Lock()
	stub.failProducts = true
	stub.mu.Unlock()

	rec := get(t, routes, "/shop/manufacturers/M1/products", shopToken(t))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Failed to load the product catalog")
	assert.Contains(t, body, `content="2;url=/shop/manufacturers"`)
}

func TestOrderFlow(t *testing.T) {
	routes, stub := newTestHandler(t)
	token := shopToken(t)

	// Prime the composer with the catalog, as browsing would.
	rec := get(t, routes, "/shop/manufacturers/M1/products", token)
	require.Equal(t, http.StatusOK, rec.Code)

	// Zero and blank quantities drop out of the draft.
	rec = postForm(t, routes, "/shop/manufacturers/M1/order", token, url.Values{
		"order_P1": {"2"},
		"order_P2": {"0"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/shop/manufacturers/M1/order/confirm", rec.Header().Get("Location"))

	rec = get(t, routes, "/shop/manufacturers/M1/order/confirm", token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Alesion")
	assert.NotContains(t, body, "Loxonin", "zero-quantity line must not be confirmed")
	assert.Contains(t, body, "1960.00", "total is quantity times unit price")

	rec = postForm(t, routes, "/shop/manufacturers/M1/order/submit", token, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/shop/manufacturers/M1/order/complete", rec.Header().Get("Location"))

	stub.mu.Lock()
	assert.Equal(t, 1, stub.placeCalls)
	assert.Contains(t, stub.placeBody, `"manufacturerId":"M1"`)
	assert.Contains(t, stub.placeBody, `"productId":"P1"`)
	assert.Contains(t, stub.placeBody, `"quantity":2`)
	assert.NotContains(t, stub.placeBody, `"P2"`)
	stub.mu.Unlock()

	rec = get(t, routes, "/shop/manufacturers/M1/order/complete", token)
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Your order has been placed")
	assert.Contains(t, body, `content="1;url=/shop/manufacturers/M1/products"`)
}

func TestOrderFlow_NoSelection(t *testing.T) {
	routes, stub := newTestHandler(t)
	token := shopToken(t)

	get(t, routes, "/shop/manufacturers/M1/products", token)

	rec := postForm(t, routes, "/shop/manufacturers/M1/order", token, url.Values{
		"order_P1": {"0"},
		"order_P2": {"abc"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop/manufacturers/M1/products", rec.Header().Get("Location"))

	// The notice travels via the flash cookie and shows on the next page.
	flash := flashCookieFrom(t, rec)
	rec = get(t, routes, "/shop/manufacturers/M1/products", token, flash)
	assert.Contains(t, rec.Body.String(), "No products selected")

	stub.mu.Lock()
	assert.Zero(t, stub.placeCalls, "nothing may reach the upstream API")
	stub.mu.Unlock()

	// No draft was built, so there is nothing to confirm.
	rec = get(t, routes, "/shop/manufacturers/M1/order/confirm", token)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestOrderFlow_StockExceeded(t *testing.T) {
	routes, _ := newTestHandler(t)
	token := shopToken(t)

	get(t, routes, "/shop/manufacturers/M1/products", token)

	rec := postForm(t, routes, "/shop/manufacturers/M1/order", token, url.Values{
		"order_P1": {"999"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop/manufacturers/M1/products", rec.Header().Get("Location"))

	flash := flashCookieFrom(t, rec)
	rec = get(t, routes, "/shop/manufacturers/M1/products", token, flash)
	assert.Contains(t, rec.Body.String(), "exceeds the available stock")
}

func TestOrderFlow_SubmitFailureKeepsDraft(t *testing.T) {
	routes, stub := newTestHandler(t)
	token := shopToken(t)

	get(t, routes, "/shop/manufacturers/M1/products", token)
	postForm(t, routes, "/shop/manufacturers/M1/order", token, url.Values{"order_P1": {"2"}})
	get(t, routes, "/shop/manufacturers/M1/order/confirm", token)

	stub.mu.Lock()
	stub.failPlace = true
	stub.mu.Unlock()

	rec := postForm(t, routes, "/shop/manufacturers/M1/order/submit", token, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop/manufacturers/M1/order/confirm", rec.Header().Get("Location"))

	// Back on the confirmation page with the draft intact and the failure shown.
	rec = get(t, routes, "/shop/manufacturers/M1/order/confirm", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Order submission failed")
	assert.Contains(t, rec.Body.String(), "Alesion")

	// Retry succeeds without rebuilding the draft.
	stub.mu.Lock()
	stub.failPlace = false
	stub.mu.Unlock()

	rec = postForm(t, routes, "/shop/manufacturers/M1/order/submit", token, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop/manufacturers/M1/order/complete", rec.Header().Get("Location"))

	stub.mu.Lock()
	assert.Equal(t, 1, stub.placeCalls)
	stub.mu.Unlock()
}

func TestOrderFlow_ConfirmRendersDuringSubmit(t *testing.T) {
	routes, stub := newTestHandler(t)
	token := shopToken(t)

	get(t, routes, "/shop/manufacturers/M1/products", token)
	postForm(t, routes, "/shop/manufacturers/M1/order", token, url.Values{"order_P1": {"2"}})
	get(t, routes, "/shop/manufacturers/M1/order/confirm", token)

	gate := make(chan struct{})
	stub.mu.Lock()
	stub.placeGate = gate
	stub.mu.Unlock()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- postForm(t, routes, "/shop/manufacturers/M1/order/submit", token, nil) }()
	require.Eventually(t, func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return stub.placeStarted
	}, time.Second, time.Millisecond)

	// The confirmation page keeps rendering mid-flight, with both actions
	// disabled so the submission cannot be duplicated or abandoned.
	rec := get(t, routes, "/shop/manufacturers/M1/order/confirm", token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Alesion")
	assert.Contains(t, body, "disabled>Place order")
	assert.Contains(t, body, "disabled>Cancel")

	close(gate)
	rec = <-done
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop/manufacturers/M1/order/complete", rec.Header().Get("Location"))
}

func TestOrderComplete_StrayVisitKeepsDraft(t *testing.T) {
	routes, stub := newTestHandler(t)
	token := shopToken(t)

	get(t, routes, "/shop/manufacturers/M1/products", token)
	postForm(t, routes, "/shop/manufacturers/M1/order", token, url.Values{"order_P1": {"1"}})
	get(t, routes, "/shop/manufacturers/M1/order/confirm", token)

	// Nothing has been submitted, so the success page is not available and
	// the composition survives the visit.
	rec := get(t, routes, "/shop/manufacturers/M1/order/complete", token)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop/manufacturers/M1/products", rec.Header().Get("Location"))

	rec = get(t, routes, "/shop/manufacturers/M1/order/confirm", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alesion")

	stub.mu.Lock()
	assert.Zero(t, stub.placeCalls)
	stub.mu.Unlock()
}

func TestOrderFlow_Cancel(t *testing.T) {
	routes, stub := newTestHandler(t)
	token := shopToken(t)

	get(t, routes, "/shop/manufacturers/M1/products", token)
	postForm(t, routes, "/shop/manufacturers/M1/order", token, url.Values{"order_P1": {"1"}})
	get(t, routes, "/shop/manufacturers/M1/order/confirm", token)

	rec := postForm(t, routes, "/shop/manufacturers/M1/order/cancel", token, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/shop/manufacturers/M1/products", rec.Header().Get("Location"))

	// The draft is gone; confirming again starts over.
	rec = get(t, routes, "/shop/manufacturers/M1/order/confirm", token)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	stub.mu.Lock()
	assert.Zero(t, stub.placeCalls)
	stub.mu.Unlock()
}

func TestShopOrders(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := get(t, routes, "/shop/orders", shopToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "O1")
	assert.Contains(t, body, "Umbrella Pharma")
	assert.Contains(t, body, "approved")
}

func TestManufacturerProducts_SearchAndLowStock(t *testing.T) {
	routes, _ := newTestHandler(t)
	token := manufacturerToken(t)

	rec := get(t, routes, "/manufacturer/products", token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Alesion")
	assert.Contains(t, body, "Loxonin")
	assert.Contains(t, body, `class="low-stock"`, "stock of 3 is at or below the threshold")

	// Prefix search narrows the list.
	rec = get(t, routes, "/manufacturer/products?q=Ale", token)
	body = rec.Body.String()
	assert.Contains(t, body, "Alesion")
	assert.NotContains(t, body, "Loxonin")

	// Prefix matching, not substring: "esion" matches nothing.
	rec = get(t, routes, "/manufacturer/products?q=esion", token)
	assert.NotContains(t, rec.Body.String(), "Alesion")
}

func TestUpdateStock(t *testing.T) {
	routes, stub := newTestHandler(t)
	token := manufacturerToken(t)

	rec := postForm(t, routes, "/manufacturer/products/P1/stock", token, url.Values{
		"stock": {"7"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/manufacturer/products", rec.Header().Get("Location"))

	stub.mu.Lock()
	assert.Equal(t, "/manufacturers/M1/products/P1", stub.patchPath)
	assert.Contains(t, stub.patchBody, `"stock":7`)
	stub.mu.Unlock()
}

func TestUpdateStock_RejectsNonNumeric(t *testing.T) {
	routes, stub := newTestHandler(t)

	rec := postForm(t, routes, "/manufacturer/products/P1/stock", manufacturerToken(t), url.Values{
		"stock": {"lots"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	stub.mu.Lock()
	assert.Empty(t, stub.patchPath, "invalid input must not reach the upstream API")
	stub.mu.Unlock()
}

func TestManufacturerOrders_RowNavigatesToDetail(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := get(t, routes, "/manufacturer/orders", manufacturerToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-href="/manufacturer/orders/O1"`)
}

func TestManufacturerOrderDetail(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := get(t, routes, "/manufacturer/orders/O1", manufacturerToken(t))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Order O1")
	assert.Contains(t, body, "Sakura Pharmacy")
	assert.Contains(t, body, "Alesion")
	assert.Contains(t, body, "awaiting approval")
}

func TestSignout(t *testing.T) {
	routes, _ := newTestHandler(t)

	rec := postForm(t, routes, "/signout", shopToken(t), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "signout must clear the session cookie")
}

// Command mock-upstream is a development stand-in for the ordering API.
// It serves a small seeded catalog, issues signed session tokens, and
// accepts orders and stock updates in memory. State resets on restart.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Categories    []category      `json:"categories"`
	Stock         int             `json:"stock"`
	Price         decimal.Decimal `json:"price"`
	OrderQuantity int             `json:"orderQuantity"`
}

type party struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"-"`
}

type orderItem struct {
	Product  product `json:"product"`
	Quantity int     `json:"quantity"`
}

type orderRecord struct {
	ID           string          `json:"id"`
	Shop         party           `json:"shop"`
	Manufacturer party           `json:"manufacturer"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	OrderAt      time.Time       `json:"orderAt"`
	Approved     bool            `json:"approved"`
	Items        []orderItem     `json:"items,omitempty"`
}

// state is the whole mock dataset behind one lock. Contention is not a
// concern for a development tool.
type state struct {
	mu            sync.Mutex
	secret        []byte
	shops         map[string]*party
	manufacturers map[string]*party
	products      map[string][]*product // by manufacturer ID
	orders        []*orderRecord
}

func seedState(secret []byte) *state {
	cat := func(id, name string) category { return category{ID: id, Name: name} }
	return &state{
		secret: secret,
		shops: map[string]*party{
			"shop-1": {ID: "shop-1", Name: "Sakura Pharmacy", Password: "password"},
		},
		manufacturers: map[string]*party{
			"manu-1": {ID: "manu-1", Name: "Hoshino Pharmaceutical", Password: "password"},
			"manu-2": {ID: "manu-2", Name: "Aozora Labs", Password: "password"},
		},
		products: map[string][]*product{
			"manu-1": {
				{ID: "prod-1", Name: "Alesion 20", Description: "Antihistamine tablets", Categories: []category{cat("cat-1", "Allergy")}, Stock: 120, Price: decimal.NewFromInt(980)},
				{ID: "prod-2", Name: "Loxonin S", Description: "Pain relief tablets", Categories: []category{cat("cat-2", "Analgesic")}, Stock: 4, Price: decimal.NewFromInt(1200)},
				{ID: "prod-3", Name: "Pabron Gold A", Description: "Cold remedy granules", Categories: []category{cat("cat-3", "Cold")}, Stock: 60, Price: decimal.NewFromInt(850)},
			},
			"manu-2": {
				{ID: "prod-4", Name: "Biofermin", Description: "Probiotic tablets", Categories: []category{cat("cat-4", "Digestive")}, Stock: 200, Price: decimal.NewFromInt(640)},
			},
		},
	}
}

func main() {
	var (
		addr   string
		secret string
	)
	flag.StringVar(&addr, "addr", "0.0.0.0:9080", "listen address")
	flag.StringVar(&secret, "token-secret", "", "HMAC secret for session tokens (or PORTAL_TOKEN_SECRET env)")
	flag.Parse()

	if secret == "" {
		secret = os.Getenv("PORTAL_TOKEN_SECRET")
	}
	if secret == "" {
		slog.Error("token secret is required: set --token-secret or PORTAL_TOKEN_SECRET")
		os.Exit(1)
	}

	st := seedState([]byte(secret))
	slog.Info("mock upstream listening", "addr", addr)
	if err := http.ListenAndServe(addr, st.routes()); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func (s *state) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /shops/signin", s.signin(s.shops, "shop"))
	mux.HandleFunc("POST /manufacturers/signin", s.signin(s.manufacturers, "manufacturer"))
	mux.HandleFunc("GET /shops/{shopID}/partner-manufacturers", s.partnerManufacturers)
	mux.HandleFunc("GET /shops/{shopID}/partner-manufacturers/{manufacturerID}/products", s.handlingProducts)
	mux.HandleFunc("POST /shops/{shopID}/orders", s.placeOrder)
	mux.HandleFunc("GET /shops/{shopID}/orders", s.shopOrders)
	mux.HandleFunc("GET /manufacturers/{manufacturerID}/products", s.manufacturerProducts)
	mux.HandleFunc("PATCH /manufacturers/{manufacturerID}/products/{productID}", s.updateStock)
	mux.HandleFunc("GET /manufacturers/{manufacturerID}/orders", s.manufacturerOrders)
	mux.HandleFunc("GET /manufacturers/{manufacturerID}/orders/{orderID}", s.orderDetail)
	return mux
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"data": v}); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func (s *state) signin(parties map[string]*party, role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID       string `json:"id"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		s.mu.Lock()
		p, ok := parties[req.ID]
		s.mu.Unlock()
		if !ok || p.Password != req.Password {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  p.ID,
			"name": p.Name,
			"role": role,
			"exp":  time.Now().Add(24 * time.Hour).Unix(),
		})
		raw, err := tok.SignedString(s.secret)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "sign token")
			return
		}
		writeData(w, map[string]string{"id": p.ID, "name": p.Name, "token": raw})
	}
}

func (s *state) partnerManufacturers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]string, 0, len(s.manufacturers))
	for _, m := range s.manufacturers {
		out = append(out, map[string]string{
			"id": m.ID, "name": m.Name, "description": "Partner manufacturer",
		})
	}
	writeData(w, map[string]any{"manufacturers": out})
}

func (s *state) handlingProducts(w http.ResponseWriter, r *http.Request) {
	manufacturerID := r.PathValue("manufacturerID")
	s.mu.Lock()
	defer s.mu.Unlock()
	products, ok := s.products[manufacturerID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown manufacturer")
		return
	}
	writeData(w, map[string]any{"products": products})
}

func (s *state) manufacturerProducts(w http.ResponseWriter, r *http.Request) {
	s.handlingProducts(w, r)
}

func (s *state) placeOrder(w http.ResponseWriter, r *http.Request) {
	shopID := r.PathValue("shopID")
	var req struct {
		ManufacturerID string `json:"manufacturerId"`
		Items          []struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "order has no items")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shop, ok := s.shops[shopID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown shop")
		return
	}
	manufacturer, ok := s.manufacturers[req.ManufacturerID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown manufacturer")
		return
	}

	byID := make(map[string]*product)
	for _, p := range s.products[req.ManufacturerID] {
		byID[p.ID] = p
	}

	rec := &orderRecord{
		ID:           uuid.New().String(),
		Shop:         *shop,
		Manufacturer: *manufacturer,
		OrderAt:      time.Now().UTC(),
	}
	for _, item := range req.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "unknown product "+item.ProductID)
			return
		}
		if item.Quantity <= 0 || item.Quantity > p.Stock {
			writeError(w, http.StatusUnprocessableEntity, "invalid quantity for "+item.ProductID)
			return
		}
		rec.Items = append(rec.Items, orderItem{Product: *p, Quantity: item.Quantity})
		rec.TotalPrice = rec.TotalPrice.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	// Apply stock and order counters only once every line has validated.
	for _, item := range rec.Items {
		p := byID[item.Product.ID]
		p.Stock -= item.Quantity
		p.OrderQuantity += item.Quantity
	}
	s.orders = append(s.orders, rec)

	writeData(w, map[string]string{"id": rec.ID})
}

func (s *state) shopOrders(w http.ResponseWriter, r *http.Request) {
	shopID := r.PathValue("shopID")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*orderRecord, 0)
	for _, o := range s.orders {
		if o.Shop.ID == shopID {
			out = append(out, summaryOf(o))
		}
	}
	writeData(w, map[string]any{"orders": out})
}

func (s *state) manufacturerOrders(w http.ResponseWriter, r *http.Request) {
	manufacturerID := r.PathValue("manufacturerID")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*orderRecord, 0)
	for _, o := range s.orders {
		if o.Manufacturer.ID == manufacturerID {
			out = append(out, summaryOf(o))
		}
	}
	writeData(w, map[string]any{"orders": out})
}

func summaryOf(o *orderRecord) *orderRecord {
	summary := *o
	summary.Items = nil
	return &summary
}

func (s *state) orderDetail(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	manufacturerID := r.PathValue("manufacturerID")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == orderID && o.Manufacturer.ID == manufacturerID {
			writeData(w, o)
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown order")
}

func (s *state) updateStock(w http.ResponseWriter, r *http.Request) {
	manufacturerID := r.PathValue("manufacturerID")
	productID := r.PathValue("productID")
	var req struct {
		Stock int `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Stock < 0 {
		writeError(w, http.StatusUnprocessableEntity, "stock must be non-negative")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products[manufacturerID] {
		if p.ID == productID {
			p.Stock = req.Stock
			writeData(w, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown product")
}

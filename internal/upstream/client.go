// Package upstream is the HTTP client for the core ordering API. The API
// is a black box to the portal: the client forwards the caller's bearer
// token, maps payloads to domain types, and converts non-2xx responses to
// StatusError. It never issues or refreshes credentials.
package upstream

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/olienttech/portal/internal/domain/catalog"
	"github.com/olienttech/portal/internal/domain/order"
)

// StatusError is a non-2xx response from the upstream API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "upstream returned status " + strconv.Itoa(e.Code)
	}
	return "upstream returned status " + strconv.Itoa(e.Code) + ": " + e.Message
}

// Client talks to the upstream ordering API.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTelemetry instruments the transport with the given providers instead
// of the otel globals.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.http.Transport = otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
		)
	}
}

// NewClient creates a Client for the API at baseURL. The transport is
// instrumented with OpenTelemetry.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SigninResult is the session material issued by the upstream API.
type SigninResult struct {
	ID    string
	Name  string
	Token string
}

// SigninShop authenticates a shop and returns its session token.
func (c *Client) SigninShop(ctx context.Context, id, password string) (*SigninResult, error) {
	return c.signin(ctx, "/shops/signin", id, password)
}

// SigninManufacturer authenticates a manufacturer and returns its session token.
func (c *Client) SigninManufacturer(ctx context.Context, id, password string) (*SigninResult, error) {
	return c.signin(ctx, "/manufacturers/signin", id, password)
}

func (c *Client) signin(ctx context.Context, path, id, password string) (*SigninResult, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(id) })
		e.Field("password", func(e *jx.Encoder) { e.Str(password) })
	})

	body, err := c.do(ctx, http.MethodPost, path, "", e.Bytes())
	if err != nil {
		return nil, err
	}
	return decodeSignin(body)
}

// PartnerManufacturers lists the manufacturers a shop can order from.
func (c *Client) PartnerManufacturers(ctx context.Context, token, shopID string) ([]catalog.Manufacturer, error) {
	body, err := c.do(ctx, http.MethodGet, "/shops/"+url.PathEscape(shopID)+"/partner-manufacturers", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeManufacturers(body)
}

// HandlingProducts fetches the catalog of products a manufacturer handles
// for the given shop. It satisfies catalog.Fetcher.
func (c *Client) HandlingProducts(ctx context.Context, token, shopID, manufacturerID string) ([]catalog.Product, error) {
	path := "/shops/" + url.PathEscape(shopID) + "/partner-manufacturers/" + url.PathEscape(manufacturerID) + "/products"
	body, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	return decodeProducts(body)
}

// ManufacturerProducts fetches a manufacturer's own handled products.
func (c *Client) ManufacturerProducts(ctx context.Context, token, manufacturerID string) ([]catalog.Product, error) {
	body, err := c.do(ctx, http.MethodGet, "/manufacturers/"+url.PathEscape(manufacturerID)+"/products", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeProducts(body)
}

// PlaceOrder submits one order. The success payload is discarded beyond the
// status check. It satisfies order.Placer.
func (c *Client) PlaceOrder(ctx context.Context, token, shopID, manufacturerID string, lines []order.Line) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("manufacturerId", func(e *jx.Encoder) { e.Str(manufacturerID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(l.ProductID) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
					})
				}
			})
		})
	})

	_, err := c.do(ctx, http.MethodPost, "/shops/"+url.PathEscape(shopID)+"/orders", token, e.Bytes())
	return err
}

// UpdateStock sets the stock level of one handled product.
func (c *Client) UpdateStock(ctx context.Context, token, manufacturerID, productID string, stock int) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("stock", func(e *jx.Encoder) { e.Int(stock) })
	})

	path := "/manufacturers/" + url.PathEscape(manufacturerID) + "/products/" + url.PathEscape(productID)
	_, err := c.do(ctx, http.MethodPatch, path, token, e.Bytes())
	return err
}

// ShopOrders lists orders placed by a shop.
func (c *Client) ShopOrders(ctx context.Context, token, shopID string) ([]order.Summary, error) {
	body, err := c.do(ctx, http.MethodGet, "/shops/"+url.PathEscape(shopID)+"/orders", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeSummaries(body)
}

// ManufacturerOrders lists orders received by a manufacturer.
func (c *Client) ManufacturerOrders(ctx context.Context, token, manufacturerID string) ([]order.Summary, error) {
	body, err := c.do(ctx, http.MethodGet, "/manufacturers/"+url.PathEscape(manufacturerID)+"/orders", token, nil)
	if err != nil {
		return nil, err
	}
	return decodeSummaries(body)
}

// Order fetches one received order with its line items.
func (c *Client) Order(ctx context.Context, token, manufacturerID, orderID string) (*order.Detail, error) {
	path := "/manufacturers/" + url.PathEscape(manufacturerID) + "/orders/" + url.PathEscape(orderID)
	body, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	return decodeDetail(body)
}

// do performs one request and returns the response body, mapping non-2xx
// statuses to StatusError.
func (c *Client) do(ctx context.Context, method, path, token string, body []byte) ([]byte, error) {
	u := c.base.JoinPath(path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

// errorMessage pulls a human-readable message out of an error body, if any.
func errorMessage(data []byte) string {
	d := jx.DecodeBytes(data)
	var msg string
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "message", "error":
			s, err := d.Str()
			if err != nil {
				return err
			}
			msg = s
			return nil
		default:
			return d.Skip()
		}
	})
	return strings.TrimSpace(msg)
}

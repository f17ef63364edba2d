package catalog

import (
	"context"
	"sync"
)

// Fetcher retrieves the handled-product catalog for a (shop, manufacturer)
// pair on behalf of the bearer of token.
type Fetcher interface {
	HandlingProducts(ctx context.Context, token, shopID, manufacturerID string) ([]Product, error)
}

// LoaderState is the fetch lifecycle of a Loader.
type LoaderState int

const (
	LoaderIdle LoaderState = iota
	LoaderLoading
	LoaderReady
	LoaderFailed
)

// Key is the identity a catalog fetch is keyed by. Any change to it
// triggers a fresh fetch.
type Key struct {
	ShopID         string
	ManufacturerID string
	Token          string
}

// Loader fetches a manufacturer's handled-product catalog and tracks
// loading state across key changes.
//
// Overlapping fetches from rapid key changes are not cancelled; instead
// every fetch carries a generation tag and only the most recently started
// fetch may publish its result. A stale fetch that resolves late — success
// or failure — is discarded, so visible state always reflects the latest
// key. The loader holds no retry policy: on failure the caller notifies the
// user and navigates away.
type Loader struct {
	fetcher Fetcher

	mu       sync.Mutex
	gen      uint64
	key      Key
	state    LoaderState
	products []Product
	err      error
}

// NewLoader creates an idle Loader.
func NewLoader(fetcher Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load fetches the catalog for key and publishes the result unless a newer
// Load superseded this one while it was in flight. It returns the fetched
// products (or the fetch error) regardless of supersession; use Snapshot
// for the published state.
func (l *Loader) Load(ctx context.Context, key Key) ([]Product, error) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.key = key
	l.state = LoaderLoading
	l.mu.Unlock()

	products, err := l.fetcher.HandlingProducts(ctx, key.Token, key.ShopID, key.ManufacturerID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		// Superseded while in flight; a fresher fetch owns the state now.
		return products, err
	}
	if err != nil {
		l.state = LoaderFailed
		l.products = nil
		l.err = err
		return nil, err
	}
	l.state = LoaderReady
	l.products = products
	l.err = nil
	return products, nil
}

// Start triggers Load on its own goroutine, for callers that render a
// loading placeholder and observe the result via Snapshot.
func (l *Loader) Start(ctx context.Context, key Key) {
	go func() { _, _ = l.Load(ctx, key) }()
}

// Snapshot returns the currently published catalog, state, and error.
func (l *Loader) Snapshot() ([]Product, LoaderState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.products, l.state, l.err
}

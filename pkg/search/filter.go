// Package search provides a debounced free-text filter over in-memory
// record lists.
//
// Filtering is decoupled from whatever fetch produced the list: replacing
// the source re-applies the last debounced query instead of resetting it,
// so search state survives data reloads.
package search

import (
	"strings"
	"sync"
	"time"
)

// DefaultWindow is the debounce window applied when none is configured:
// input must be quiescent for this long before a query takes effect.
const DefaultWindow = 500 * time.Millisecond

// Nameable is the capability a record needs to be searchable: it exposes
// the display name that queries are matched against.
type Nameable interface {
	DisplayName() string
}

// Prefix returns the items whose display name starts with query.
// Matching is case-sensitive. An empty query matches everything.
func Prefix[T Nameable](items []T, query string) []T {
	matched := make([]T, 0, len(items))
	for _, it := range items {
		if strings.HasPrefix(it.DisplayName(), query) {
			matched = append(matched, it)
		}
	}
	return matched
}

// Filter debounces query input and pushes filtered snapshots of its source
// list to a notify callback.
//
// A keystroke arriving within the debounce window of the previous one
// resets the timer; no filtering happens until the window elapses. Pending
// timers are invalidated by a superseding Input call and by Close.
type Filter[T Nameable] struct {
	window time.Duration
	notify func([]T)

	mu      sync.Mutex
	timer   *time.Timer
	source  []T
	applied string // last query that made it through the debounce window
	closed  bool
}

// Option configures a Filter.
type Option func(*options)

type options struct {
	window time.Duration
}

// WithWindow overrides the debounce window.
func WithWindow(d time.Duration) Option {
	return func(o *options) { o.window = d }
}

// New creates a Filter that reports filtered results through notify.
// The callback runs on the debounce timer's goroutine (or inline from
// SetSource) while no Filter lock is held by the caller.
func New[T Nameable](notify func([]T), opts ...Option) *Filter[T] {
	o := options{window: DefaultWindow}
	for _, opt := range opts {
		opt(&o)
	}
	return &Filter[T]{window: o.window, notify: notify}
}

// Input feeds one keystroke's worth of query text. The query takes effect
// only after the debounce window elapses with no further input.
func (f *Filter[T]) Input(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.window, func() { f.fire(query) })
}

// fire applies a debounced query and notifies with the filtered snapshot.
func (f *Filter[T]) fire(query string) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.applied = query
	result := Prefix(f.source, query)
	f.mu.Unlock()

	f.notify(result)
}

// SetSource replaces the source list, typically after a fresh fetch. The
// last debounced query is re-applied immediately; the query itself is
// deliberately not reset, as search state is independent of the data-load
// lifecycle.
func (f *Filter[T]) SetSource(items []T) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.source = make([]T, len(items))
	copy(f.source, items)
	result := Prefix(f.source, f.applied)
	f.mu.Unlock()

	f.notify(result)
}

// Query returns the last query that made it through the debounce window.
func (f *Filter[T]) Query() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied
}

// Close invalidates any pending debounce timer and makes further input a
// no-op. It is safe to call multiple times.
func (f *Filter[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

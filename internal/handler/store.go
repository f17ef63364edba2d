package handler

import (
	"context"
	"sync"
	"time"

	"github.com/olienttech/portal/internal/domain/catalog"
	"github.com/olienttech/portal/internal/domain/order"
	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/internal/upstream"
)

// DefaultComposerTTL is how long an idle order composition survives before
// its composer is discarded. Compositions never outlive the process.
const DefaultComposerTTL = 30 * time.Minute

// composerKey identifies one ordering session: one shop composing an order
// against one manufacturer's catalog.
type composerKey struct {
	shopID         string
	manufacturerID string
}

// composerEntry pairs the catalog loader and composer for one ordering
// session. The token is recorded so a re-login invalidates the entry.
type composerEntry struct {
	loader   *catalog.Loader
	composer *order.Composer
	token    string
	lastSeen time.Time
}

// composerStore keeps per-session order compositions in memory, expired
// after a TTL by a background sweep. State is process-local and carries no
// durability: a restart loses in-progress drafts, never placed orders.
type composerStore struct {
	client *upstream.Client
	ttl    time.Duration

	mu      sync.Mutex
	entries map[composerKey]*composerEntry
}

func newComposerStore(client *upstream.Client, ttl time.Duration) *composerStore {
	return &composerStore{
		client:  client,
		ttl:     ttl,
		entries: make(map[composerKey]*composerEntry),
	}
}

// get returns the ordering session for (sess, manufacturerID), creating a
// fresh one when none exists, the previous one expired, or the session
// token changed since it was created.
func (s *composerStore) get(sess *session.Session, manufacturerID string) *composerEntry {
	key := composerKey{shopID: sess.PartyID, manufacturerID: manufacturerID}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.token != sess.Token || now.Sub(e.lastSeen) > s.ttl {
		e = &composerEntry{
			loader:   catalog.NewLoader(s.client),
			composer: order.NewComposer(order.NewSubmitter(s.client), sess.Token, sess.PartyID, manufacturerID),
			token:    sess.Token,
		}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e
}

// peek returns the live ordering session for (sess, manufacturerID) without
// creating one. Expired entries and entries from a previous login count as
// absent.
func (s *composerStore) peek(sess *session.Session, manufacturerID string) *composerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[composerKey{shopID: sess.PartyID, manufacturerID: manufacturerID}]
	if !ok || e.token != sess.Token || time.Since(e.lastSeen) > s.ttl {
		return nil
	}
	return e
}

// drop discards the ordering session, if any. Called once an order has been
// placed so the next visit starts from a clean composer.
func (s *composerStore) drop(sess *session.Session, manufacturerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, composerKey{shopID: sess.PartyID, manufacturerID: manufacturerID})
}

// startCleanup launches the background expiry sweep. It stops when ctx is
// cancelled.
func (s *composerStore) startCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.cleanup(now)
			}
		}
	}()
}

func (s *composerStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, key)
		}
	}
}

package order

import (
	"context"
	"sync/atomic"

	"github.com/go-faster/errors"
)

// Sentinel errors for order submission.
var (
	ErrEmptyDraft         = errors.New("draft has no lines")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// SubmissionError wraps an upstream rejection of an order mutation. The
// draft that produced it stays intact so the user can retry.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return "order submission failed: " + e.Err.Error() }
func (e *SubmissionError) Unwrap() error { return e.Err }

// Placer issues the order mutation against the upstream API.
type Placer interface {
	PlaceOrder(ctx context.Context, token, shopID, manufacturerID string, lines []Line) error
}

// Submitter performs the order mutation for one composer instance. It
// rejects empty drafts locally, without a network call, and guarantees at
// most one in-flight submission: the composer's Submitting state is the
// primary guard, the CAS here is a backstop against precondition
// violations.
type Submitter struct {
	placer   Placer
	inflight atomic.Bool
}

// NewSubmitter creates a Submitter backed by the given placer.
func NewSubmitter(placer Placer) *Submitter {
	return &Submitter{placer: placer}
}

// Submit sends the draft upstream. Failures are reported as a
// SubmissionError result; nothing escapes uncaught past the composer
// boundary.
func (s *Submitter) Submit(ctx context.Context, token string, d *Draft) error {
	if d == nil || len(d.Lines) == 0 {
		return ErrEmptyDraft
	}
	if !s.inflight.CompareAndSwap(false, true) {
		return ErrSubmissionInFlight
	}
	defer s.inflight.Store(false)

	if err := s.placer.PlaceOrder(ctx, token, d.ShopID, d.ManufacturerID, d.Lines); err != nil {
		return &SubmissionError{Err: err}
	}
	return nil
}

package order

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/olienttech/portal/internal/domain/catalog"
)

// SuccessRedirectDelay is how long the success notification stays visible
// before the user is navigated away from the composition view.
const SuccessRedirectDelay = time.Second

// State is a phase of the order composition workflow.
type State int

const (
	// StateBrowsing shows the product table with per-row quantity inputs.
	StateBrowsing State = iota
	// StateDraftBuilt holds a freshly validated, non-empty draft.
	StateDraftBuilt
	// StateConfirming shows the draft on the confirmation surface.
	StateConfirming
	// StateSubmitting has the mutation in flight; cancel is disabled so the
	// confirmation surface cannot be dismissed mid-flight.
	StateSubmitting
	// StateSucceeded is terminal; the composer is discarded after the
	// success notification delay.
	StateSucceeded
)

// String implements fmt.Stringer for logging.
func (s State) String() string {
	switch s {
	case StateBrowsing:
		return "browsing"
	case StateDraftBuilt:
		return "draft-built"
	case StateConfirming:
		return "confirming"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// InvalidTransitionError reports an operation attempted from the wrong
// state.
type InvalidTransitionError struct {
	From State
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return "cannot " + e.Op + " while " + e.From.String()
}

// LineItem pairs a draft line with its product for the confirmation table.
type LineItem struct {
	Product  catalog.Product
	Quantity int
}

// Composer drives one order from browsing through submission:
//
//	Browsing -> DraftBuilt -> Confirming -> Submitting -> Succeeded
//
// A submission failure returns the machine to Confirming with the error
// recorded and the draft preserved, so the user can retry without
// re-entering quantities. A draft with no positive quantities never leaves
// Browsing; the caller shows a no-selection notice instead of the
// confirmation surface.
//
// A Composer belongs to exactly one ordering session. Independent composer
// instances are not coordinated with each other.
type Composer struct {
	submitter *Submitter
	token     string
	shopID    string
	manuID    string

	mu       sync.Mutex
	state    State
	products []catalog.Product
	draft    *Draft
	lastErr  error
}

// NewComposer creates a composer in the Browsing state for one
// (shop, manufacturer) pair. The token is forwarded as-is on submission;
// the composer never issues or refreshes credentials.
func NewComposer(submitter *Submitter, token, shopID, manufacturerID string) *Composer {
	return &Composer{
		submitter: submitter,
		token:     token,
		shopID:    shopID,
		manuID:    manufacturerID,
	}
}

// SetProducts installs the catalog snapshot quantities are entered against.
func (c *Composer) SetProducts(products []catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = products
}

// Products returns the catalog snapshot.
func (c *Composer) Products() []catalog.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products
}

// State reports the current phase.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the most recent submission failure, if any.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// BuildDraft reads the submitted quantities and constructs a fresh draft,
// replacing any previous one. On ErrNoSelection the machine stays in
// Browsing. Allowed from Browsing, and from DraftBuilt or Confirming when
// the user edits quantities and resubmits.
func (c *Composer) BuildDraft(quantities map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting || c.state == StateSucceeded {
		return &InvalidTransitionError{From: c.state, Op: "build draft"}
	}

	d, err := BuildDraft(c.shopID, c.manuID, c.products, quantities)
	if err != nil {
		c.state = StateBrowsing
		c.draft = nil
		return err
	}
	c.draft = d
	c.state = StateDraftBuilt
	return nil
}

// Confirm advances a built draft onto the confirmation surface and returns
// the line items to render there. Calling it again while already confirming,
// or while a submission is in flight, is a no-op re-render: the surface must
// stay up for the whole submission so its disabled cancel affordance remains
// visible.
func (c *Composer) Confirm() ([]LineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateDraftBuilt, StateConfirming:
		c.state = StateConfirming
	case StateSubmitting:
		// Re-render only; the in-flight draft is still set.
	default:
		return nil, &InvalidTransitionError{From: c.state, Op: "confirm"}
	}
	return c.lineItemsLocked(), nil
}

// lineItemsLocked joins draft lines with their products. c.mu must be held.
func (c *Composer) lineItemsLocked() []LineItem {
	byID := make(map[string]catalog.Product, len(c.products))
	for _, p := range c.products {
		byID[p.ID] = p
	}
	items := make([]LineItem, 0, len(c.draft.Lines))
	for _, l := range c.draft.Lines {
		items = append(items, LineItem{Product: byID[l.ProductID], Quantity: l.Quantity})
	}
	return items
}

// Cancel dismisses the confirmation surface and discards the draft. It is
// rejected while a submission is in flight: the cancel affordance is
// disabled for the duration so the request cannot be orphaned.
func (c *Composer) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateDraftBuilt, StateConfirming:
		c.state = StateBrowsing
		c.draft = nil
		c.lastErr = nil
		return nil
	case StateSubmitting:
		return ErrSubmissionInFlight
	default:
		return &InvalidTransitionError{From: c.state, Op: "cancel"}
	}
}

// Submit sends the confirmed draft upstream. While the call is outstanding
// the machine sits in Submitting, which rejects a second Submit and any
// Cancel. On success the machine reaches Succeeded; on failure it returns
// to Confirming with the error recorded and the draft intact.
func (c *Composer) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if c.state != StateConfirming {
		from := c.state
		c.mu.Unlock()
		return &InvalidTransitionError{From: from, Op: "submit"}
	}
	c.state = StateSubmitting
	c.lastErr = nil
	draft := c.draft
	c.mu.Unlock()

	err := c.submitter.Submit(ctx, c.token, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateConfirming
		c.lastErr = err
		return errors.Wrap(err, "submit order")
	}
	c.state = StateSucceeded
	c.draft = nil
	return nil
}

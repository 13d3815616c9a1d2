// Package checkout drives the order submission flow: it gates on a valid
// session, validates the checkout form, submits the cart as one atomic
// batch, and reconciles the cart against the backend's verdict.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/voltworks/storefront/internal/cart"
	"github.com/voltworks/storefront/internal/notify"
	"github.com/voltworks/storefront/internal/session"
)

// State is the orchestrator's position in the checkout flow.
type State int

const (
	// Idle means no checkout is underway.
	Idle State = iota
	// AwaitingAuth means checkout was requested without a valid session
	// and the flow is suspended behind the login surface.
	AwaitingAuth
	// FormOpen means the checkout detail form is showing.
	FormOpen
	// Submitting means an order submission is in flight. The form must not
	// resubmit, but unrelated cart mutations elsewhere stay unblocked.
	Submitting
	// Succeeded means every line was accepted and the cart was cleared.
	Succeeded
	// PartiallyFailed means some lines were rejected; the cart now holds
	// exactly those lines so the shopper can retry them.
	PartiallyFailed
	// Failed means the whole attempt failed and the cart is untouched.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingAuth:
		return "awaiting_auth"
	case FormOpen:
		return "form_open"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case PartiallyFailed:
		return "partially_failed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrNotReady means the requested transition is illegal from the
	// current state.
	ErrNotReady = errors.New("checkout: transition not allowed from current state")
)

// ValidationError keeps the flow in FormOpen and carries the inline message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Form holds the checkout detail fields. Name, Email and Phone are required.
type Form struct {
	Name  string
	Email string
	Phone string
	Notes string
}

func (f Form) validate() error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Email) == "" || strings.TrimSpace(f.Phone) == "" {
		return &ValidationError{Message: "please fill in all required customer details"}
	}
	return nil
}

// Orchestrator runs the checkout state machine over the cart, the session
// manager and the order API.
type Orchestrator struct {
	mu       sync.Mutex
	state    State
	cart     *cart.Store
	sessions *session.Manager
	api      OrderAPI
	nav      session.Navigator
	notifier notify.Notifier

	form Form
	// gen stamps each submission. A response only applies its cart and
	// state side effects while its generation is still the live one, so
	// a response landing after a newer submission started cannot clear
	// the cart out from under it.
	gen uint64
	// cancelled is set when the shopper dismisses the flow while a
	// submission is in flight. The response is still processed so a
	// server-side stock decrement is never lost, but its cart and
	// notification side effects are suppressed.
	cancelled bool

	lastOutcomes []LineOutcome
}

func NewOrchestrator(cartStore *cart.Store, sessions *session.Manager, api OrderAPI, nav session.Navigator, notifier notify.Notifier) *Orchestrator {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Orchestrator{
		state:    Idle,
		cart:     cartStore,
		sessions: sessions,
		api:      api,
		nav:      nav,
		notifier: notifier,
	}
}

// State returns the current flow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Form returns the current form contents (prefilled or as last submitted).
func (o *Orchestrator) Form() Form {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.form
}

// LastOutcomes returns the per-line verdicts from the most recent
// submission that produced any.
func (o *Orchestrator) LastOutcomes() []LineOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]LineOutcome, len(o.lastOutcomes))
	copy(out, o.lastOutcomes)
	return out
}

// ProceedToCheckout starts the flow. Without a valid session it suspends in
// AwaitingAuth and redirects to login; the cart is never touched here.
func (o *Orchestrator) ProceedToCheckout(ctx context.Context) State {
	s, ok := o.sessions.Current(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !ok {
		o.state = AwaitingAuth
		log.Printf("[Checkout] No valid session, redirecting to login")
		o.notifier.Notify(notify.Notification{
			Level:   notify.Warning,
			Title:   "Login Required",
			Message: "You need to log in to proceed to checkout.",
		})
		if o.nav != nil {
			o.nav.Navigate(session.LoginPath)
		}
		return o.state
	}

	o.openForm(s.Identity)
	return o.state
}

// ResumeAfterLogin moves a suspended flow into FormOpen once a fresh valid
// session exists. Called by the login surface after a successful login.
func (o *Orchestrator) ResumeAfterLogin(ctx context.Context) State {
	s, ok := o.sessions.Current(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != AwaitingAuth || !ok {
		return o.state
	}
	o.openForm(s.Identity)
	return o.state
}

// openForm prefills the detail form from the session's contact fields.
// Callers hold the mutex.
func (o *Orchestrator) openForm(identity session.Identity) {
	o.state = FormOpen
	o.form = Form{
		Name:  identity.Name,
		Email: identity.Email,
		Phone: identity.Phone,
	}
}

// Submit validates the form and the cart, then performs the submission.
// Validation failures keep the flow in FormOpen. The network call runs
// without the orchestrator lock so Cancel stays responsive.
func (o *Orchestrator) Submit(ctx context.Context, form Form) error {
	req, token, gen, err := o.beginSubmit(ctx, form)
	if err != nil {
		return err
	}

	log.Printf("[Checkout] Submitting order %s (%d lines)", req.RequestID, len(req.Items))
	resp, submitErr := o.api.SubmitOrder(ctx, token, req)

	return o.finishSubmit(ctx, req, gen, resp, submitErr)
}

func (o *Orchestrator) beginSubmit(ctx context.Context, form Form) (Request, string, uint64, error) {
	s, authed := o.sessions.Current(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != FormOpen {
		return Request{}, "", 0, fmt.Errorf("%w: %s", ErrNotReady, o.state)
	}
	if !authed {
		// The session lapsed while the form was open. Back to the gate.
		o.state = AwaitingAuth
		if o.nav != nil {
			o.nav.Navigate(session.LoginPath)
		}
		return Request{}, "", 0, fmt.Errorf("%w: session expired", ErrNotReady)
	}

	o.form = form
	if err := form.validate(); err != nil {
		o.notifier.Notify(notify.Notification{
			Level:   notify.Error,
			Title:   "Missing Information",
			Message: err.Error(),
		})
		return Request{}, "", 0, err
	}

	lines := o.cart.Items()
	if len(lines) == 0 {
		err := &ValidationError{Message: "your cart is empty"}
		o.notifier.Notify(notify.Notification{
			Level:   notify.Error,
			Title:   "Cart Empty",
			Message: "Your cart is empty. Please add items before checking out.",
		})
		return Request{}, "", 0, err
	}

	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItem{ProductID: line.ID, Quantity: line.Quantity})
	}

	req := Request{
		RequestID:     uuid.NewString(),
		Items:         items,
		CustomerName:  strings.TrimSpace(form.Name),
		CustomerEmail: strings.TrimSpace(form.Email),
		CustomerPhone: strings.TrimSpace(form.Phone),
		Notes:         strings.TrimSpace(form.Notes),
		UserID:        s.Identity.ID,
	}

	o.state = Submitting
	o.cancelled = false
	o.gen++
	return req, s.Token, o.gen, nil
}

func (o *Orchestrator) finishSubmit(ctx context.Context, req Request, gen uint64, resp Response, submitErr error) error {
	o.mu.Lock()
	stale := gen != o.gen
	suppress := stale || o.cancelled
	if !stale {
		o.cancelled = false
	}
	o.mu.Unlock()

	if submitErr != nil {
		return o.handleFailure(ctx, submitErr, suppress)
	}

	if !stale {
		o.mu.Lock()
		o.lastOutcomes = resp.Outcomes
		o.mu.Unlock()
	}

	rejected := resp.RejectedIDs()
	switch {
	case len(rejected) == 0:
		return o.handleSuccess(ctx, resp, suppress)
	case len(rejected) == len(resp.Outcomes):
		// Nothing was accepted. The cart is untouched and the attempt
		// failed outright rather than partially.
		return o.handleFailure(ctx, fmt.Errorf("%w: no lines were accepted", ErrRejected), suppress)
	default:
		return o.handlePartial(ctx, resp, rejected, suppress)
	}
}

func (o *Orchestrator) handleSuccess(ctx context.Context, resp Response, suppress bool) error {
	if suppress {
		// The shopper left this submission behind but the order went
		// through. Keep the record straight without side effects.
		log.Printf("[Checkout] Order %s accepted after cancellation or supersession; side effects suppressed", resp.OrderID)
		return nil
	}

	if _, err := o.cart.Clear(ctx); err != nil {
		log.Printf("[Checkout] Order %s placed but cart clear failed: %v", resp.OrderID, err)
	}

	o.mu.Lock()
	o.state = Succeeded
	o.mu.Unlock()

	o.notifier.Notify(notify.Notification{
		Level:   notify.Info,
		Title:   "Order Placed Successfully!",
		Message: "Your order has been received. We'll contact you shortly!",
	})
	log.Printf("[Checkout] Order %s placed", resp.OrderID)
	return nil
}

func (o *Orchestrator) handlePartial(ctx context.Context, resp Response, rejected map[int]bool, suppress bool) error {
	if suppress {
		log.Printf("[Checkout] Order %s partially accepted after cancellation or supersession; side effects suppressed", resp.OrderID)
		return nil
	}

	// Accepted lines are ordered and leave the cart; the shopper retries
	// only the rejected remainder.
	if _, err := o.cart.RetainOnly(ctx, rejected); err != nil {
		log.Printf("[Checkout] Failed to trim cart after partial rejection: %v", err)
	}

	o.mu.Lock()
	o.state = PartiallyFailed
	o.mu.Unlock()

	for _, outcome := range resp.Outcomes {
		if outcome.Accepted {
			continue
		}
		o.notifier.Notify(notify.Notification{
			Level:   notify.Error,
			Title:   "Item Not Ordered",
			Message: fmt.Sprintf("product %d: %s", outcome.ProductID, outcome.Reason),
		})
	}
	log.Printf("[Checkout] Order %s partially rejected (%d of %d lines kept in cart)", resp.OrderID, len(rejected), len(resp.Outcomes))
	return nil
}

func (o *Orchestrator) handleFailure(ctx context.Context, submitErr error, suppress bool) error {
	if !suppress {
		o.mu.Lock()
		o.state = Failed
		o.mu.Unlock()
	}

	if errors.Is(submitErr, ErrUnauthorized) {
		// The token was rejected: the session is dead regardless of what
		// local expiry said. Teardown also redirects to login.
		log.Printf("[Checkout] Bearer token rejected, tearing down session")
		o.sessions.Logout(ctx)
		if !suppress {
			o.notifier.Notify(notify.Notification{
				Level:   notify.Error,
				Title:   "Session Expired",
				Message: "Please log in again to place your order.",
			})
		}
		return submitErr
	}

	if !suppress {
		// Cart is untouched: the shopper retries without re-entering items.
		o.notifier.Notify(notify.Notification{
			Level:   notify.Error,
			Title:   "Order Failed",
			Message: "There was a problem placing your order. Please try again.",
		})
	}
	log.Printf("[Checkout] Order submission failed: %v", submitErr)
	return submitErr
}

// Cancel dismisses the checkout flow back to Idle from any state, with no
// cart or session side effects. Terminal states (Succeeded, PartiallyFailed,
// Failed) are dismissed the same way once the shopper has seen the result.
// An in-flight submission is not aborted; its response will be processed
// with side effects suppressed.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == Submitting {
		o.cancelled = true
	}
	o.state = Idle
}

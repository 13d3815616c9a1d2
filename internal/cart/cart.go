// Package cart owns the in-process shopping cart: its line items, the
// derived totals, and the persisted snapshot that survives restarts.
//
// Mutations return structured results instead of notifying anyone directly;
// the presentation layer decides what a cap or a rejection looks like to the
// shopper. The store's only hard failures are storage-medium errors.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/voltworks/storefront/internal/catalog"
	"github.com/voltworks/storefront/internal/stock"
	"github.com/voltworks/storefront/internal/storage"
)

// Line is one product/quantity pair in the cart. The embedded product is the
// snapshot captured when the line was created; it is what stock checks run
// against until checkout consults the backend again.
type Line struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Subtotal is the line's contribution to the cart total.
func (l Line) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// Snapshot is the full ordered cart state, suitable for persistence.
type Snapshot []Line

// Status classifies the outcome of one cart mutation.
type Status int

const (
	// Added means a new line was created.
	Added Status = iota
	// Merged means an existing line absorbed the added quantity in full.
	Merged
	// Capped means the quantity was reduced to the product's stock ceiling.
	Capped
	// Rejected means stock could not cover the request and the cart is unchanged.
	Rejected
	// Updated means an existing line's quantity was replaced as requested.
	Updated
	// Removed means the line was deleted.
	Removed
	// Cleared means every line was deleted.
	Cleared
	// Noop means there was nothing to do (e.g. removing an absent line).
	Noop
)

func (s Status) String() string {
	switch s {
	case Added:
		return "added"
	case Merged:
		return "merged"
	case Capped:
		return "capped"
	case Rejected:
		return "rejected"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	case Cleared:
		return "cleared"
	case Noop:
		return "noop"
	default:
		return "unknown"
	}
}

// Result reports what a mutation did, with enough detail for the
// presentation layer to word a notification.
type Result struct {
	Status   Status
	Product  catalog.Product
	Quantity int // resulting line quantity; zero when the line is gone
	Limit    int // stock ceiling involved in a Capped/Rejected outcome
}

// Store is the authoritative in-process cart. Exactly one writer mutates it;
// the mutex makes that hold even if callers bring their own goroutines.
type Store struct {
	mu      sync.Mutex
	storage storage.Store

	lines Snapshot

	// Derived values, recomputed on every committed mutation.
	total float64
	count int

	subscribers []func(Snapshot)
}

// NewStore builds a cart backed by st and restores the persisted snapshot.
// A missing or corrupt snapshot yields an empty cart, never an error.
func NewStore(ctx context.Context, st storage.Store) *Store {
	s := &Store{storage: st}
	s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) {
	data, err := s.storage.Get(ctx, storage.KeyCart)
	if err != nil {
		return
	}

	var lines Snapshot
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Printf("[Cart] Corrupt persisted cart, starting empty: %v", err)
		return
	}
	s.lines = lines
	s.recompute()
}

// Subscribe registers fn to run after every committed mutation with a copy
// of the new snapshot. Subscribers run on the mutating goroutine.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// AddItem puts quantity units of p in the cart, merging into an existing
// line for the same product. Quantities below one behave as one, matching
// the storefront's add button.
func (s *Store) AddItem(ctx context.Context, p catalog.Product, quantity int) (Result, error) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.find(p.ID); i >= 0 {
		existing := s.lines[i]
		decision := stock.ValidateMerge(existing.Quantity, quantity, p)

		next := s.cloneLines()
		next[i].Quantity = decision.Quantity
		if err := s.commit(ctx, next); err != nil {
			return Result{}, err
		}
		if decision.Verdict == stock.Cap {
			// The line grows to the stock ceiling, not past it, and the
			// shopper is told rather than silently truncated.
			return Result{Status: Capped, Product: p, Quantity: decision.Quantity, Limit: p.Stock}, nil
		}
		return Result{Status: Merged, Product: p, Quantity: decision.Quantity}, nil
	}

	decision := stock.ValidateAdd(quantity, p)
	if decision.Verdict == stock.Reject {
		return Result{Status: Rejected, Product: p, Limit: p.Stock}, nil
	}

	next := append(s.cloneLines(), Line{Product: p, Quantity: decision.Quantity})
	if err := s.commit(ctx, next); err != nil {
		return Result{}, err
	}
	return Result{Status: Added, Product: p, Quantity: decision.Quantity}, nil
}

// RemoveItem deletes the line for productID. Removing an absent line is a Noop.
func (s *Store) RemoveItem(ctx context.Context, productID int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(productID)
	if i < 0 {
		return Result{Status: Noop}, nil
	}
	removed := s.lines[i]

	next := append(s.cloneLines()[:i], s.lines[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return Result{}, err
	}
	return Result{Status: Removed, Product: removed.Product}, nil
}

// UpdateQuantity replaces a line's quantity. Zero or negative removes the
// line; a request past the product snapshot's stock is capped and reported.
func (s *Store) UpdateQuantity(ctx context.Context, productID, quantity int) (Result, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(productID)
	if i < 0 {
		return Result{Status: Noop}, nil
	}
	line := s.lines[i]

	decision := stock.ValidateSet(quantity, line.Product)
	next := s.cloneLines()
	next[i].Quantity = decision.Quantity
	if err := s.commit(ctx, next); err != nil {
		return Result{}, err
	}

	if decision.Verdict == stock.Cap {
		return Result{Status: Capped, Product: line.Product, Quantity: decision.Quantity, Limit: line.Stock}, nil
	}
	return Result{Status: Updated, Product: line.Product, Quantity: decision.Quantity}, nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commit(ctx, Snapshot{}); err != nil {
		return Result{}, err
	}
	return Result{Status: Cleared}, nil
}

// RetainOnly keeps exactly the lines whose product IDs appear in keep and
// drops the rest. Checkout uses it after a partial rejection so the shopper
// retries only what actually failed.
func (s *Store) RetainOnly(ctx context.Context, keep map[int]bool) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(Snapshot, 0, len(s.lines))
	for _, line := range s.lines {
		if keep[line.ID] {
			next = append(next, line)
		}
	}
	if len(next) == len(s.lines) {
		return Result{Status: Noop}, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return Result{}, err
	}
	return Result{Status: Updated}, nil
}

// Items returns a copy of the current lines in insertion order.
func (s *Store) Items() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneLines()
}

// Total returns the memoized cart total formatted to two decimals.
func (s *Store) Total() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%.2f", s.total)
}

// ItemCount returns the memoized sum of all line quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Len returns the number of distinct lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

func (s *Store) find(productID int) int {
	for i, line := range s.lines {
		if line.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) cloneLines() Snapshot {
	out := make(Snapshot, len(s.lines))
	copy(out, s.lines)
	return out
}

// commit persists next and only then makes it the live state. A mutation is
// not complete until its snapshot write has succeeded, so a storage failure
// leaves the previous state intact.
func (s *Store) commit(ctx context.Context, next Snapshot) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}
	if err := s.storage.Set(ctx, storage.KeyCart, data); err != nil {
		return fmt.Errorf("failed to persist cart snapshot: %w", err)
	}

	s.lines = next
	s.recompute()

	if len(s.subscribers) > 0 {
		snapshot := s.cloneLines()
		for _, fn := range s.subscribers {
			fn(snapshot)
		}
	}
	return nil
}

func (s *Store) recompute() {
	total, count := 0.0, 0
	for _, line := range s.lines {
		total += line.Subtotal()
		count += line.Quantity
	}
	s.total = total
	s.count = count
}

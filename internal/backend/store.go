// Package backend is the reference implementation of the REST API the
// storefront consumes: login issuing bearer tokens, the product catalog,
// and order acceptance with an atomic per-batch stock decrement. It backs
// local development (cmd/shopd) and the end-to-end checkout tests.
package backend

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltworks/storefront/internal/catalog"
)

var (
	ErrUnknownProduct   = errors.New("unknown product")
	ErrDuplicateEmail   = errors.New("email already registered")
	ErrBadCredentials   = errors.New("invalid email or password")
	ErrNothingFulfilled = errors.New("no line item could be fulfilled")
)

// User is a registered account with a stored credential hash.
type User struct {
	ID           int
	Name         string
	Email        string
	Phone        string
	IsAdmin      bool
	PasswordHash string
}

// OrderLine is one accepted or rejected line of a placed order.
type OrderLine struct {
	ProductID int     `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Accepted  bool    `json:"accepted"`
	Reason    string  `json:"reason,omitempty"`
}

// Order is a stored order, including lines the backend turned down.
type Order struct {
	ID            string      `json:"orderId"`
	RequestID     string      `json:"requestId"`
	UserID        int         `json:"userId"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerPhone string      `json:"customerPhone"`
	Notes         string      `json:"notes,omitempty"`
	Lines         []OrderLine `json:"lines"`
	Total         float64     `json:"total"`
	PlacedAt      time.Time   `json:"placedAt"`
}

// AcceptedTotal sums the accepted lines.
func (o Order) AcceptedTotal() float64 {
	total := 0.0
	for _, l := range o.Lines {
		if l.Accepted {
			total += l.UnitPrice * float64(l.Quantity)
		}
	}
	return total
}

// Store holds the backend's catalog, accounts and orders in memory, with
// one mutex serializing writes the way a database transaction would.
type Store struct {
	mu         sync.Mutex
	products   map[int]*catalog.Product
	productIDs []int // preserves catalog order
	categories []catalog.Category
	users      map[int]*User
	nextUserID int
	orders     []Order
	// byRequest makes order placement idempotent: a retried request ID
	// replays the stored order instead of decrementing stock twice.
	byRequest map[string]*Order
}

func NewStore() *Store {
	return &Store{
		products:   make(map[int]*catalog.Product),
		users:      make(map[int]*User),
		nextUserID: 1,
		byRequest:  make(map[string]*Order),
	}
}

// SeedProduct adds or replaces a catalog entry.
func (s *Store) SeedProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; !exists {
		s.productIDs = append(s.productIDs, p.ID)
	}
	copied := p
	s.products[p.ID] = &copied
}

// SeedCategory adds a category.
func (s *Store) SeedCategory(c catalog.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// Products lists the catalog in seed order.
func (s *Store) Products() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Product, 0, len(s.productIDs))
	for _, id := range s.productIDs {
		out = append(out, *s.products[id])
	}
	return out
}

// Categories lists the categories.
func (s *Store) Categories() []catalog.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Stock returns the live stock for a product.
func (s *Store) Stock(productID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return 0, ErrUnknownProduct
	}
	return p.Stock, nil
}

// Register creates an account. The caller supplies the bcrypt hash.
func (s *Store) Register(name, email, phone, passwordHash string, isAdmin bool) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return User{}, ErrDuplicateEmail
		}
	}

	u := &User{
		ID:           s.nextUserID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		IsAdmin:      isAdmin,
		PasswordHash: passwordHash,
	}
	s.nextUserID++
	s.users[u.ID] = u
	return *u, nil
}

// UserByEmail looks an account up for login.
func (s *Store) UserByEmail(email string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return *u, true
		}
	}
	return User{}, false
}

// PlaceOrderRequest is the input to PlaceOrder.
type PlaceOrderRequest struct {
	RequestID     string
	UserID        int
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Notes         string
	Items         []struct {
		ProductID int
		Quantity  int
	}
}

// PlaceOrder applies one stock-decrement transaction for the batch. Each
// line is accepted only if live stock covers it in full; accepted lines
// decrement stock, rejected lines report why. A batch where nothing could
// be fulfilled is an error and decrements nothing. A replayed RequestID
// returns the original order unchanged.
func (s *Store) PlaceOrder(req PlaceOrderRequest) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.RequestID != "" {
		if existing, ok := s.byRequest[req.RequestID]; ok {
			return *existing, nil
		}
	}

	lines := make([]OrderLine, 0, len(req.Items))
	anyAccepted := false
	// claimed tracks stock already promised to earlier lines of this batch,
	// so duplicate product lines cannot each pass against full live stock.
	claimed := make(map[int]int)
	for _, item := range req.Items {
		line := OrderLine{ProductID: item.ProductID, Quantity: item.Quantity}
		p, ok := s.products[item.ProductID]
		switch {
		case !ok:
			line.Reason = "unknown product"
		case !p.IsActive:
			line.Reason = "product no longer available"
		case item.Quantity <= 0:
			line.Reason = "invalid quantity"
		case p.Stock-claimed[item.ProductID] < item.Quantity:
			line.Reason = "insufficient stock"
		default:
			line.Accepted = true
			line.UnitPrice = p.Price
			claimed[item.ProductID] += item.Quantity
			anyAccepted = true
		}
		lines = append(lines, line)
	}

	if !anyAccepted {
		return Order{}, ErrNothingFulfilled
	}

	// All checks passed before any decrement, so a half-applied batch is
	// impossible even if a later line fails.
	for _, line := range lines {
		if line.Accepted {
			s.products[line.ProductID].Stock -= line.Quantity
		}
	}

	order := Order{
		ID:            uuid.NewString(),
		RequestID:     req.RequestID,
		UserID:        req.UserID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		Lines:         lines,
		PlacedAt:      time.Now(),
	}
	order.Total = order.AcceptedTotal()

	s.orders = append(s.orders, order)
	if req.RequestID != "" {
		s.byRequest[req.RequestID] = &s.orders[len(s.orders)-1]
	}
	return order, nil
}

// OrdersForUser returns a user's orders, newest first.
func (s *Store) OrdersForUser(userID int) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].UserID == userID {
			out = append(out, s.orders[i])
		}
	}
	return out
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/voltworks/storefront/internal/backend/auth"
)

// Server wires the backend routes over a Store and a TokenService.
type Server struct {
	store     *Store
	tokens    *auth.TokenService
	publisher *EventPublisher
	orderLog  *OrderLog
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithEventPublisher publishes accepted orders to Kafka.
func WithEventPublisher(p *EventPublisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithOrderLog mirrors accepted orders into Postgres.
func WithOrderLog(l *OrderLog) Option {
	return func(s *Server) { s.orderLog = l }
}

func NewServer(store *Store, tokens *auth.TokenService, opts ...Option) *Server {
	s := &Server{store: store, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", methodOnly(http.MethodPost, s.handleLogin))
	mux.HandleFunc("/api/auth/register", methodOnly(http.MethodPost, s.handleRegister))
	mux.HandleFunc("/api/products", methodOnly(http.MethodGet, s.handleProducts))
	mux.HandleFunc("/api/categories", methodOnly(http.MethodGet, s.handleCategories))
	mux.HandleFunc("/api/orders", methodOnly(http.MethodPost, s.requireAuth(s.handlePlaceOrder)))
	mux.HandleFunc("/api/orders/me", methodOnly(http.MethodGet, s.requireAuth(s.handleMyOrders)))

	return mux
}

func methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			respondJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

type contextKey string

const claimsContextKey contextKey = "claims"

// requireAuth validates the bearer token and stashes its claims in context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		claims, err := s.tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsContextKey).(*auth.Claims)
	return claims
}

// ============ Auth endpoints ============

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	IsAdmin bool   `json:"isAdmin"`
}

type loginResponse struct {
	User  userPayload `json:"user"`
	Token string      `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, ok := s.store.UserByEmail(req.Email)
	if !ok || !auth.CheckPassword(req.Password, user.PasswordHash) {
		respondJSONError(w, ErrBadCredentials.Error(), http.StatusUnauthorized)
		return
	}

	token, _, err := s.tokens.Generate(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		respondJSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		User:  toUserPayload(user),
		Token: token,
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" {
		respondJSONError(w, "name and email are required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.store.Register(req.Name, req.Email, req.Phone, hash, false)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			respondJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	token, _, err := s.tokens.Generate(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		respondJSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, loginResponse{
		User:  toUserPayload(user),
		Token: token,
	})
}

func toUserPayload(u User) userPayload {
	return userPayload{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, IsAdmin: u.IsAdmin}
}

// ============ Catalog endpoints ============

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Products())
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Categories())
}

// ============ Order endpoints ============

type orderItemPayload struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

type placeOrderRequest struct {
	RequestID     string             `json:"requestId"`
	Items         []orderItemPayload `json:"items"`
	CustomerName  string             `json:"customerName"`
	CustomerEmail string             `json:"customerEmail"`
	CustomerPhone string             `json:"customerPhone"`
	Notes         string             `json:"notes"`
	UserID        int                `json:"userId"`
}

type lineOutcomePayload struct {
	ProductID int    `json:"productId"`
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
}

type placeOrderResponse struct {
	OrderID  string               `json:"orderId"`
	Outcomes []lineOutcomePayload `json:"outcomes"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		respondJSONError(w, "order has no items", http.StatusBadRequest)
		return
	}
	if req.CustomerName == "" || req.CustomerEmail == "" || req.CustomerPhone == "" {
		respondJSONError(w, "customer name, email and phone are required", http.StatusBadRequest)
		return
	}

	storeReq := PlaceOrderRequest{
		RequestID:     req.RequestID,
		UserID:        claims.UserID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		storeReq.Items = append(storeReq.Items, struct {
			ProductID int
			Quantity  int
		}{item.ProductID, item.Quantity})
	}

	order, err := s.store.PlaceOrder(storeReq)
	if err != nil {
		if errors.Is(err, ErrNothingFulfilled) {
			respondJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.recordOrder(r.Context(), order)

	resp := placeOrderResponse{OrderID: order.ID}
	for _, line := range order.Lines {
		resp.Outcomes = append(resp.Outcomes, lineOutcomePayload{
			ProductID: line.ProductID,
			Accepted:  line.Accepted,
			Reason:    line.Reason,
		})
	}
	respondJSON(w, http.StatusCreated, resp)
}

// recordOrder fans the accepted order out to the optional collaborators.
// Neither failure blocks the order; the in-memory store already holds it.
func (s *Server) recordOrder(ctx context.Context, order Order) {
	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
			log.Printf("[Backend] Failed to publish order %s: %v", order.ID, err)
		}
	}
	if s.orderLog != nil {
		if err := s.orderLog.Record(ctx, order); err != nil {
			log.Printf("[Backend] Failed to log order %s: %v", order.ID, err)
		}
	}
}

type orderSummaryPayload struct {
	OrderID  string             `json:"orderId"`
	Items    []orderItemPayload `json:"items"`
	Total    float64            `json:"total"`
	PlacedAt string             `json:"placedAt"`
	Status   string             `json:"status"`
}

func (s *Server) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	orders := s.store.OrdersForUser(claims.UserID)
	out := make([]orderSummaryPayload, 0, len(orders))
	for _, order := range orders {
		summary := orderSummaryPayload{
			OrderID:  order.ID,
			Total:    order.Total,
			PlacedAt: order.PlacedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
			Status:   "received",
		}
		for _, line := range order.Lines {
			if line.Accepted {
				summary.Items = append(summary.Items, orderItemPayload{
					ProductID: line.ProductID,
					Quantity:  line.Quantity,
				})
			}
		}
		out = append(out, summary)
	}
	respondJSON(w, http.StatusOK, out)
}

// ============ Helpers ============

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[Backend] Failed to encode response: %v", err)
	}
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

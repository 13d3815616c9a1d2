package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrUnauthorized means the backend rejected the bearer token. The
	// orchestrator tears the session down when it sees this.
	ErrUnauthorized = errors.New("order api: unauthorized")
	// ErrRejected means the backend refused the whole batch.
	ErrRejected = errors.New("order api: order rejected")
)

// OrderItem is one cart line as submitted to the backend.
type OrderItem struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// Request is the order submission: the whole cart in one atomic batch plus
// the customer's contact details. RequestID is a client-generated
// idempotency key, so a retried submission cannot double-order.
type Request struct {
	RequestID     string      `json:"requestId"`
	Items         []OrderItem `json:"items"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerPhone string      `json:"customerPhone"`
	Notes         string      `json:"notes,omitempty"`
	UserID        int         `json:"userId,omitempty"`
}

// LineOutcome is the backend's verdict on one submitted line.
type LineOutcome struct {
	ProductID int    `json:"productId"`
	Accepted  bool   `json:"accepted"`
	Reason    string `json:"reason,omitempty"`
}

// Response is the backend's answer to a submission. Outcomes may be empty,
// in which case the whole batch was accepted as one unit.
type Response struct {
	OrderID  string        `json:"orderId"`
	Outcomes []LineOutcome `json:"outcomes,omitempty"`
}

// AllAccepted reports whether every submitted line was accepted.
func (r Response) AllAccepted() bool {
	for _, o := range r.Outcomes {
		if !o.Accepted {
			return false
		}
	}
	return true
}

// RejectedIDs returns the product IDs the backend turned down.
func (r Response) RejectedIDs() map[int]bool {
	rejected := make(map[int]bool)
	for _, o := range r.Outcomes {
		if !o.Accepted {
			rejected[o.ProductID] = true
		}
	}
	return rejected
}

// OrderSummary is one historical order in the account view.
type OrderSummary struct {
	OrderID  string      `json:"orderId"`
	Items    []OrderItem `json:"items"`
	Total    float64     `json:"total"`
	PlacedAt time.Time   `json:"placedAt"`
	Status   string      `json:"status"`
}

// OrderAPI is the backend surface the orchestrator submits against.
type OrderAPI interface {
	SubmitOrder(ctx context.Context, token string, req Request) (Response, error)
}

// Client talks to the production order endpoints over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// SubmitOrder POSTs the batch to /api/orders with the bearer token attached.
func (c *Client) SubmitOrder(ctx context.Context, token string, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("order submission failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Response{}, ErrUnauthorized
	case resp.StatusCode >= 400:
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return Response{}, fmt.Errorf("%w: %s", ErrRejected, apiErr.Error)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("failed to decode order response: %w", err)
	}
	return out, nil
}

// OrderHistory fetches the authenticated user's past orders for the account
// surface.
func (c *Client) OrderHistory(ctx context.Context, token string) ([]OrderSummary, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/orders/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("order history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order history returned %d", resp.StatusCode)
	}

	var orders []OrderSummary
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, fmt.Errorf("failed to decode order history: %w", err)
	}
	return orders, nil
}

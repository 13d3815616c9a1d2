package stock

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voltworks/storefront/internal/catalog"
)

func activeProduct(stock int) catalog.Product {
	return catalog.Product{ID: 1, Name: "Circuit Breaker 32A", Price: 500, Stock: stock, IsActive: true}
}

// ============================================
// ValidateAdd Tests
// ============================================

func TestValidateAdd(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		product   catalog.Product
		want      Decision
	}{
		{"within stock", 2, activeProduct(5), Decision{Accept, 2}},
		{"exactly stock", 5, activeProduct(5), Decision{Accept, 5}},
		{"exceeds stock", 6, activeProduct(5), Decision{Reject, 0}},
		{"zero stock", 1, activeProduct(0), Decision{Reject, 0}},
		{"inactive product", 1, catalog.Product{ID: 2, Stock: 10, IsActive: false}, Decision{Reject, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateAdd(tt.requested, tt.product))
		})
	}
}

// ============================================
// ValidateMerge Tests
// ============================================

func TestValidateMerge(t *testing.T) {
	tests := []struct {
		name       string
		current    int
		additional int
		stock      int
		want       Decision
	}{
		{"fits", 2, 2, 5, Decision{Accept, 4}},
		{"fills stock exactly", 2, 3, 5, Decision{Accept, 5}},
		{"overflow caps", 4, 3, 5, Decision{Cap, 5}},
		{"already at stock", 5, 1, 5, Decision{Cap, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateMerge(tt.current, tt.additional, activeProduct(tt.stock)))
		})
	}
}

// ============================================
// ValidateSet Tests
// ============================================

func TestValidateSet(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		stock     int
		want      Decision
	}{
		{"within stock", 3, 5, Decision{Accept, 3}},
		{"exactly stock", 5, 5, Decision{Accept, 5}},
		{"over stock caps", 10, 5, Decision{Cap, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSet(tt.requested, activeProduct(tt.stock)))
		})
	}
}

// ============================================
// Property Tests
// ============================================

// For any stock and any request, a non-rejecting decision never grants a
// quantity outside (0, stock].
func TestGuard_QuantityNeverExceedsStock(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		stock := rng.Intn(50) + 1
		p := activeProduct(stock)

		requested := rng.Intn(100) + 1
		if d := ValidateAdd(requested, p); d.Verdict != Reject {
			assert.Greater(t, d.Quantity, 0)
			assert.LessOrEqual(t, d.Quantity, stock)
		}

		current := rng.Intn(stock) + 1
		additional := rng.Intn(100) + 1
		if d := ValidateMerge(current, additional, p); d.Verdict != Reject {
			assert.Greater(t, d.Quantity, 0)
			assert.LessOrEqual(t, d.Quantity, stock)
		}

		if d := ValidateSet(requested, p); d.Verdict != Reject {
			assert.Greater(t, d.Quantity, 0)
			assert.LessOrEqual(t, d.Quantity, stock)
		}
	}
}

// Validation is deterministic: the same inputs always produce the same decision.
func TestGuard_Deterministic(t *testing.T) {
	p := activeProduct(7)
	for requested := -1; requested <= 10; requested++ {
		assert.Equal(t, ValidateAdd(requested, p), ValidateAdd(requested, p))
		assert.Equal(t, ValidateSet(requested, p), ValidateSet(requested, p))
		assert.Equal(t, ValidateMerge(3, requested, p), ValidateMerge(3, requested, p))
	}
}

// Package stock decides whether a requested quantity can be honored against
// a product snapshot's known stock. It is pure validation: no state, no side
// effects, so the cart can apply its decisions and the UI can explain them.
package stock

import "github.com/voltworks/storefront/internal/catalog"

// Verdict classifies a quantity request.
type Verdict int

const (
	// Accept means the full requested quantity fits within stock.
	Accept Verdict = iota
	// Cap means the request exceeded stock and was reduced to the maximum
	// available. Callers must surface the cap, never apply it silently.
	Cap
	// Reject means the request cannot be honored at all and existing cart
	// state must stay unchanged.
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Cap:
		return "cap"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is the outcome of validating one quantity request.
type Decision struct {
	Verdict Verdict
	// Quantity is the quantity to apply: the requested amount on Accept,
	// the stock ceiling on Cap, zero on Reject.
	Quantity int
}

// ValidateAdd validates a first-time add of requested units of p. Per the
// storefront rules a first add that exceeds stock is rejected outright, not
// capped: the shopper asked for something the shop cannot provide and the
// cart must not guess at a substitute quantity.
func ValidateAdd(requested int, p catalog.Product) Decision {
	if !p.IsActive {
		return Decision{Verdict: Reject}
	}
	if requested > p.Stock {
		return Decision{Verdict: Reject}
	}
	return Decision{Verdict: Accept, Quantity: requested}
}

// ValidateMerge validates raising an existing line's quantity from current
// by additional units. Overflow caps at stock rather than rejecting, because
// the shopper already holds part of the quantity.
func ValidateMerge(current, additional int, p catalog.Product) Decision {
	if current+additional > p.Stock {
		return Decision{Verdict: Cap, Quantity: p.Stock}
	}
	return Decision{Verdict: Accept, Quantity: current + additional}
}

// ValidateSet validates replacing a line's quantity with requested units,
// checked against the original product snapshot's stock. Callers handle
// requested <= 0 as removal before consulting the guard.
func ValidateSet(requested int, p catalog.Product) Decision {
	if requested > p.Stock {
		return Decision{Verdict: Cap, Quantity: p.Stock}
	}
	return Decision{Verdict: Accept, Quantity: requested}
}

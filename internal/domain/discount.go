package domain

import "math"

// MaxDiscountPercent bounds every discount persisted or charged.
const MaxDiscountPercent = 15

// ClampDiscount is the only place discounts are bounded. Every trust boundary
// (game completion, checkout pricing, webhook materialization) goes through it.
func ClampDiscount(p float64) float64 {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	if p > MaxDiscountPercent {
		return MaxDiscountPercent
	}
	return p
}

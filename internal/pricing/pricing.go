// Package pricing computes authoritative line and order totals. Checkout and
// payment settlement both price through Price so the two never drift.
package pricing

import (
	"github.com/shopspring/decimal"

	"printarcade/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced cart line.
type Line struct {
	Item                     domain.CartItem
	DiscountPercent          float64
	DiscountedUnitPriceCents int64
	SubtotalCents            int64 // after discount
	DiscountCents            int64
}

// Quote is the full price of an order-to-be.
type Quote struct {
	Lines           []Line
	DiscountPercent float64 // aggregate claimed discount after clamping
	SubtotalCents   int64   // before discount
	DiscountCents   int64
	ShippingCents   int64
	TotalCents      int64
}

// Price applies clamped discounts to items. A line uses its own discount when
// it carries one, otherwise the aggregate claimed discount.
func Price(items []domain.CartItem, claimedPercent float64, shippingCents int64) Quote {
	aggregate := domain.ClampDiscount(claimedPercent)
	q := Quote{
		Lines:           make([]Line, 0, len(items)),
		DiscountPercent: aggregate,
		ShippingCents:   shippingCents,
	}
	for _, item := range items {
		pct := aggregate
		if item.DiscountPercent > 0 {
			pct = domain.ClampDiscount(item.DiscountPercent)
		}
		unit := DiscountedUnitPrice(item.UnitPriceCents, pct)
		qty := int64(item.Quantity)
		gross := item.UnitPriceCents * qty
		net := unit * qty
		q.Lines = append(q.Lines, Line{
			Item:                     item,
			DiscountPercent:          pct,
			DiscountedUnitPriceCents: unit,
			SubtotalCents:            net,
			DiscountCents:            gross - net,
		})
		q.SubtotalCents += gross
		q.DiscountCents += gross - net
	}
	q.TotalCents = q.SubtotalCents - q.DiscountCents + q.ShippingCents
	return q
}

// DiscountedUnitPrice returns unit × (100 − pct) / 100 rounded half up to a cent.
func DiscountedUnitPrice(unitCents int64, pct float64) int64 {
	pct = domain.ClampDiscount(pct)
	factor := hundred.Sub(decimal.NewFromFloat(pct)).Div(hundred)
	return decimal.NewFromInt(unitCents).Mul(factor).Round(0).IntPart()
}

// Cents formats minor units as a decimal string, e.g. 1999 -> "19.99".
func Cents(c int64) string {
	return decimal.New(c, -2).StringFixed(2)
}

// ParseCents parses a decimal amount such as "4.99" into minor units,
// rounding half up to the cent.
func ParseCents(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, err
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

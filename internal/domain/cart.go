package domain

import (
	"regexp"
	"time"
)

var sessionTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

// ValidSessionToken reports whether token has the shape of an anonymous
// storefront session token.
func ValidSessionToken(token string) bool {
	return sessionTokenPattern.MatchString(token)
}

// CartItem is a line as the storefront client holds it.
type CartItem struct {
	ProductID         string  `json:"productId" validate:"required,max=64"`
	VariantID         string  `json:"variantId,omitempty"`
	ExternalVariantID string  `json:"externalVariantId" validate:"required,max=64"`
	Name              string  `json:"name" validate:"max=200"`
	UnitPriceCents    int64   `json:"unitPriceCents" validate:"gt=0"`
	Quantity          int     `json:"quantity" validate:"min=1,max=99"`
	DiscountPercent   float64 `json:"discountPercent,omitempty"`
	ImageURL          string  `json:"imageUrl,omitempty"`
}

// DiscountGrant is a game-earned discount the client attached to a product.
type DiscountGrant struct {
	Percent   float64   `json:"percent"`
	GameType  string    `json:"gameType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionCart mirrors the client's cart for cross-device continuity.
type SessionCart struct {
	Items          []CartItem               `json:"items"`
	DiscountGrants map[string]DiscountGrant `json:"discountGrants,omitempty"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

// CartSnapshot is the immutable order-to-be captured when a checkout session
// is created and consumed once by payment settlement.
type CartSnapshot struct {
	OrderID         string       `json:"orderId"`
	Items           []CartItem   `json:"items"`
	Shipping        ShippingInfo `json:"shipping"`
	ShippingCents   int64        `json:"shippingCents"`
	DiscountPercent float64      `json:"discountPercent"`
	CreatedAt       time.Time    `json:"createdAt"`
}

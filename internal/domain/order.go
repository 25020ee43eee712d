package domain

import "time"

// OrderStatus is the local view of an order's fulfillment lifecycle.
type OrderStatus string

const (
	StatusDraft      OrderStatus = "draft"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusOnHold     OrderStatus = "on_hold"
	StatusPartial    OrderStatus = "partial"
	StatusFulfilled  OrderStatus = "fulfilled"
	StatusShipped    OrderStatus = "shipped"
	StatusCancelled  OrderStatus = "cancelled"
	StatusFailed     OrderStatus = "failed"
)

var afterConfirmed = []OrderStatus{
	StatusProcessing, StatusOnHold, StatusPartial, StatusFulfilled,
	StatusShipped, StatusCancelled, StatusFailed,
}

// transitions lists the allowed moves out of each status. shipped, cancelled
// and failed are sinks. on_hold is deliberately not a sink: the provider sends
// order_remove_hold and the order resumes in whatever state the provider
// reports. processing may pass through partial when only some items ship. A
// fulfilled order still becomes shipped when its package_shipped event arrives
// afterwards.
var transitions = map[OrderStatus][]OrderStatus{
	StatusDraft:      append([]OrderStatus{StatusConfirmed}, afterConfirmed...),
	StatusConfirmed:  afterConfirmed,
	StatusProcessing: {StatusPartial, StatusFulfilled, StatusShipped, StatusCancelled, StatusFailed},
	StatusPartial:    {StatusFulfilled, StatusShipped, StatusCancelled, StatusFailed},
	StatusOnHold:     {StatusConfirmed, StatusProcessing, StatusPartial, StatusFulfilled, StatusShipped, StatusCancelled, StatusFailed},
	StatusFulfilled:  {StatusShipped},
}

// CanTransition reports whether an order may move from one status to another.
// Staying in the same status is always allowed so redelivered events are no-ops.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Address is a postal shipping address.
type Address struct {
	Address1    string `json:"address1" validate:"required,max=200"`
	Address2    string `json:"address2,omitempty" validate:"max=200"`
	City        string `json:"city" validate:"required,max=100"`
	StateCode   string `json:"stateCode,omitempty" validate:"max=10"`
	CountryCode string `json:"countryCode" validate:"required,len=2"`
	Zip         string `json:"zip" validate:"required,max=20"`
}

// ShippingInfo is the customer contact and destination captured at checkout.
type ShippingInfo struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   string  `json:"phone,omitempty" validate:"max=40"`
	Address Address `json:"address"`
}

type Order struct {
	ID                 string          `json:"id"`
	CustomerName       string          `json:"customerName"`
	CustomerEmail      string          `json:"customerEmail"`
	CustomerPhone      string          `json:"customerPhone,omitempty"`
	ShippingAddress    Address         `json:"shippingAddress"`
	SubtotalCents      int64           `json:"subtotalCents"`
	DiscountCents      int64           `json:"discountCents"`
	ShippingCents      int64           `json:"shippingCents"`
	TotalCents         int64           `json:"totalCents"`
	FulfillmentOrderID string          `json:"fulfillmentOrderId,omitempty"`
	Status             OrderStatus     `json:"status"`
	PaymentSessionID   string          `json:"paymentSessionId,omitempty"`
	PaymentIntentID    string          `json:"paymentIntentId,omitempty"`
	TrackingNumber     string          `json:"trackingNumber,omitempty"`
	TrackingURL        string          `json:"trackingUrl,omitempty"`
	Carrier            string          `json:"carrier,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	ConfirmedAt        *time.Time      `json:"confirmedAt,omitempty"`
	ShippedAt          *time.Time      `json:"shippedAt,omitempty"`
	Items              []OrderLineItem `json:"items,omitempty"`
}

type OrderLineItem struct {
	OrderID           string  `json:"orderId"`
	ProductID         string  `json:"productId"`
	VariantID         string  `json:"variantId,omitempty"`
	Name              string  `json:"name"`
	UnitPriceCents    int64   `json:"unitPriceCents"`
	Quantity          int     `json:"quantity"`
	DiscountPercent   float64 `json:"discountPercent"`
	SubtotalCents     int64   `json:"subtotalCents"`
	ExternalVariantID string  `json:"externalVariantId"`
}

// Shipment is the tracking data attached when a package leaves the provider.
type Shipment struct {
	TrackingNumber string
	TrackingURL    string
	Carrier        string
	ShippedAt      time.Time
}

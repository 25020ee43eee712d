// Package notify sends customer notifications. Delivery is fire-and-forget:
// callers log failures and move on.
package notify

import (
	"context"
	"io"
	"log"
	"strconv"
	"time"

	"printarcade/internal/domain"
	"printarcade/internal/pricing"
)

type Kind string

const (
	KindOrderConfirmation    Kind = "order_confirmation"
	KindShippingConfirmation Kind = "shipping_confirmation"
)

// Notification is the template-free message handed to the mail pipeline.
type Notification struct {
	Kind      Kind              `json:"kind"`
	To        string            `json:"to"`
	Name      string            `json:"name"`
	OrderID   string            `json:"orderId"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// OrderConfirmation builds the message sent once an order is materialized.
func OrderConfirmation(o *domain.Order) Notification {
	return Notification{
		Kind:    KindOrderConfirmation,
		To:      o.CustomerEmail,
		Name:    o.CustomerName,
		OrderID: o.ID,
		Fields: map[string]string{
			"subtotal": pricing.Cents(o.SubtotalCents),
			"discount": pricing.Cents(o.DiscountCents),
			"shipping": pricing.Cents(o.ShippingCents),
			"total":    pricing.Cents(o.TotalCents),
			"items":    itemCount(o.Items),
		},
		CreatedAt: time.Now().UTC(),
	}
}

// ShippingConfirmation builds the message sent when a package ships.
func ShippingConfirmation(o *domain.Order, s domain.Shipment) Notification {
	return Notification{
		Kind:    KindShippingConfirmation,
		To:      o.CustomerEmail,
		Name:    o.CustomerName,
		OrderID: o.ID,
		Fields: map[string]string{
			"trackingNumber": s.TrackingNumber,
			"trackingUrl":    s.TrackingURL,
			"carrier":        s.Carrier,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func itemCount(items []domain.OrderLineItem) string {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return strconv.Itoa(n)
}

// LogSender writes notifications to a logger. Used when no broker is configured.
type LogSender struct {
	logger *log.Logger
}

func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.logger.Printf("notify: kind=%s order_id=%s to=%s", n.Kind, n.OrderID, n.To)
	return nil
}

package order

import (
	"context"
	"time"

	"printarcade/internal/domain"
)

// Repository is the durable order ledger. Orders and their line items are
// written once at settlement; afterwards only status and tracking change.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByFulfillmentID(ctx context.Context, fulfillmentOrderID string) (*domain.Order, error)
	ListItems(ctx context.Context, orderID string) ([]domain.OrderLineItem, error)
	CreateWithItems(ctx context.Context, o *domain.Order) error
	MarkConfirmed(ctx context.Context, id string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	AttachShipment(ctx context.Context, id string, s domain.Shipment) error
}

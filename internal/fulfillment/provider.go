// Package fulfillment talks to the print-on-demand provider that produces
// and ships orders.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printarcade/internal/domain"
)

// ProviderName tags fulfillment webhook events.
const ProviderName = "printful"

// ErrNotFound is returned when the provider does not know the requested resource.
var ErrNotFound = errors.New("fulfillment resource not found")

type Recipient struct {
	Name        string
	Email       string
	Phone       string
	Address1    string
	Address2    string
	City        string
	StateCode   string
	CountryCode string
	Zip         string
}

// RecipientFrom converts checkout shipping info to a provider recipient.
func RecipientFrom(s domain.ShippingInfo) Recipient {
	return Recipient{
		Name:        s.Name,
		Email:       s.Email,
		Phone:       s.Phone,
		Address1:    s.Address.Address1,
		Address2:    s.Address.Address2,
		City:        s.Address.City,
		StateCode:   s.Address.StateCode,
		CountryCode: s.Address.CountryCode,
		Zip:         s.Address.Zip,
	}
}

type Item struct {
	ExternalVariantID string
	Name              string
	Quantity          int
	RetailPriceCents  int64
}

type DraftOrder struct {
	ExternalID string
	Recipient  Recipient
	Items      []Item
}

// Order is the provider's view of an order. Status uses provider vocabulary.
type Order struct {
	ID         string
	ExternalID string
	Status     string
	CreatedAt  time.Time
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fulfillment provider status %d: %s", e.StatusCode, e.Message)
}

// Provider is the port used by checkout, settlement and reconciliation.
type Provider interface {
	EstimateShipping(ctx context.Context, to Recipient, items []Item) (int64, error)
	CreateDraftOrder(ctx context.Context, order DraftOrder) (*Order, error)
	ConfirmOrder(ctx context.Context, id string) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, status string) ([]Order, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Provider order statuses.
const (
	ProviderDraft     = "draft"
	ProviderPending   = "pending"
	ProviderInProcess = "inprocess"
	ProviderOnHold    = "onhold"
	ProviderPartial   = "partial"
	ProviderFulfilled = "fulfilled"
	ProviderCanceled  = "canceled"
	ProviderFailed    = "failed"
)

var statusMap = map[string]domain.OrderStatus{
	ProviderDraft:     domain.StatusDraft,
	ProviderPending:   domain.StatusConfirmed,
	ProviderInProcess: domain.StatusProcessing,
	ProviderOnHold:    domain.StatusOnHold,
	ProviderPartial:   domain.StatusPartial,
	ProviderFulfilled: domain.StatusFulfilled,
	ProviderCanceled:  domain.StatusCancelled,
	ProviderFailed:    domain.StatusFailed,
}

// MapStatus translates provider status vocabulary to the local state machine.
// Unknown vocabulary reports false.
func MapStatus(providerStatus string) (domain.OrderStatus, bool) {
	s, ok := statusMap[providerStatus]
	return s, ok
}

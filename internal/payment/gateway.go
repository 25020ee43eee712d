package payment

import (
	"context"
	"errors"
)

// ProviderName tags events from the hosted payment gateway in the processed
// event log.
const ProviderName = "stripe"

var (
	// ErrInvalidSignature means the webhook payload could not be authenticated.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent means the payload was authentic but its data object
	// could not be decoded.
	ErrMalformedEvent = errors.New("malformed webhook event")
	// ErrSessionNotFound means the gateway does not know the session id.
	ErrSessionNotFound = errors.New("checkout session not found")
)

// Event types that mean the customer has paid.
const (
	EventCheckoutCompleted             = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// LineItem is one priced line shown on the hosted checkout page. UnitAmountCents
// is already discounted.
type LineItem struct {
	Name            string
	ImageURL        string
	UnitAmountCents int64
	Quantity        int64
}

type SessionRequest struct {
	OrderID       string
	CustomerEmail string
	Lines         []LineItem
	ShippingCents int64
	ShippingLabel string
	Metadata      map[string]string
}

// Session is the gateway's view of a hosted checkout session.
type Session struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   string
	CustomerEmail   string
	AmountTotal     int64
	PaymentIntentID string
	Metadata        map[string]string
}

// Event is an authenticated webhook delivery. Session is set for checkout
// session events.
type Event struct {
	ID      string
	Type    string
	Session *Session
}

// IsCompletion reports whether the event means the session has been paid.
func (e *Event) IsCompletion() bool {
	return e.Type == EventCheckoutCompleted || e.Type == EventCheckoutAsyncPaymentSucceeded
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, id string) (*Session, error)
	ParseEvent(payload []byte, signatureHeader string) (*Event, error)
}

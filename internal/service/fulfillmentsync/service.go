// Package fulfillmentsync applies fulfillment-provider webhook events to the
// local order ledger. Events are keyed by the provider's order id.
package fulfillmentsync

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log"
	"time"

	"printarcade/internal/domain"
	"printarcade/internal/fulfillment"
	"printarcade/internal/notify"
)

type Outcome string

const (
	OutcomeApplied            Outcome = "applied"
	OutcomeIgnored            Outcome = "ignored"
	OutcomeUnknownOrder       Outcome = "unknown_order"
	OutcomeTransitionRejected Outcome = "transition_rejected"
	OutcomeCatalogInvalidated Outcome = "catalog_invalidated"
	OutcomeError              Outcome = "error"
)

type Result struct {
	Outcome Outcome            `json:"outcome"`
	OrderID string             `json:"orderId,omitempty"`
	Status  domain.OrderStatus `json:"status,omitempty"`
}

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByFulfillmentID(ctx context.Context, fulfillmentOrderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	AttachShipment(ctx context.Context, id string, s domain.Shipment) error
}

type catalogCache interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	orders   orderRepo
	catalog  catalogCache
	notifier notify.Sender
	secret   string
	logger   *log.Logger
	now      func() time.Time
}

func New(orders orderRepo, catalog catalogCache, notifier notify.Sender, secret string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if notifier == nil {
		notifier = notify.NewLogSender(logger)
	}
	return &Service{orders: orders, catalog: catalog, notifier: notifier, secret: secret, logger: logger, now: time.Now}
}

// Authenticate checks the shared webhook secret. With no secret configured
// every delivery is accepted.
func (s *Service) Authenticate(token string) error {
	if s.secret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) != 1 {
		return domain.AuthenticationError("invalid fulfillment webhook token", nil)
	}
	return nil
}

// HandleEvent applies one delivery. Redelivery is safe: status and tracking
// writes are idempotent. Ledger failures come back as OutcomeError together
// with the error. The shipping notification is not deduplicated and
// may be sent again on redelivery.
func (s *Service) HandleEvent(ctx context.Context, ev *fulfillment.Event) (Result, error) {
	if ev.IsProductEvent() {
		if s.catalog != nil {
			if err := s.catalog.Invalidate(ctx); err != nil {
				return Result{Outcome: OutcomeError}, domain.PersistenceError("invalidate catalog cache", err)
			}
		}
		return Result{Outcome: OutcomeCatalogInvalidated}, nil
	}

	target, ok := s.targetStatus(ev)
	if !ok {
		s.logger.Printf("fulfillment sync: ignore type=%s provider_status=%s fulfillment_id=%s", ev.Type, ev.Status, ev.OrderID)
		return Result{Outcome: OutcomeIgnored}, nil
	}

	order, err := s.lookup(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("fulfillment sync: unknown order type=%s fulfillment_id=%s external_id=%s", ev.Type, ev.OrderID, ev.ExternalID)
			return Result{Outcome: OutcomeUnknownOrder}, nil
		}
		return Result{Outcome: OutcomeError}, domain.PersistenceError("lookup order", err)
	}
	res := Result{OrderID: order.ID, Status: order.Status}

	var shipment *domain.Shipment
	if ev.Type == fulfillment.EventPackageShipped {
		shipment = s.shipmentFrom(ev)
		if err := s.orders.AttachShipment(ctx, order.ID, *shipment); err != nil {
			res.Outcome = OutcomeError
			return res, domain.PersistenceError("attach shipment", err)
		}
	}

	if !domain.CanTransition(order.Status, target) {
		s.logger.Printf("fulfillment sync: reject transition order_id=%s from=%s to=%s type=%s", order.ID, order.Status, target, ev.Type)
		res.Outcome = OutcomeTransitionRejected
		return res, nil
	}
	if target != order.Status {
		if err := s.orders.UpdateStatus(ctx, order.ID, target); err != nil {
			res.Outcome = OutcomeError
			return res, domain.PersistenceError("update order status", err)
		}
		s.logger.Printf("fulfillment sync: order_id=%s %s -> %s", order.ID, order.Status, target)
	}
	res.Status = target
	res.Outcome = OutcomeApplied

	if shipment != nil {
		if err := s.notifier.Send(ctx, notify.ShippingConfirmation(order, *shipment)); err != nil {
			s.logger.Printf("fulfillment sync: %v order_id=%s", domain.NotificationError("shipping confirmation", err), order.ID)
		}
	}
	return res, nil
}

func (s *Service) targetStatus(ev *fulfillment.Event) (domain.OrderStatus, bool) {
	switch ev.Type {
	case fulfillment.EventPackageShipped:
		return domain.StatusShipped, true
	case fulfillment.EventOrderCanceled:
		return domain.StatusCancelled, true
	case fulfillment.EventOrderFailed:
		return domain.StatusFailed, true
	case fulfillment.EventOrderPutHold:
		return domain.StatusOnHold, true
	case fulfillment.EventOrderUpdated, fulfillment.EventOrderRemoveHold:
		return fulfillment.MapStatus(ev.Status)
	}
	return "", false
}

func (s *Service) lookup(ctx context.Context, ev *fulfillment.Event) (*domain.Order, error) {
	if ev.OrderID != "" {
		o, err := s.orders.GetByFulfillmentID(ctx, ev.OrderID)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return o, err
		}
	}
	if ev.ExternalID != "" {
		return s.orders.GetByID(ctx, ev.ExternalID)
	}
	return nil, domain.ErrNotFound
}

func (s *Service) shipmentFrom(ev *fulfillment.Event) *domain.Shipment {
	sh := &domain.Shipment{ShippedAt: s.now().UTC()}
	if info := ev.Shipment; info != nil {
		sh.TrackingNumber = info.TrackingNumber
		sh.TrackingURL = info.TrackingURL
		sh.Carrier = info.Carrier
		if !info.ShippedAt.IsZero() {
			sh.ShippedAt = info.ShippedAt
		}
	}
	return sh
}

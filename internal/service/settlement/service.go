// Package settlement turns a paid checkout session into a durable order and
// a fulfillment-provider order, exactly once per order id.
package settlement

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"printarcade/internal/domain"
	"printarcade/internal/fulfillment"
	"printarcade/internal/kvstore"
	"printarcade/internal/notify"
	"printarcade/internal/payment"
	"printarcade/internal/pricing"
	"printarcade/internal/service/checkout"
)

// Outcome describes what a payment webhook delivery did. Every outcome is
// acknowledged to the gateway.
type Outcome string

const (
	OutcomeIgnored         Outcome = "ignored"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeMaterialized    Outcome = "materialized"
	OutcomeMissingOrderID  Outcome = "missing_order_id"
	OutcomeMissingSnapshot Outcome = "missing_snapshot"
	OutcomeProviderError   Outcome = "provider_error"
	OutcomeError           Outcome = "error"
)

type Result struct {
	Outcome   Outcome            `json:"outcome"`
	EventID   string             `json:"-"`
	OrderID   string             `json:"orderId,omitempty"`
	Status    domain.OrderStatus `json:"status,omitempty"`
	Confirmed bool               `json:"-"`
}

type eventParser interface {
	ParseEvent(payload []byte, signatureHeader string) (*payment.Event, error)
}

type eventLog interface {
	Seen(ctx context.Context, provider, eventID string) (bool, error)
	Record(ctx context.Context, provider, eventID, eventType string) error
}

type orderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByFulfillmentID(ctx context.Context, fulfillmentOrderID string) (*domain.Order, error)
	CreateWithItems(ctx context.Context, o *domain.Order) error
	MarkConfirmed(ctx context.Context, id string, at time.Time) error
}

type provider interface {
	CreateDraftOrder(ctx context.Context, order fulfillment.DraftOrder) (*fulfillment.Order, error)
	ConfirmOrder(ctx context.Context, id string) (*fulfillment.Order, error)
	ListOrders(ctx context.Context, status string) ([]fulfillment.Order, error)
}

type Service struct {
	gateway  eventParser
	events   eventLog
	orders   orderRepo
	store    kvstore.Store
	provider provider
	notifier notify.Sender
	logger   *log.Logger
	now      func() time.Time
}

// New wires the reconciler. events may be nil, in which case only the
// order-existence guard protects against redelivery.
func New(gw eventParser, events eventLog, orders orderRepo, store kvstore.Store, p provider, notifier notify.Sender, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if notifier == nil {
		notifier = notify.NewLogSender(logger)
	}
	return &Service{
		gateway:  gw,
		events:   events,
		orders:   orders,
		store:    store,
		provider: p,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// HandlePaymentEvent authenticates and settles one payment webhook delivery.
// The only error returned is an authentication failure; everything after a
// valid signature, including an undecodable data object, is reported through
// Result and the log.
func (s *Service) HandlePaymentEvent(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	ev, err := s.gateway.ParseEvent(payload, signatureHeader)
	if errors.Is(err, payment.ErrMalformedEvent) {
		s.logger.Printf("settlement: undecodable event bytes=%d error=%v", len(payload), err)
		return Result{Outcome: OutcomeError}, nil
	}
	if err != nil {
		s.logger.Printf("settlement: reject payload bytes=%d error=%v", len(payload), err)
		return Result{}, domain.AuthenticationError("invalid payment webhook signature", err)
	}
	res := Result{EventID: ev.ID}

	if !ev.IsCompletion() || ev.Session == nil {
		s.logger.Printf("settlement: ignore event_id=%s type=%s", ev.ID, ev.Type)
		res.Outcome = OutcomeIgnored
		return res, nil
	}

	if s.events != nil {
		seen, err := s.events.Seen(ctx, payment.ProviderName, ev.ID)
		if err != nil {
			s.logger.Printf("settlement: event log lookup event_id=%s error=%v", ev.ID, err)
		} else if seen {
			s.logger.Printf("settlement: %v event_id=%s", domain.DuplicateEvent("event already processed"), ev.ID)
			res.Outcome = OutcomeDuplicate
			return res, nil
		}
	}

	orderID := ev.Session.Metadata["orderId"]
	res.OrderID = orderID
	if orderID == "" {
		s.logger.Printf("settlement: missing orderId metadata event_id=%s session_id=%s", ev.ID, ev.Session.ID)
		res.Outcome = OutcomeMissingOrderID
		return res, nil
	}

	res.Outcome, res.Status, res.Confirmed = s.materialize(ctx, ev, orderID)
	switch res.Outcome {
	case OutcomeMaterialized, OutcomeDuplicate:
		s.recordEvent(ctx, ev)
	}
	return res, nil
}

func (s *Service) materialize(ctx context.Context, ev *payment.Event, orderID string) (Outcome, domain.OrderStatus, bool) {
	existing, err := s.orders.GetByID(ctx, orderID)
	switch {
	case err == nil:
		s.logger.Printf("settlement: %v order_id=%s event_id=%s status=%s", domain.DuplicateEvent("order already materialized"), orderID, ev.ID, existing.Status)
		return OutcomeDuplicate, existing.Status, false
	case !errors.Is(err, domain.ErrNotFound):
		s.logger.Printf("settlement: order lookup order_id=%s error=%v", orderID, domain.PersistenceError("lookup order", err))
		return OutcomeError, "", false
	}

	var snap domain.CartSnapshot
	if err := kvstore.GetJSON(ctx, s.store, checkout.SnapshotKey(orderID), &snap); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("settlement: MANUAL RECONCILIATION snapshot missing order_id=%s session_id=%s email=%s amount_total=%d",
				orderID, ev.Session.ID, ev.Session.CustomerEmail, ev.Session.AmountTotal)
			return OutcomeMissingSnapshot, "", false
		}
		s.logger.Printf("settlement: load snapshot order_id=%s error=%v", orderID, err)
		return OutcomeError, "", false
	}

	quote := pricing.Price(snap.Items, snap.DiscountPercent, snap.ShippingCents)
	order := buildOrder(orderID, snap, quote, ev.Session)

	draft, err := s.provider.CreateDraftOrder(ctx, draftFor(order, snap.Shipping))
	if err != nil {
		s.logger.Printf("settlement: create fulfillment draft order_id=%s error=%v", orderID, domain.ExternalProviderError("create draft", err))
		return OutcomeProviderError, "", false
	}
	order.FulfillmentOrderID = draft.ID

	if err := s.orders.CreateWithItems(ctx, order); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Printf("settlement: %v order_id=%s orphan_fulfillment_id=%s", domain.DuplicateEvent("concurrent insert"), orderID, draft.ID)
			return OutcomeDuplicate, "", false
		}
		s.logger.Printf("settlement: persist order order_id=%s orphan_fulfillment_id=%s error=%v", orderID, draft.ID, domain.PersistenceError("persist order", err))
		return OutcomeError, "", false
	}

	status := domain.StatusDraft
	confirmed := false
	if _, err := s.provider.ConfirmOrder(ctx, draft.ID); err != nil {
		s.logger.Printf("settlement: confirm fulfillment order_id=%s fulfillment_id=%s error=%v", orderID, draft.ID, err)
	} else if err := s.orders.MarkConfirmed(ctx, orderID, s.now().UTC()); err != nil {
		s.logger.Printf("settlement: mark confirmed order_id=%s error=%v", orderID, err)
	} else {
		status = domain.StatusConfirmed
		confirmed = true
	}
	order.Status = status

	if err := s.notifier.Send(ctx, notify.OrderConfirmation(order)); err != nil {
		s.logger.Printf("settlement: %v order_id=%s", domain.NotificationError("order confirmation", err), orderID)
	}

	if err := s.store.Delete(ctx, checkout.SnapshotKey(orderID)); err != nil {
		s.logger.Printf("settlement: delete snapshot order_id=%s error=%v", orderID, err)
	}
	s.logger.Printf("settlement: materialized order_id=%s fulfillment_id=%s status=%s total_cents=%d discount_cents=%d",
		orderID, draft.ID, status, order.TotalCents, order.DiscountCents)
	return OutcomeMaterialized, status, confirmed
}

func (s *Service) recordEvent(ctx context.Context, ev *payment.Event) {
	if s.events == nil || ev.ID == "" {
		return
	}
	if err := s.events.Record(ctx, payment.ProviderName, ev.ID, ev.Type); err != nil {
		s.logger.Printf("settlement: record event event_id=%s error=%v", ev.ID, err)
	}
}

func buildOrder(orderID string, snap domain.CartSnapshot, quote pricing.Quote, sess *payment.Session) *domain.Order {
	email := snap.Shipping.Email
	if email == "" {
		email = sess.CustomerEmail
	}
	o := &domain.Order{
		ID:               orderID,
		CustomerName:     snap.Shipping.Name,
		CustomerEmail:    email,
		CustomerPhone:    snap.Shipping.Phone,
		ShippingAddress:  snap.Shipping.Address,
		SubtotalCents:    quote.SubtotalCents,
		DiscountCents:    quote.DiscountCents,
		ShippingCents:    quote.ShippingCents,
		TotalCents:       quote.TotalCents,
		Status:           domain.StatusDraft,
		PaymentSessionID: sess.ID,
		PaymentIntentID:  sess.PaymentIntentID,
	}
	for _, line := range quote.Lines {
		o.Items = append(o.Items, domain.OrderLineItem{
			OrderID:           orderID,
			ProductID:         line.Item.ProductID,
			VariantID:         line.Item.VariantID,
			Name:              line.Item.Name,
			UnitPriceCents:    line.Item.UnitPriceCents,
			Quantity:          line.Item.Quantity,
			DiscountPercent:   line.DiscountPercent,
			SubtotalCents:     line.SubtotalCents,
			ExternalVariantID: line.Item.ExternalVariantID,
		})
	}
	return o
}

func draftFor(o *domain.Order, shipping domain.ShippingInfo) fulfillment.DraftOrder {
	d := fulfillment.DraftOrder{ExternalID: o.ID, Recipient: fulfillment.RecipientFrom(shipping)}
	for _, it := range o.Items {
		unit := it.UnitPriceCents
		if it.Quantity > 0 {
			unit = it.SubtotalCents / int64(it.Quantity)
		}
		d.Items = append(d.Items, fulfillment.Item{
			ExternalVariantID: it.ExternalVariantID,
			Name:              it.Name,
			Quantity:          it.Quantity,
			RetailPriceCents:  unit,
		})
	}
	return d
}

// FindOrphanDrafts lists provider draft orders with no local order. These
// arise when the provider draft was created but the local write failed.
func (s *Service) FindOrphanDrafts(ctx context.Context) ([]fulfillment.Order, error) {
	drafts, err := s.provider.ListOrders(ctx, fulfillment.ProviderDraft)
	if err != nil {
		return nil, domain.ExternalProviderError("list draft orders", err)
	}
	var orphans []fulfillment.Order
	for _, d := range drafts {
		_, err := s.orders.GetByFulfillmentID(ctx, d.ID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			orphans = append(orphans, d)
		case err != nil:
			return nil, domain.PersistenceError("lookup order by fulfillment id", err)
		}
	}
	s.logger.Printf("settlement: orphan sweep drafts=%d orphans=%d", len(drafts), len(orphans))
	return orphans, nil
}

// Package checkout prices a cart, snapshots it and opens a hosted payment
// session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"printarcade/internal/domain"
	"printarcade/internal/fulfillment"
	"printarcade/internal/kvstore"
	"printarcade/internal/payment"
	"printarcade/internal/pricing"
)

const (
	snapshotPrefix     = "checkout:snapshot:"
	DefaultSnapshotTTL = time.Hour
	maxItems           = 100
)

// SnapshotKey is where the cart snapshot for an order id is kept until
// settlement consumes it.
func SnapshotKey(orderID string) string { return snapshotPrefix + orderID }

type gateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error)
	RetrieveSession(ctx context.Context, id string) (*payment.Session, error)
}

type shippingEstimator interface {
	EstimateShipping(ctx context.Context, to fulfillment.Recipient, items []fulfillment.Item) (int64, error)
}

type orderLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

type Config struct {
	FlatShippingCents int64
	SnapshotTTL       time.Duration
}

type Service struct {
	store    kvstore.Store
	gateway  gateway
	shipping shippingEstimator
	orders   orderLookup
	cfg      Config
	validate *validator.Validate
	logger   *log.Logger
	now      func() time.Time
	newID    func(time.Time) string
}

func New(store kvstore.Store, gw gateway, shipping shippingEstimator, orders orderLookup, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = DefaultSnapshotTTL
	}
	return &Service{
		store:    store,
		gateway:  gw,
		shipping: shipping,
		orders:   orders,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
		newID:    NewOrderID,
	}
}

type CreateSessionInput struct {
	Items           []domain.CartItem   `json:"items" validate:"required,min=1,max=100,dive"`
	Shipping        domain.ShippingInfo `json:"shippingInfo"`
	DiscountPercent float64             `json:"discountPercent"`
}

type Session struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	OrderID   string `json:"orderId"`
}

// CreateSession validates the cart, persists an immutable snapshot under a
// fresh order id and creates the hosted checkout session. The client-claimed
// discount is clamped here and recomputed again at settlement.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*Session, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	now := s.now().UTC()
	orderID := s.newID(now)
	shippingCents := s.shippingCost(ctx, orderID, in)
	quote := pricing.Price(in.Items, in.DiscountPercent, shippingCents)

	snapshot := domain.CartSnapshot{
		OrderID:         orderID,
		Items:           in.Items,
		Shipping:        in.Shipping,
		ShippingCents:   shippingCents,
		DiscountPercent: quote.DiscountPercent,
		CreatedAt:       now,
	}
	if err := kvstore.SetJSON(ctx, s.store, SnapshotKey(orderID), snapshot, s.cfg.SnapshotTTL); err != nil {
		s.logger.Printf("checkout: store snapshot order_id=%s error=%v", orderID, err)
		return nil, domain.PersistenceError("store cart snapshot", err)
	}

	req := payment.SessionRequest{
		OrderID:       orderID,
		CustomerEmail: in.Shipping.Email,
		ShippingCents: shippingCents,
		Metadata: map[string]string{
			"shippingName":     in.Shipping.Name,
			"shippingEmail":    in.Shipping.Email,
			"shippingPhone":    in.Shipping.Phone,
			"shippingAddress1": in.Shipping.Address.Address1,
			"shippingAddress2": in.Shipping.Address.Address2,
			"shippingCity":     in.Shipping.Address.City,
			"shippingState":    in.Shipping.Address.StateCode,
			"shippingZip":      in.Shipping.Address.Zip,
			"shippingCountry":  in.Shipping.Address.CountryCode,
			"discountPercent":  fmt.Sprintf("%g", quote.DiscountPercent),
		},
	}
	for _, line := range quote.Lines {
		req.Lines = append(req.Lines, payment.LineItem{
			Name:            lineName(line.Item),
			ImageURL:        line.Item.ImageURL,
			UnitAmountCents: line.DiscountedUnitPriceCents,
			Quantity:        int64(line.Item.Quantity),
		})
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger.Printf("checkout: create session order_id=%s error=%v", orderID, err)
		return nil, domain.ExternalProviderError("create payment session", err)
	}
	s.logger.Printf("checkout: session created order_id=%s session_id=%s total_cents=%d discount=%g",
		orderID, sess.ID, quote.TotalCents, quote.DiscountPercent)
	return &Session{SessionID: sess.ID, URL: sess.URL, OrderID: orderID}, nil
}

func (s *Service) shippingCost(ctx context.Context, orderID string, in CreateSessionInput) int64 {
	if s.shipping == nil {
		return s.cfg.FlatShippingCents
	}
	items := make([]fulfillment.Item, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, fulfillment.Item{ExternalVariantID: it.ExternalVariantID, Quantity: it.Quantity})
	}
	cents, err := s.shipping.EstimateShipping(ctx, fulfillment.RecipientFrom(in.Shipping), items)
	if err != nil {
		s.logger.Printf("checkout: shipping estimate order_id=%s fallback_cents=%d error=%v", orderID, s.cfg.FlatShippingCents, err)
		return s.cfg.FlatShippingCents
	}
	return cents
}

type SessionStatus struct {
	SessionID     string             `json:"sessionId"`
	Status        string             `json:"status"`
	PaymentStatus string             `json:"paymentStatus"`
	CustomerEmail string             `json:"customerEmail,omitempty"`
	AmountTotal   int64              `json:"amountTotal"`
	OrderID       string             `json:"orderId,omitempty"`
	OrderStatus   domain.OrderStatus `json:"orderStatus,omitempty"`
}

// GetSession reports the gateway's session state and, once settled, the
// local order status.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ValidationError("session id required")
	}
	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return nil, domain.NotFoundError("checkout session not found")
		}
		return nil, domain.ExternalProviderError("retrieve payment session", err)
	}

	out := &SessionStatus{
		SessionID:     sess.ID,
		Status:        sess.Status,
		PaymentStatus: sess.PaymentStatus,
		CustomerEmail: sess.CustomerEmail,
		AmountTotal:   sess.AmountTotal,
		OrderID:       sess.Metadata["orderId"],
	}
	if out.OrderID != "" && s.orders != nil {
		o, err := s.orders.GetByID(ctx, out.OrderID)
		switch {
		case err == nil:
			out.OrderStatus = o.Status
		case errors.Is(err, domain.ErrNotFound):
		default:
			s.logger.Printf("checkout: order lookup order_id=%s error=%v", out.OrderID, err)
		}
	}
	return out, nil
}

func lineName(it domain.CartItem) string {
	if strings.TrimSpace(it.Name) != "" {
		return it.Name
	}
	return it.ProductID
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.ValidationError(fmt.Sprintf("%s failed %s", fieldPath(fe.Namespace()), fe.Tag()))
	}
	return domain.ValidationError(err.Error())
}

// fieldPath drops the root struct name: "CreateSessionInput.Items[0].Quantity"
// becomes "Items[0].Quantity".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration
	// BaseURL overrides the API endpoint, used against local fakes.
	BaseURL string
}

type Stripe struct {
	sessions      *session.Client
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        *log.Logger
}

func NewStripe(cfg StripeConfig, logger *log.Logger) *Stripe {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(1),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
		backendCfg.MaxNetworkRetries = stripe.Int64(0)
	}
	return &Stripe{
		sessions:      &session.Client{B: stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg), Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		logger:        logger,
	}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.OrderID != "" {
		params.ClientReferenceID = stripe.String(req.OrderID)
	}

	for _, line := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if line.ImageURL != "" {
			product.Images = []*string{stripe.String(line.ImageURL)}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(line.UnitAmountCents),
				ProductData: product,
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	label := req.ShippingLabel
	if label == "" {
		label = "Standard shipping"
	}
	params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{{
		ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
			Type:        stripe.String("fixed_amount"),
			DisplayName: stripe.String(label),
			FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripe.Int64(req.ShippingCents),
				Currency: stripe.String(string(stripe.CurrencyUSD)),
			},
		},
	}}

	if req.OrderID != "" {
		params.AddMetadata("orderId", req.OrderID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	cs, err := s.sessions.New(params)
	if err != nil {
		s.logger.Printf("stripe: create session order_id=%s error=%v", req.OrderID, err)
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return fromStripeSession(cs), nil
}

func (s *Stripe) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := s.sessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && (stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing) {
			return nil, ErrSessionNotFound
		}
		s.logger.Printf("stripe: retrieve session id=%s error=%v", id, err)
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return fromStripeSession(cs), nil
}

// ParseEvent authenticates the payload against the endpoint secret. Events
// signed for a different API version are still accepted; only the session
// object is decoded. An authentic payload that cannot be decoded returns
// ErrMalformedEvent.
func (s *Stripe) ParseEvent(payload []byte, signatureHeader string) (*Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayload(payload, signatureHeader, s.webhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: decode event: %v", ErrMalformedEvent, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && ev.Data != nil {
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: decode checkout session event_id=%s: %v", ErrMalformedEvent, ev.ID, err)
		}
		out.Session = fromStripeSession(&cs)
	}
	return out, nil
}

func fromStripeSession(cs *stripe.CheckoutSession) *Session {
	if cs == nil {
		return nil
	}
	out := &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		CustomerEmail: cs.CustomerEmail,
		AmountTotal:   cs.AmountTotal,
		Metadata:      cs.Metadata,
	}
	if out.CustomerEmail == "" && cs.CustomerDetails != nil {
		out.CustomerEmail = cs.CustomerDetails.Email
	}
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}
	return out
}

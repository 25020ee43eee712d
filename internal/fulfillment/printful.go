package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"printarcade/internal/domain"
	"printarcade/internal/pricing"
)

const (
	defaultBaseURL  = "https://api.printful.com"
	pageSize        = 100
	maxPages        = 50
	breakerFailures = 5
)

type PrintfulConfig struct {
	BaseURL string
	Token   string
	StoreID string
	Timeout time.Duration
	// RPS caps outbound requests per second; 0 disables throttling.
	RPS float64
}

// Printful is an HTTP client for the Printful v1 API. Calls are throttled by
// a token bucket and guarded by a circuit breaker; 4xx answers do not count
// as breaker failures.
type Printful struct {
	baseURL string
	token   string
	storeID string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *log.Logger
}

func NewPrintful(cfg PrintfulConfig, logger *log.Logger) *Printful {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = int(cfg.RPS) + 1
	}

	p := &Printful{
		baseURL: baseURL,
		token:   cfg.Token,
		storeID: cfg.StoreID,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "printful",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < http.StatusInternalServerError && apiErr.StatusCode != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("printful: breaker %s %s -> %s", name, from, to)
		},
	})
	return p
}

type pfRecipient struct {
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
}

type pfItem struct {
	ExternalVariantID string `json:"external_variant_id"`
	Name              string `json:"name,omitempty"`
	Quantity          int    `json:"quantity"`
	RetailPrice       string `json:"retail_price,omitempty"`
}

type pfOrder struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	Created    int64  `json:"created"`
}

type pfEnvelope struct {
	Code   int             `json:"code"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Paging *struct {
		Total  int `json:"total"`
		Offset int `json:"offset"`
		Limit  int `json:"limit"`
	} `json:"paging,omitempty"`
}

func toRecipient(r Recipient) pfRecipient {
	return pfRecipient{
		Name: r.Name, Email: r.Email, Phone: r.Phone,
		Address1: r.Address1, Address2: r.Address2, City: r.City,
		StateCode: r.StateCode, CountryCode: r.CountryCode, Zip: r.Zip,
	}
}

func toItems(items []Item) []pfItem {
	out := make([]pfItem, 0, len(items))
	for _, it := range items {
		pi := pfItem{ExternalVariantID: it.ExternalVariantID, Name: it.Name, Quantity: it.Quantity}
		if it.RetailPriceCents > 0 {
			pi.RetailPrice = pricing.Cents(it.RetailPriceCents)
		}
		out = append(out, pi)
	}
	return out
}

func (o pfOrder) toOrder() *Order {
	out := &Order{ID: strconv.FormatInt(o.ID, 10), ExternalID: o.ExternalID, Status: o.Status}
	if o.Created > 0 {
		out.CreatedAt = time.Unix(o.Created, 0).UTC()
	}
	return out
}

func (p *Printful) EstimateShipping(ctx context.Context, to Recipient, items []Item) (int64, error) {
	body := map[string]any{
		"recipient": toRecipient(to),
		"items":     toItems(items),
		"currency":  "USD",
	}
	var rates []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Rate     string `json:"rate"`
		Currency string `json:"currency"`
	}
	if _, err := p.do(ctx, http.MethodPost, "/shipping/rates", nil, body, &rates); err != nil {
		return 0, err
	}
	if len(rates) == 0 {
		return 0, fmt.Errorf("no shipping rates for country %s", to.CountryCode)
	}
	// The provider lists the standard (cheapest) rate first.
	cents, err := pricing.ParseCents(rates[0].Rate)
	if err != nil {
		return 0, fmt.Errorf("parse shipping rate %q: %w", rates[0].Rate, err)
	}
	return cents, nil
}

func (p *Printful) CreateDraftOrder(ctx context.Context, order DraftOrder) (*Order, error) {
	body := map[string]any{
		"external_id": order.ExternalID,
		"recipient":   toRecipient(order.Recipient),
		"items":       toItems(order.Items),
	}
	var out pfOrder
	if _, err := p.do(ctx, http.MethodPost, "/orders", url.Values{"confirm": {"false"}}, body, &out); err != nil {
		return nil, err
	}
	p.logger.Printf("printful: draft created id=%d external_id=%s", out.ID, out.ExternalID)
	return out.toOrder(), nil
}

func (p *Printful) ConfirmOrder(ctx context.Context, id string) (*Order, error) {
	var out pfOrder
	if _, err := p.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(id)+"/confirm", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.toOrder(), nil
}

// GetOrder accepts a provider id or "@<external id>".
func (p *Printful) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out pfOrder
	if _, err := p.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.toOrder(), nil
}

func (p *Printful) ListOrders(ctx context.Context, status string) ([]Order, error) {
	var result []Order
	for page := 0; page < maxPages; page++ {
		q := url.Values{"offset": {strconv.Itoa(page * pageSize)}, "limit": {strconv.Itoa(pageSize)}}
		if status != "" {
			q.Set("status", status)
		}
		var batch []pfOrder
		env, err := p.do(ctx, http.MethodGet, "/orders", q, nil, &batch)
		if err != nil {
			return nil, err
		}
		for _, o := range batch {
			result = append(result, *o.toOrder())
		}
		if len(batch) < pageSize || env.Paging == nil || env.Paging.Offset+len(batch) >= env.Paging.Total {
			break
		}
	}
	return result, nil
}

func (p *Printful) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var summaries []struct {
		ID           int64  `json:"id"`
		ExternalID   string `json:"external_id"`
		Name         string `json:"name"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if _, err := p.do(ctx, http.MethodGet, "/store/products", url.Values{"limit": {strconv.Itoa(pageSize)}}, nil, &summaries); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(summaries))
	for _, s := range summaries {
		var detail struct {
			SyncVariants []struct {
				ID          int64  `json:"id"`
				ExternalID  string `json:"external_id"`
				Name        string `json:"name"`
				RetailPrice string `json:"retail_price"`
			} `json:"sync_variants"`
		}
		if _, err := p.do(ctx, http.MethodGet, "/store/products/"+strconv.FormatInt(s.ID, 10), nil, nil, &detail); err != nil {
			return nil, err
		}
		prod := domain.Product{
			ID:                s.ExternalID,
			ExternalProductID: strconv.FormatInt(s.ID, 10),
			Name:              s.Name,
			ThumbnailURL:      s.ThumbnailURL,
		}
		for _, v := range detail.SyncVariants {
			cents, err := pricing.ParseCents(v.RetailPrice)
			if err != nil {
				p.logger.Printf("printful: skip variant id=%d bad price=%q", v.ID, v.RetailPrice)
				continue
			}
			prod.Variants = append(prod.Variants, domain.ProductVariant{
				ID:                v.ExternalID,
				ExternalVariantID: strconv.FormatInt(v.ID, 10),
				Name:              v.Name,
				RetailPriceCents:  cents,
			})
		}
		products = append(products, prod)
	}
	return products, nil
}

// do sends one request and decodes the envelope's result into out.
func (p *Printful) do(ctx context.Context, method, path string, query url.Values, body, out any) (*pfEnvelope, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	res, err := p.breaker.Execute(func() (interface{}, error) {
		return p.send(ctx, method, path, query, body)
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	env := res.(*pfEnvelope)
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return nil, fmt.Errorf("decode %s %s result: %w", method, path, err)
		}
	}
	return env, nil
}

func (p *Printful) send(ctx context.Context, method, path string, query url.Values, body any) (*pfEnvelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	target := p.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.storeID != "" {
		req.Header.Set("X-PF-Store-Id", p.storeID)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Printf("printful: %s %s error=%v", method, path, err)
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env pfEnvelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && env.Error != nil && env.Error.Message != "" {
			msg = env.Error.Message
		}
		p.logger.Printf("printful: %s %s status=%d body=%s", method, path, resp.StatusCode, raw)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return &env, nil
}

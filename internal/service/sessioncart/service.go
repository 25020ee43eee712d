// Package sessioncart mirrors a storefront cart under an anonymous session
// token so it survives device switches. Writes are last-writer-wins.
package sessioncart

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"printarcade/internal/domain"
	"printarcade/internal/kvstore"
)

const (
	keyPrefix  = "cart:session:"
	DefaultTTL = 30 * time.Minute
	maxItems   = 100
)

type Service struct {
	store  kvstore.Store
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time
}

func New(store kvstore.Store, ttl time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl, logger: logger, now: time.Now}
}

func key(token string) string { return keyPrefix + token }

// Sync replaces the stored cart and restarts its TTL.
func (s *Service) Sync(ctx context.Context, token string, cart domain.SessionCart) (*domain.SessionCart, error) {
	if !domain.ValidSessionToken(token) {
		return nil, domain.ValidationError("invalid session token")
	}
	if len(cart.Items) > maxItems {
		return nil, domain.ValidationError("too many cart items")
	}
	for _, it := range cart.Items {
		if it.ProductID == "" || it.Quantity < 1 || it.Quantity > 99 || it.UnitPriceCents < 0 {
			return nil, domain.ValidationError("invalid cart item")
		}
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	cart.UpdatedAt = s.now().UTC()
	if err := kvstore.SetJSON(ctx, s.store, key(token), cart, s.ttl); err != nil {
		s.logger.Printf("session cart: sync items=%d error=%v", len(cart.Items), err)
		return nil, domain.PersistenceError("store session cart", err)
	}
	return &cart, nil
}

// Load returns a NotFound error once the cart has expired or was never synced.
func (s *Service) Load(ctx context.Context, token string) (*domain.SessionCart, error) {
	if !domain.ValidSessionToken(token) {
		return nil, domain.ValidationError("invalid session token")
	}
	var cart domain.SessionCart
	if err := kvstore.GetJSON(ctx, s.store, key(token), &cart); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundError("session cart not found")
		}
		s.logger.Printf("session cart: load error=%v", err)
		return nil, domain.PersistenceError("load session cart", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// Clear removes the cart. Clearing an absent cart succeeds.
func (s *Service) Clear(ctx context.Context, token string) error {
	if !domain.ValidSessionToken(token) {
		return domain.ValidationError("invalid session token")
	}
	if err := s.store.Delete(ctx, key(token)); err != nil {
		s.logger.Printf("session cart: clear error=%v", err)
		return domain.PersistenceError("clear session cart", err)
	}
	return nil
}

package catalog

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
	cacheKey   = "catalog:products"
	DefaultTTL = 10 * time.Minute
)

type productSource interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// Service serves the product list from the ephemeral store, refilling it
// from the fulfillment provider on a miss.
type Service struct {
	source productSource
	store  kvstore.Store
	ttl    time.Duration
	logger *log.Logger
}

func New(source productSource, store kvstore.Store, ttl time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{source: source, store: store, ttl: ttl, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	var cached []domain.Product
	err := kvstore.GetJSON(ctx, s.store, cacheKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Printf("catalog: cache read error=%v", err)
	}

	products, err := s.source.ListProducts(ctx)
	if err != nil {
		s.logger.Printf("catalog: provider list error=%v", err)
		return nil, domain.ExternalProviderError("list products", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	if err := kvstore.SetJSON(ctx, s.store, cacheKey, products, s.ttl); err != nil {
		s.logger.Printf("catalog: cache write error=%v", err)
	}
	s.logger.Printf("catalog: refreshed count=%d", len(products))
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id || products[i].ExternalProductID == id {
			return &products[i], nil
		}
	}
	return nil, domain.NotFoundError("product not found")
}

// Invalidate drops the cached list so the next read refetches it.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.store.Delete(ctx, cacheKey); err != nil {
		s.logger.Printf("catalog: invalidate error=%v", err)
		return err
	}
	s.logger.Printf("catalog: invalidated")
	return nil
}

package catalog

import (
	"context"
	"errors"
	"testing"

	"printarcade/internal/domain"
	"printarcade/internal/kvstore"
)

type stubSource struct {
	products []domain.Product
	err      error
	calls    int
}

func (s *stubSource) ListProducts(context.Context) ([]domain.Product, error) {
	s.calls++
	return s.products, s.err
}

func TestList_CachesUntilInvalidated(t *testing.T) {
	src := &stubSource{products: []domain.Product{{ID: "tee", ExternalProductID: "101", Name: "Tee"}}}
	svc := New(src, kvstore.NewMemory(), 0, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := svc.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Tee" {
			t.Fatalf("unexpected products %+v", got)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one provider call, got %d", src.calls)
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := svc.List(ctx); err != nil {
		t.Fatalf("List after invalidate: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", src.calls)
	}
}

func TestGet(t *testing.T) {
	src := &stubSource{products: []domain.Product{{ID: "tee", ExternalProductID: "101"}, {ID: "mug", ExternalProductID: "102"}}}
	svc := New(src, kvstore.NewMemory(), 0, nil)

	p, err := svc.Get(context.Background(), "102")
	if err != nil || p.ID != "mug" {
		t.Fatalf("expected mug, got %+v err=%v", p, err)
	}
	if _, err := svc.Get(context.Background(), "hat"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestList_ProviderError(t *testing.T) {
	svc := New(&stubSource{err: errors.New("boom")}, kvstore.NewMemory(), 0, nil)
	if _, err := svc.List(context.Background()); !domain.IsKind(err, domain.KindExternalProvider) {
		t.Fatalf("expected external provider error, got %v", err)
	}
}

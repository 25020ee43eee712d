package game

import (
	"context"

	"printarcade/internal/domain"
)

// Repository is the append-only game completion ledger.
type Repository interface {
	Insert(ctx context.Context, c *domain.GameCompletion) error
	ListBySession(ctx context.Context, sessionToken string) ([]domain.GameCompletion, error)
}

package game

import (
	"context"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"printarcade/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Insert(ctx context.Context, c *domain.GameCompletion) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	const q = `
INSERT INTO game_completions (id, session_token, game_type, product_id, score, discount_earned)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING completed_at
`
	if err := r.pool.QueryRow(ctx, q, c.ID, c.SessionToken, c.GameType, c.ProductID, c.Score, c.DiscountEarned).Scan(&c.CompletedAt); err != nil {
		r.logger.Printf("game repo: insert game_type=%s product_id=%s error=%v", c.GameType, c.ProductID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) ListBySession(ctx context.Context, sessionToken string) ([]domain.GameCompletion, error) {
	const q = `
SELECT id::text, session_token, game_type, product_id, score, discount_earned::float8, completed_at
FROM game_completions
WHERE session_token = $1
ORDER BY completed_at
`
	rows, err := r.pool.Query(ctx, q, sessionToken)
	if err != nil {
		r.logger.Printf("game repo: list session error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.GameCompletion
	for rows.Next() {
		var c domain.GameCompletion
		if err := rows.Scan(&c.ID, &c.SessionToken, &c.GameType, &c.ProductID, &c.Score, &c.DiscountEarned, &c.CompletedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("game repo: list session rows error=%v", err)
		return nil, err
	}
	return result, nil
}

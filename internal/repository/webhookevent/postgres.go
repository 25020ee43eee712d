package webhookevent

import (
	"context"
	"io"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
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

func (r *postgresRepo) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE provider = $1 AND event_id = $2)`
	var seen bool
	if err := r.pool.QueryRow(ctx, q, provider, eventID).Scan(&seen); err != nil {
		r.logger.Printf("webhook event repo: seen provider=%s event_id=%s error=%v", provider, eventID, err)
		return false, err
	}
	return seen, nil
}

// Record is idempotent: recording the same event twice is not an error.
func (r *postgresRepo) Record(ctx context.Context, provider, eventID, eventType string) error {
	const q = `
INSERT INTO processed_webhook_events (provider, event_id, event_type)
VALUES ($1, $2, $3)
ON CONFLICT (provider, event_id) DO NOTHING
`
	if _, err := r.pool.Exec(ctx, q, provider, eventID, eventType); err != nil {
		r.logger.Printf("webhook event repo: record provider=%s event_id=%s error=%v", provider, eventID, err)
		return err
	}
	return nil
}

package kvstore

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"printarcade/internal/domain"
)

// Postgres keeps entries in the kv_entries table. Expired rows are invisible
// to reads and removed by Purge.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	now    func() time.Time
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) *Postgres {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Postgres{pool: pool, logger: logger, now: time.Now}
}

func (s *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `
SELECT value
FROM kv_entries
WHERE key = $1 AND expires_at > $2
`
	var value []byte
	if err := s.pool.QueryRow(ctx, q, key, s.now()).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

func (s *Postgres) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const q = `
INSERT INTO kv_entries (key, value, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    expires_at = EXCLUDED.expires_at
`
	_, err := s.pool.Exec(ctx, q, key, value, s.now().Add(ttl))
	return err
}

func (s *Postgres) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	return err
}

func (s *Postgres) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	const q = `
INSERT INTO kv_entries (key, value, expires_at)
VALUES ($1, convert_to('1', 'UTF8'), $3)
ON CONFLICT (key) DO UPDATE SET
    value = CASE
        WHEN kv_entries.expires_at <= $2 THEN convert_to('1', 'UTF8')
        ELSE convert_to((convert_from(kv_entries.value, 'UTF8')::bigint + 1)::text, 'UTF8')
    END,
    expires_at = CASE
        WHEN kv_entries.expires_at <= $2 THEN EXCLUDED.expires_at
        ELSE kv_entries.expires_at
    END
RETURNING convert_from(value, 'UTF8')::bigint
`
	now := s.now()
	var n int64
	if err := s.pool.QueryRow(ctx, q, key, now, now.Add(ttl)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *Postgres) Purge(ctx context.Context) (int64, error) {
	cmd, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE expires_at <= $1`, s.now())
	if err != nil {
		s.logger.Printf("kv store: purge error=%v", err)
		return 0, err
	}
	if n := cmd.RowsAffected(); n > 0 {
		s.logger.Printf("kv store: purged expired=%d", n)
	}
	return cmd.RowsAffected(), nil
}

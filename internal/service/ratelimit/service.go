// Package ratelimit implements fixed-window request limits on top of the
// ephemeral store.
package ratelimit

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"time"

	"printarcade/internal/domain"
	"printarcade/internal/kvstore"
)

const DefaultWindow = time.Minute

// Limit is the number of requests allowed per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Service struct {
	store  kvstore.Store
	def    Limit
	limits map[string]Limit
	logger *log.Logger
}

func New(store kvstore.Store, def Limit, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if def.Window <= 0 {
		def.Window = DefaultWindow
	}
	if def.Requests <= 0 {
		def.Requests = 30
	}
	return &Service{store: store, def: def, limits: map[string]Limit{}, logger: logger}
}

// SetLimit overrides the default limit for one endpoint.
func (s *Service) SetLimit(endpoint string, l Limit) {
	if l.Window <= 0 {
		l.Window = s.def.Window
	}
	s.limits[endpoint] = l
}

func (s *Service) limitFor(endpoint string) Limit {
	if l, ok := s.limits[endpoint]; ok {
		return l
	}
	return s.def
}

func key(endpoint, identity string) string {
	return "ratelimit:" + endpoint + ":" + identity
}

// Allow reads the current count and rejects once it reaches the limit;
// otherwise it increments. The read and the increment are separate calls,
// so concurrent bursts may overshoot slightly.
func (s *Service) Allow(ctx context.Context, identity, endpoint string) (Decision, error) {
	l := s.limitFor(endpoint)
	k := key(endpoint, identity)

	raw, err := s.store.Get(ctx, k)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return Decision{Allowed: true}, err
	default:
		count, perr := strconv.ParseInt(string(raw), 10, 64)
		if perr == nil && count >= int64(l.Requests) {
			return Decision{Allowed: false, RetryAfter: l.Window}, nil
		}
	}

	n, err := s.store.Incr(ctx, k, l.Window)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	remaining := l.Requests - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

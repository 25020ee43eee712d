package webhookevent

import "context"

// Repository remembers provider event ids that were fully processed.
type Repository interface {
	Seen(ctx context.Context, provider, eventID string) (bool, error)
	Record(ctx context.Context, provider, eventID, eventType string) error
}

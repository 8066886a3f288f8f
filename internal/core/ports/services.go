package ports

import (
	"context"

	"github.com/vibepin/vibepin/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostRemoved(ctx context.Context, postID string) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePostCreated(ctx context.Context, handler func(ctx context.Context, post *domain.Post) error) error
	SubscribePostRemoved(ctx context.Context, handler func(ctx context.Context, postID string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TokenVerifier validates a bearer credential issued by the external auth
// collaborator and returns the subject user id.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

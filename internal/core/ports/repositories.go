package ports

import (
	"context"
	"time"

	"github.com/vibepin/vibepin/internal/core/domain"
)

// PostRepository persists posts and answers author-history queries.
// All calls honor the caller's context deadline.
type PostRepository interface {
	Insert(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	ListRecent(ctx context.Context, categories []domain.Category, offset, limit int) ([]domain.Post, error)
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]domain.Post, error)
	ListByAuthor(ctx context.Context, ident domain.Identity, limit int) ([]domain.Post, error)

	// LastPostedAt returns the most recent post time by the identity in
	// any of the given categories, or nil when there is none.
	LastPostedAt(ctx context.Context, ident domain.Identity, categories []domain.Category) (*time.Time, error)
	// CountSince returns how many posts the identity made in the given
	// categories since the cutoff, plus the oldest post time inside that
	// window (nil when the count is zero).
	CountSince(ctx context.Context, ident domain.Identity, categories []domain.Category, since time.Time) (int, *time.Time, error)

	SoftDelete(ctx context.Context, id, deletedBy string) error
	SetStatus(ctx context.Context, id string, status domain.PostStatus) error
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ExpireFoundBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PenaltyRepository persists moderation penalties.
type PenaltyRepository interface {
	Insert(ctx context.Context, p *domain.Penalty) error
	IsBanned(ctx context.Context, userID string) (bool, error)
}

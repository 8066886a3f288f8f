package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vibepin/vibepin/internal/core/ports"
)

// RetentionActivities holds the activity implementations for the retention
// sweep workflow.
type RetentionActivities struct {
	Posts ports.PostRepository
}

// ExpireStaleFoundPosts flips found-item posts published before the cutoff
// to expired and returns how many changed.
func (a *RetentionActivities) ExpireStaleFoundPosts(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := a.Posts.ExpireFoundBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire found posts: %w", err)
	}
	if n > 0 {
		slog.Info("expired stale found posts", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// PurgeDeletedPosts permanently removes posts soft-deleted before the cutoff
// and returns how many rows went away.
func (a *RetentionActivities) PurgeDeletedPosts(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := a.Posts.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge deleted posts: %w", err)
	}
	if n > 0 {
		slog.Info("purged soft-deleted posts", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}

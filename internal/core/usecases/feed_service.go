package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/core/ports"
)

// FeedService serves the map read path: recent, nearby, and per-author
// post listings, with read-through caching.
type FeedService struct {
	posts ports.PostRepository
	cache ports.CacheService
}

// NewFeedService creates a new FeedService.
func NewFeedService(posts ports.PostRepository, cache ports.CacheService) *FeedService {
	return &FeedService{posts: posts, cache: cache}
}

// Recent returns published posts, newest first, optionally filtered by
// category.
func (s *FeedService) Recent(ctx context.Context, categories []domain.Category, offset, limit int) ([]domain.Post, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	cacheKey := fmt.Sprintf("posts:recent:%s:%v:%d:%d", s.version(ctx), categories, offset, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var posts []domain.Post
			if err := json.Unmarshal(data, &posts); err == nil {
				return posts, nil
			}
		}
	}

	posts, err := s.posts.ListRecent(ctx, categories, offset, limit)
	if err != nil {
		return nil, err
	}

	// Short TTL: the feed is the busiest query and also the staleness-
	// sensitive one.
	if s.cache != nil {
		if data, err := json.Marshal(posts); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 30)
		}
	}

	return posts, nil
}

// Nearby returns published posts within radiusMeters of a point, ordered
// by distance.
func (s *FeedService) Nearby(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]domain.Post, error) {
	if radiusMeters <= 0 || radiusMeters > 50000 {
		return nil, fmt.Errorf("radius must be between 1 and 50000 meters")
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	cacheKey := fmt.Sprintf("posts:nearby:%s:%.4f:%.4f:%.0f:%d", s.version(ctx), lat, lng, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var posts []domain.Post
			if err := json.Unmarshal(data, &posts); err == nil {
				return posts, nil
			}
		}
	}

	posts, err := s.posts.FindNearby(ctx, lat, lng, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(posts); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}

	return posts, nil
}

// ByAuthor returns the identity's own posts. Never cached: the listing is
// private and must reflect deletes immediately.
func (s *FeedService) ByAuthor(ctx context.Context, ident domain.Identity, limit int) ([]domain.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.posts.ListByAuthor(ctx, ident, limit)
}

// Get returns a single post.
func (s *FeedService) Get(ctx context.Context, id string) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post id must not be empty")
	}
	return s.posts.GetByID(ctx, id)
}

// Invalidate bumps the feed cache generation so every cached listing is
// bypassed. Called when a post is created or removed.
func (s *FeedService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	ver := strconv.FormatInt(time.Now().UnixNano(), 36)
	_ = s.cache.Set(ctx, "posts:feed:ver", []byte(ver), 0)
}

// version returns the current cache generation; listings embed it in
// their keys so Invalidate orphans stale entries instead of scanning them.
func (s *FeedService) version(ctx context.Context) string {
	if s.cache == nil {
		return "0"
	}
	if v, err := s.cache.Get(ctx, "posts:feed:ver"); err == nil && len(v) > 0 {
		return string(v)
	}
	return "0"
}

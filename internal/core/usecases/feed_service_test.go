package usecases_test

import (
	"context"
	"testing"

	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/core/ports"
	"github.com/vibepin/vibepin/internal/core/usecases"
)

type feedMockRepo struct {
	mockPostRepo
	listRecentFn func(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error)
	findNearbyFn func(ctx context.Context, lat, lng, radius float64, limit int) ([]domain.Post, error)
}

func (m *feedMockRepo) ListRecent(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, cats, offset, limit)
	}
	return nil, nil
}

func (m *feedMockRepo) FindNearby(ctx context.Context, lat, lng, radius float64, limit int) ([]domain.Post, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lng, radius, limit)
	}
	return nil, nil
}

func TestFeedRecent(t *testing.T) {
	repo := &feedMockRepo{
		listRecentFn: func(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error) {
			return []domain.Post{
				{ID: "1", Category: domain.CategoryGeneral, Content: "hello"},
				{ID: "2", Category: domain.CategoryPositive, Content: "sunshine"},
			}, nil
		},
	}
	svc := usecases.NewFeedService(repo, nil)

	posts, err := svc.Recent(context.Background(), nil, 0, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "1" {
		t.Errorf("expected post 1 first, got %s", posts[0].ID)
	}
}

func TestFeedRecent_ClampLimit(t *testing.T) {
	called := false
	repo := &feedMockRepo{
		listRecentFn: func(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error) {
			called = true
			if limit != 100 {
				t.Errorf("expected limit clamped to 100, got %d", limit)
			}
			if offset != 0 {
				t.Errorf("expected negative offset clamped to 0, got %d", offset)
			}
			return nil, nil
		},
	}
	svc := usecases.NewFeedService(repo, nil)
	_, _ = svc.Recent(context.Background(), nil, -5, 9999)
	if !called {
		t.Error("repo was not called")
	}
}

func TestFeedNearby_BadRadius(t *testing.T) {
	svc := usecases.NewFeedService(&feedMockRepo{}, nil)
	if _, err := svc.Nearby(context.Background(), 43.2, -2.9, 0, 20); err == nil {
		t.Error("expected error for zero radius")
	}
	if _, err := svc.Nearby(context.Background(), 43.2, -2.9, 100000, 20); err == nil {
		t.Error("expected error for oversized radius")
	}
}

func TestFeedNearby(t *testing.T) {
	dist := 42.5
	repo := &feedMockRepo{
		findNearbyFn: func(ctx context.Context, lat, lng, radius float64, limit int) ([]domain.Post, error) {
			return []domain.Post{
				{ID: "1", Location: domain.GeoPoint{Lng: -2.935, Lat: 43.263}, Distance: &dist},
			}, nil
		},
	}
	svc := usecases.NewFeedService(repo, nil)

	posts, err := svc.Nearby(context.Background(), 43.263, -2.935, 500, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 || posts[0].Distance == nil || *posts[0].Distance != 42.5 {
		t.Errorf("distance not carried through: %+v", posts)
	}
}

func TestFeedGet_EmptyID(t *testing.T) {
	svc := usecases.NewFeedService(&feedMockRepo{}, nil)
	if _, err := svc.Get(context.Background(), ""); err == nil {
		t.Error("expected error for empty id")
	}
}

// When Valkey is down at startup the api binary leaves the cache port as a
// nil interface; feeds must serve straight from the repository.
func TestFeedRecent_CacheNotWired(t *testing.T) {
	repo := &feedMockRepo{
		listRecentFn: func(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error) {
			return []domain.Post{{ID: "1", Category: domain.CategoryGeneral}}, nil
		},
	}

	var cache ports.CacheService
	svc := usecases.NewFeedService(repo, cache)

	posts, err := svc.Recent(context.Background(), nil, 0, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	svc.Invalidate(context.Background())
}

package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/core/usecases"
)

type modMockRepo struct {
	mockPostRepo
	getByIDFn    func(ctx context.Context, id string) (*domain.Post, error)
	softDeleteFn func(ctx context.Context, id, deletedBy string) error
	setStatusFn  func(ctx context.Context, id string, status domain.PostStatus) error
}

func (m *modMockRepo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrPostNotFound
}

func (m *modMockRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id, deletedBy)
	}
	return nil
}

func (m *modMockRepo) SetStatus(ctx context.Context, id string, status domain.PostStatus) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, id, status)
	}
	return nil
}

type modMockPenalties struct {
	insertFn func(ctx context.Context, p *domain.Penalty) error
}

func (m *modMockPenalties) Insert(ctx context.Context, p *domain.Penalty) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, p)
	}
	return nil
}
func (m *modMockPenalties) IsBanned(ctx context.Context, userID string) (bool, error) {
	return false, nil
}

func TestDeleteOwn(t *testing.T) {
	deleted := false
	repo := &modMockRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return &domain.Post{ID: id, AuthorUserID: "user-1"}, nil
		},
		softDeleteFn: func(ctx context.Context, id, deletedBy string) error {
			if deletedBy != "user-1" {
				t.Errorf("expected deleted_by user-1, got %s", deletedBy)
			}
			deleted = true
			return nil
		},
	}
	svc := usecases.NewModerationService(repo, &modMockPenalties{}, nil)

	if err := svc.DeleteOwn(context.Background(), "p1", "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Error("post was not soft-deleted")
	}
}

func TestDeleteOwn_NotOwner(t *testing.T) {
	repo := &modMockRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return &domain.Post{ID: id, AuthorUserID: "someone-else"}, nil
		},
	}
	svc := usecases.NewModerationService(repo, &modMockPenalties{}, nil)

	err := svc.DeleteOwn(context.Background(), "p1", "user-1")
	if !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestDeleteOwn_AnonymousPostNotDeletable(t *testing.T) {
	repo := &modMockRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return &domain.Post{ID: id}, nil // no author_user_id
		},
	}
	svc := usecases.NewModerationService(repo, &modMockPenalties{}, nil)

	if err := svc.DeleteOwn(context.Background(), "p1", "user-1"); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for anonymous post, got %v", err)
	}
}

func TestDeleteOwn_NotFound(t *testing.T) {
	svc := usecases.NewModerationService(&modMockRepo{}, &modMockPenalties{}, nil)
	if err := svc.DeleteOwn(context.Background(), "missing", "user-1"); !errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

// A repository outage is not a missing post: the lookup error must come
// back as-is so transport maps it to 500, not 404.
func TestDeleteOwn_RepoError(t *testing.T) {
	repo := &modMockRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := usecases.NewModerationService(repo, &modMockPenalties{}, nil)

	err := svc.DeleteOwn(context.Background(), "p1", "user-1")
	if err == nil || errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("expected repo error to surface, got %v", err)
	}
}

func TestRemove_RepoError(t *testing.T) {
	repo := &modMockRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := usecases.NewModerationService(repo, &modMockPenalties{}, nil)

	err := svc.Remove(context.Background(), "p1")
	if err == nil || errors.Is(err, domain.ErrPostNotFound) {
		t.Fatalf("expected repo error to surface, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	var gotStatus domain.PostStatus
	repo := &modMockRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return &domain.Post{ID: id}, nil
		},
		setStatusFn: func(ctx context.Context, id string, status domain.PostStatus) error {
			gotStatus = status
			return nil
		},
	}
	svc := usecases.NewModerationService(repo, &modMockPenalties{}, nil)

	if err := svc.Remove(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotStatus != domain.StatusRemoved {
		t.Errorf("expected status removed, got %s", gotStatus)
	}
}

func TestBanUser(t *testing.T) {
	var got *domain.Penalty
	penalties := &modMockPenalties{
		insertFn: func(ctx context.Context, p *domain.Penalty) error {
			got = p
			return nil
		},
	}
	svc := usecases.NewModerationService(&modMockRepo{}, penalties, nil)

	if err := svc.BanUser(context.Background(), "user-9", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Type != "ban" || got.UserID != "user-9" {
		t.Errorf("unexpected penalty: %+v", got)
	}
	if got.Reason == "" {
		t.Error("expected default reason")
	}

	if err := svc.BanUser(context.Background(), "", "spam"); err == nil {
		t.Error("expected error for empty user id")
	}
}

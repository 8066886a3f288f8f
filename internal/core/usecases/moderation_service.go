package usecases

import (
	"context"
	"fmt"

	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/core/ports"
)

// ModerationService handles owner soft deletes and admin actions.
type ModerationService struct {
	posts     ports.PostRepository
	penalties ports.PenaltyRepository
	events    ports.EventPublisher
}

// NewModerationService creates a new ModerationService.
func NewModerationService(posts ports.PostRepository, penalties ports.PenaltyRepository, events ports.EventPublisher) *ModerationService {
	return &ModerationService{posts: posts, penalties: penalties, events: events}
}

// DeleteOwn soft-deletes a post after verifying ownership. The row stays
// for the retention sweeper; the map stops showing it immediately.
func (s *ModerationService) DeleteOwn(ctx context.Context, postID, userID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("get post %s: %w", postID, err)
	}
	if post.AuthorUserID == "" || post.AuthorUserID != userID {
		return domain.ErrNotOwner
	}
	if err := s.posts.SoftDelete(ctx, postID, userID); err != nil {
		return fmt.Errorf("soft delete %s: %w", postID, err)
	}
	if s.events != nil {
		_ = s.events.PublishPostRemoved(ctx, postID)
	}
	return nil
}

// Remove marks a post removed (admin action).
func (s *ModerationService) Remove(ctx context.Context, postID string) error {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return fmt.Errorf("get post %s: %w", postID, err)
	}
	if err := s.posts.SetStatus(ctx, postID, domain.StatusRemoved); err != nil {
		return fmt.Errorf("remove %s: %w", postID, err)
	}
	if s.events != nil {
		_ = s.events.PublishPostRemoved(ctx, postID)
	}
	return nil
}

// BanUser records a ban penalty; admission rejects the user from then on.
func (s *ModerationService) BanUser(ctx context.Context, userID, reason string) error {
	if userID == "" {
		return fmt.Errorf("user id must not be empty")
	}
	if reason == "" {
		reason = "admin action"
	}
	p := &domain.Penalty{UserID: userID, Type: "ban", Reason: reason}
	if err := s.penalties.Insert(ctx, p); err != nil {
		return fmt.Errorf("ban %s: %w", userID, err)
	}
	return nil
}

// ReviewQueue lists the newest published posts for the admin review screen.
func (s *ModerationService) ReviewQueue(ctx context.Context, limit int) ([]domain.Post, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.posts.ListRecent(ctx, nil, 0, limit)
}

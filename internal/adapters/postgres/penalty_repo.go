package postgres

import (
	"context"
	"fmt"

	"github.com/vibepin/vibepin/internal/core/domain"
)

// PenaltyRepo implements ports.PenaltyRepository with pgx.
type PenaltyRepo struct {
	db *DB
}

// NewPenaltyRepo creates a new PenaltyRepo.
func NewPenaltyRepo(db *DB) *PenaltyRepo {
	return &PenaltyRepo{db: db}
}

// Insert records a penalty against a user.
func (r *PenaltyRepo) Insert(ctx context.Context, p *domain.Penalty) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO user_penalties (user_id, penalty_type, reason)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id, created_at
	`, p.UserID, p.Type, p.Reason).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert penalty: %w", err)
	}
	return nil
}

// IsBanned reports whether the user has an active ban on record.
func (r *PenaltyRepo) IsBanned(ctx context.Context, userID string) (bool, error) {
	var banned bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_penalties
			WHERE user_id = $1 AND penalty_type = 'ban'
		)
	`, userID).Scan(&banned)
	if err != nil {
		return false, err
	}
	return banned, nil
}

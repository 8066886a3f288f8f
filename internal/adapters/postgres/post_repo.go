package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/pkg/geocodec"
	"github.com/vibepin/vibepin/internal/pkg/metrics"
)

// PostRepo implements ports.PostRepository with pgx.
//
// The location column is geography(Point,4326). Reads select it raw, which
// PostGIS serves as hex EWKB, and run it through geocodec so every stored
// point goes through the same decode path as inbound ones.
type PostRepo struct {
	db *DB
}

// NewPostRepo creates a new PostRepo.
func NewPostRepo(db *DB) *PostRepo {
	return &PostRepo{db: db}
}

const postColumns = `
	id, category, COALESCE(content, ''), found_data,
	location::text, COALESCE(location_label, ''), precision_m, status,
	COALESCE(author_user_id, ''), COALESCE(author_alias, ''), COALESCE(avatar_seed, ''),
	author_ip, created_at`

// Insert persists a new post and fills in its generated id and timestamp.
func (r *PostRepo) Insert(ctx context.Context, p *domain.Post) error {
	var found []byte
	if p.Found != nil {
		b, err := json.Marshal(p.Found)
		if err != nil {
			return fmt.Errorf("marshal found_data: %w", err)
		}
		found = b
	}

	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO posts (category, content, found_data, location, location_label,
		                   precision_m, status, author_user_id, author_alias, avatar_seed, author_ip)
		VALUES ($1, NULLIF($2, ''), $3, ST_GeogFromText($4), NULLIF($5, ''),
		        $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11)
		RETURNING id, created_at
	`, p.Category, p.Content, found, p.LocationWKT, p.LocationLabel,
		p.PrecisionM, p.Status, p.AuthorUserID, p.AuthorAlias, p.AvatarSeed, p.AuthorIP,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetByID returns a post by UUID, including soft-deleted ones so moderation
// can inspect them. Callers that must not see deleted posts check IsDeleted.
func (r *PostRepo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT `+postColumns+`, is_deleted, deleted_at, COALESCE(deleted_by, '')
		FROM posts WHERE id = $1
	`, id)

	p, err := scanPost(row, false, true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListRecent returns published posts newest first, optionally filtered by
// category.
func (r *PostRepo) ListRecent(ctx context.Context, categories []domain.Category, offset, limit int) ([]domain.Post, error) {
	q := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'published' AND NOT is_deleted`
	args := []any{}
	if len(categories) > 0 {
		args = append(args, categories)
		q += fmt.Sprintf(" AND category = ANY($%d)", len(args))
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows, false)
}

// FindNearby returns published posts within radiusMeters of the point,
// closest first, using ST_DWithin on the geography column.
func (r *PostRepo) FindNearby(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]domain.Post, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+postColumns+`,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance
		FROM posts
		WHERE status = 'published' AND NOT is_deleted
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lng, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows, true)
}

// ListByAuthor returns the identity's own posts newest first, including
// removed ones so authors can see what happened to them.
func (r *PostRepo) ListByAuthor(ctx context.Context, ident domain.Identity, limit int) ([]domain.Post, error) {
	clause, arg := identityClause(ident, 1)
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE `+clause+` AND NOT is_deleted
		ORDER BY created_at DESC
		LIMIT $2
	`, arg, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows, false)
}

// LastPostedAt returns the identity's most recent post time in any of the
// given categories, or nil when there is none. Soft-deleted posts still
// count; deleting a post does not refund its cooldown.
func (r *PostRepo) LastPostedAt(ctx context.Context, ident domain.Identity, categories []domain.Category) (*time.Time, error) {
	clause, arg := identityClause(ident, 1)
	var last *time.Time
	err := r.db.Pool.QueryRow(ctx, `
		SELECT MAX(created_at) FROM posts
		WHERE `+clause+` AND category = ANY($2)
	`, arg, categories).Scan(&last)
	if err != nil {
		return nil, err
	}
	return last, nil
}

// CountSince returns how many posts the identity made in the given
// categories since the cutoff, plus the oldest post time in that window.
func (r *PostRepo) CountSince(ctx context.Context, ident domain.Identity, categories []domain.Category, since time.Time) (int, *time.Time, error) {
	clause, arg := identityClause(ident, 1)
	var (
		count  int
		oldest *time.Time
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*), MIN(created_at) FROM posts
		WHERE `+clause+` AND category = ANY($2) AND created_at >= $3
	`, arg, categories, since).Scan(&count, &oldest)
	if err != nil {
		return 0, nil, err
	}
	return count, oldest, nil
}

// SoftDelete marks a post deleted without destroying the row. The retention
// sweeper purges it later.
func (r *PostRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE posts
		SET is_deleted = TRUE, deleted_at = now(), deleted_by = $2
		WHERE id = $1 AND NOT is_deleted
	`, id, deletedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// SetStatus flips a post's moderation status.
func (r *PostRepo) SetStatus(ctx context.Context, id string, status domain.PostStatus) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE posts SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// PurgeDeletedBefore permanently removes soft-deleted posts older than the
// cutoff and reports how many rows went away.
func (r *PostRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		DELETE FROM posts WHERE is_deleted AND deleted_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExpireFoundBefore flips stale found-item posts to expired so they drop off
// the map without losing the record.
func (r *PostRepo) ExpireFoundBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE posts SET status = 'expired'
		WHERE category = 'found' AND status = 'published' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// identityClause builds the author filter: verified users match on user id,
// anonymous authors on their recorded network address.
func identityClause(ident domain.Identity, argN int) (string, any) {
	if ident.UserID != "" {
		return fmt.Sprintf("author_user_id = $%d", argN), ident.UserID
	}
	return fmt.Sprintf("author_ip = $%d AND author_user_id IS NULL", argN), ident.IP
}

func scanPost(row pgx.Row, withDistance, withDeleted bool) (*domain.Post, error) {
	var (
		p        domain.Post
		found    []byte
		hexEWKB  string
		distance float64
	)

	dest := []any{
		&p.ID, &p.Category, &p.Content, &found,
		&hexEWKB, &p.LocationLabel, &p.PrecisionM, &p.Status,
		&p.AuthorUserID, &p.AuthorAlias, &p.AvatarSeed,
		&p.AuthorIP, &p.CreatedAt,
	}
	if withDeleted {
		dest = append(dest, &p.IsDeleted, &p.DeletedAt, &p.DeletedBy)
	}
	if withDistance {
		dest = append(dest, &distance)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	pt, err := geocodec.DecodeString(hexEWKB)
	if err != nil {
		metrics.LocationDecodeErrors.Inc()
		return nil, fmt.Errorf("decode location for post %s: %w", p.ID, err)
	}
	p.Location = pt
	p.LocationWKT = geocodec.EncodeWKT(pt)

	if len(found) > 0 {
		var fr domain.FoundReport
		if err := json.Unmarshal(found, &fr); err != nil {
			return nil, fmt.Errorf("decode found_data for post %s: %w", p.ID, err)
		}
		p.Found = &fr
	}
	if withDistance {
		p.Distance = &distance
	}
	return &p, nil
}

func scanPosts(rows pgx.Rows, withDistance bool) ([]domain.Post, error) {
	var posts []domain.Post
	for rows.Next() {
		p, err := scanPost(rows, withDistance, false)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/pkg/metrics"
)

// bearerToken extracts the bearer credential from the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// SubmitPostHandler accepts a new post submission.
// POST /v1/posts
func SubmitPostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sub domain.Submission
		if err := c.BodyParser(&sub); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ident := deps.Admission.ResolveIdentity(c.Context(), bearerToken(c), sub.AuthorID, c.IP())

		post, err := deps.Admission.Submit(c.Context(), sub, ident)
		if err != nil {
			if kind := domain.AdmissionKind(err); kind != "" {
				metrics.PostsRejected.WithLabelValues(sub.Category, string(kind)).Inc()
			}
			return errAdmission(c, err)
		}

		metrics.PostsAdmitted.WithLabelValues(string(post.Category)).Inc()
		deps.Feed.Invalidate(c.Context())

		return c.Status(201).JSON(post)
	}
}

// RecentPostsHandler returns the newest published posts.
// GET /v1/posts?category=positive,general&offset=0&limit=50
func RecentPostsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var categories []domain.Category
		if raw := c.Query("category"); raw != "" {
			for _, s := range strings.Split(raw, ",") {
				cat, ok := domain.ParseCategory(strings.TrimSpace(s))
				if !ok {
					return errBadRequest(c, "unknown category: "+s)
				}
				categories = append(categories, cat)
			}
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 100
		}

		posts, err := deps.Feed.Recent(c.Context(), categories, offset, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := Pagination{Offset: offset, Limit: limit, Count: len(posts)}
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "public, max-age=30")
		return c.JSON(PaginatedResponse{Data: posts, Pagination: pg})
	}
}

// NearbyPostsHandler returns published posts around a point, closest first.
// GET /v1/posts/nearby?lat=43.263&lng=-2.935&radius=1000
func NearbyPostsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lng := c.QueryFloat("lng", 0)
		radius := c.QueryFloat("radius", 1000)
		limit := c.QueryInt("limit", 100)

		if c.Query("lat") == "" || c.Query("lng") == "" {
			return errBadRequest(c, "lat and lng are required")
		}

		posts, err := deps.Feed.Nearby(c.Context(), lat, lng, radius, limit)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(posts)
	}
}

// GetPostHandler returns a single post by id.
func GetPostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "post id is required")
		}
		post, err := deps.Feed.Get(c.Context(), id)
		if errors.Is(err, domain.ErrPostNotFound) {
			return errNotFound(c, "post not found")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		if post.IsDeleted {
			return errNotFound(c, "post not found")
		}
		return c.JSON(post)
	}
}

// MyPostsHandler returns the caller's own posts, resolved by the same
// identity chain used at submission time.
// GET /v1/me/posts
func MyPostsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident := deps.Admission.ResolveIdentity(c.Context(), bearerToken(c), c.Query("author_id"), c.IP())

		limit := c.QueryInt("limit", 50)
		posts, err := deps.Feed.ByAuthor(c.Context(), ident, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(posts)
	}
}

// DeleteOwnPostHandler soft-deletes the caller's own post.
// DELETE /v1/posts/:id
func DeleteOwnPostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "post id is required")
		}

		ident := deps.Admission.ResolveIdentity(c.Context(), bearerToken(c), "", c.IP())
		if ident.Anonymous() {
			return errUnauthorized(c, "authentication required to delete posts")
		}

		err := deps.Moderation.DeleteOwn(c.Context(), id, ident.UserID)
		switch {
		case errors.Is(err, domain.ErrPostNotFound):
			return errNotFound(c, "post not found")
		case errors.Is(err, domain.ErrNotOwner):
			return errForbidden(c, "post is owned by another user")
		case err != nil:
			return errInternal(c, err.Error())
		}

		deps.Feed.Invalidate(c.Context())
		return c.SendStatus(204)
	}
}

// AdminAuthMiddleware guards moderation endpoints with a shared secret.
func AdminAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" || c.Get("X-Admin-Secret") != secret {
			return errUnauthorized(c, "admin credentials required")
		}
		return c.Next()
	}
}

// AdminRemovePostHandler takes down a post by moderator action.
// DELETE /v1/admin/posts/:id
func AdminRemovePostHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "post id is required")
		}

		err := deps.Moderation.Remove(c.Context(), id)
		switch {
		case errors.Is(err, domain.ErrPostNotFound):
			return errNotFound(c, "post not found")
		case err != nil:
			return errInternal(c, err.Error())
		}

		deps.Feed.Invalidate(c.Context())
		return c.SendStatus(204)
	}
}

// AdminBanUserHandler records a ban against a user.
// POST /v1/admin/bans
func AdminBanUserHandler(deps *Dependencies) fiber.Handler {
	type banRequest struct {
		UserID string `json:"user_id"`
		Reason string `json:"reason"`
	}
	return func(c *fiber.Ctx) error {
		var req banRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.UserID == "" {
			return errBadRequest(c, "user_id is required")
		}

		if err := deps.Moderation.BanUser(c.Context(), req.UserID, req.Reason); err != nil {
			return errInternal(c, err.Error())
		}
		return c.Status(201).JSON(fiber.Map{"user_id": req.UserID, "banned": true})
	}
}

// AdminReviewQueueHandler returns the newest posts for moderator review.
// GET /v1/admin/review
func AdminReviewQueueHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 50)
		posts, err := deps.Moderation.ReviewQueue(c.Context(), limit)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(posts)
	}
}

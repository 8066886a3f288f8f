package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/vibepin/vibepin/internal/adapters/http"
	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/core/usecases"
)

// ---- Mock repositories ----

type mockPostRepo struct {
	insertFn       func(ctx context.Context, p *domain.Post) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Post, error)
	listRecentFn   func(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error)
	findNearbyFn   func(ctx context.Context, lat, lng, radius float64, limit int) ([]domain.Post, error)
	listByAuthorFn func(ctx context.Context, ident domain.Identity, limit int) ([]domain.Post, error)
	lastPostedFn   func(ctx context.Context, ident domain.Identity, cats []domain.Category) (*time.Time, error)
	countSinceFn   func(ctx context.Context, ident domain.Identity, cats []domain.Category, since time.Time) (int, *time.Time, error)
	softDeleteFn   func(ctx context.Context, id, deletedBy string) error
	setStatusFn    func(ctx context.Context, id string, status domain.PostStatus) error
}

func (m *mockPostRepo) Insert(ctx context.Context, p *domain.Post) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, p)
	}
	p.ID = "new-post"
	return nil
}
func (m *mockPostRepo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrPostNotFound
}
func (m *mockPostRepo) ListRecent(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, cats, offset, limit)
	}
	return nil, nil
}
func (m *mockPostRepo) FindNearby(ctx context.Context, lat, lng, radius float64, limit int) ([]domain.Post, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lng, radius, limit)
	}
	return nil, nil
}
func (m *mockPostRepo) ListByAuthor(ctx context.Context, ident domain.Identity, limit int) ([]domain.Post, error) {
	if m.listByAuthorFn != nil {
		return m.listByAuthorFn(ctx, ident, limit)
	}
	return nil, nil
}
func (m *mockPostRepo) LastPostedAt(ctx context.Context, ident domain.Identity, cats []domain.Category) (*time.Time, error) {
	if m.lastPostedFn != nil {
		return m.lastPostedFn(ctx, ident, cats)
	}
	return nil, nil
}
func (m *mockPostRepo) CountSince(ctx context.Context, ident domain.Identity, cats []domain.Category, since time.Time) (int, *time.Time, error) {
	if m.countSinceFn != nil {
		return m.countSinceFn(ctx, ident, cats, since)
	}
	return 0, nil, nil
}
func (m *mockPostRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id, deletedBy)
	}
	return nil
}
func (m *mockPostRepo) SetStatus(ctx context.Context, id string, status domain.PostStatus) error {
	if m.setStatusFn != nil {
		return m.setStatusFn(ctx, id, status)
	}
	return nil
}
func (m *mockPostRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (m *mockPostRepo) ExpireFoundBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type mockPenaltyRepo struct {
	isBannedFn func(ctx context.Context, userID string) (bool, error)
	insertFn   func(ctx context.Context, p *domain.Penalty) error
}

func (m *mockPenaltyRepo) Insert(ctx context.Context, p *domain.Penalty) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, p)
	}
	return nil
}
func (m *mockPenaltyRepo) IsBanned(ctx context.Context, userID string) (bool, error) {
	if m.isBannedFn != nil {
		return m.isBannedFn(ctx, userID)
	}
	return false, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(posts *mockPostRepo, penalties *mockPenaltyRepo) *handler.Dependencies {
	if posts == nil {
		posts = &mockPostRepo{}
	}
	if penalties == nil {
		penalties = &mockPenaltyRepo{}
	}
	return &handler.Dependencies{
		Admission:   usecases.NewAdmissionService(posts, penalties, nil, nil, nil, []string{"badword"}),
		Feed:        usecases.NewFeedService(posts, nil),
		Moderation:  usecases.NewModerationService(posts, penalties, nil),
		AdminSecret: "test-secret",
	}
}

func submitBody(category, content string) string {
	return `{"category":"` + category + `","content":"` + content + `","location":{"lat":43.263,"lng":-2.935}}`
}

// ---- Submit handler tests ----

func TestSubmitPost_Created(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("POST", "/v1/posts", strings.NewReader(submitBody("general", "hello from the bridge")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var post domain.Post
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		t.Fatal(err)
	}
	if post.Category != domain.CategoryGeneral {
		t.Errorf("expected general, got %s", post.Category)
	}
	if post.AuthorAlias == "" {
		t.Error("expected generated alias for anonymous author")
	}
}

func TestSubmitPost_MissingLocation(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("POST", "/v1/posts", strings.NewReader(`{"category":"general","content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "missing_fields" {
		t.Errorf("expected missing_fields, got %s", apiErr.Code)
	}
}

func TestSubmitPost_CooldownReturns429(t *testing.T) {
	last := time.Now().Add(-1 * time.Minute)
	posts := &mockPostRepo{
		lastPostedFn: func(ctx context.Context, ident domain.Identity, cats []domain.Category) (*time.Time, error) {
			return &last, nil
		},
	}
	app := setupApp(makeDeps(posts, nil))

	req := httptest.NewRequest("POST", "/v1/posts", strings.NewReader(submitBody("rant", "this queue again")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 429 {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header on cooldown rejection")
	}

	var apiErr struct {
		Code              string `json:"code"`
		RetryAfterSeconds int    `json:"retry_after_seconds"`
		NextAllowedAt     string `json:"next_allowed_at"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "cooldown_active" {
		t.Errorf("expected cooldown_active, got %s", apiErr.Code)
	}
	if apiErr.RetryAfterSeconds <= 0 || apiErr.NextAllowedAt == "" {
		t.Errorf("expected retry timing in body, got %+v", apiErr)
	}
}

func TestSubmitPost_ProfanityRejected(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("POST", "/v1/posts", strings.NewReader(submitBody("general", "such a BadWord here")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "profanity_rejected" {
		t.Errorf("expected profanity_rejected, got %s", apiErr.Code)
	}
}

func TestSubmitPost_PersistenceTimeoutReturns504(t *testing.T) {
	posts := &mockPostRepo{
		insertFn: func(ctx context.Context, p *domain.Post) error {
			return context.DeadlineExceeded
		},
	}
	app := setupApp(makeDeps(posts, nil))

	req := httptest.NewRequest("POST", "/v1/posts", strings.NewReader(submitBody("general", "hi there")))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 504 {
		t.Fatalf("expected 504, got %d", resp.StatusCode)
	}
}

// ---- Feed handler tests ----

func TestRecentPosts_Success(t *testing.T) {
	posts := &mockPostRepo{
		listRecentFn: func(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error) {
			return []domain.Post{
				{ID: "p1", Category: domain.CategoryPositive, Content: "sunny terrace"},
				{ID: "p2", Category: domain.CategoryGeneral, Content: "road closed"},
			}, nil
		},
	}
	app := setupApp(makeDeps(posts, nil))

	req := httptest.NewRequest("GET", "/v1/posts", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Post `json:"data"`
		Pagination struct {
			Count int `json:"count"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data) != 2 || result.Pagination.Count != 2 {
		t.Errorf("expected 2 posts, got %d (count %d)", len(result.Data), result.Pagination.Count)
	}
}

func TestRecentPosts_UnknownCategory(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("GET", "/v1/posts?category=gossip", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRecentPosts_LinkHeaderOnFullPage(t *testing.T) {
	page := make([]domain.Post, 3)
	for i := range page {
		page[i] = domain.Post{ID: "p", Category: domain.CategoryGeneral}
	}
	posts := &mockPostRepo{
		listRecentFn: func(ctx context.Context, cats []domain.Category, offset, limit int) ([]domain.Post, error) {
			return page[:3], nil
		},
	}
	app := setupApp(makeDeps(posts, nil))

	req := httptest.NewRequest("GET", "/v1/posts?offset=3&limit=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link on full page, got %s", link)
	}
	if !strings.Contains(link, `rel="prev"`) {
		t.Errorf("expected prev link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
}

func TestNearbyPosts_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("GET", "/v1/posts/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearbyPosts_Success(t *testing.T) {
	dist := 42.5
	posts := &mockPostRepo{
		findNearbyFn: func(ctx context.Context, lat, lng, radius float64, limit int) ([]domain.Post, error) {
			return []domain.Post{
				{ID: "p1", Category: domain.CategoryFound, Distance: &dist},
			}, nil
		},
	}
	app := setupApp(makeDeps(posts, nil))

	req := httptest.NewRequest("GET", "/v1/posts/nearby?lat=43.263&lng=-2.935&radius=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got []domain.Post
	json.NewDecoder(resp.Body).Decode(&got)
	if len(got) != 1 || got[0].Distance == nil {
		t.Errorf("expected 1 post with distance, got %+v", got)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("GET", "/v1/posts/nonexistent-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetPost_RepoErrorIs500(t *testing.T) {
	posts := &mockPostRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return nil, errors.New("connection refused")
		},
	}
	app := setupApp(makeDeps(posts, nil))

	req := httptest.NewRequest("GET", "/v1/posts/some-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500 for repository failure, got %d", resp.StatusCode)
	}
}

func TestGetPost_SoftDeletedHidden(t *testing.T) {
	posts := &mockPostRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return &domain.Post{ID: id, IsDeleted: true}, nil
		},
	}
	app := setupApp(makeDeps(posts, nil))

	req := httptest.NewRequest("GET", "/v1/posts/deleted-one", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 for soft-deleted post, got %d", resp.StatusCode)
	}
}

// ---- Delete own post ----

func TestDeleteOwnPost_RequiresAuth(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("DELETE", "/v1/posts/some-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

// ---- Admin handlers ----

func TestAdminRemovePost_WrongSecret(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("DELETE", "/v1/admin/posts/p1", nil)
	req.Header.Set("X-Admin-Secret", "nope")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminRemovePost_Success(t *testing.T) {
	var gotStatus domain.PostStatus
	posts := &mockPostRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Post, error) {
			return &domain.Post{ID: id, Status: domain.StatusPublished}, nil
		},
		setStatusFn: func(ctx context.Context, id string, status domain.PostStatus) error {
			gotStatus = status
			return nil
		},
	}
	app := setupApp(makeDeps(posts, nil))

	req := httptest.NewRequest("DELETE", "/v1/admin/posts/p1", nil)
	req.Header.Set("X-Admin-Secret", "test-secret")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if gotStatus != domain.StatusRemoved {
		t.Errorf("expected status removed, got %s", gotStatus)
	}
}

func TestAdminBanUser_Success(t *testing.T) {
	var banned *domain.Penalty
	penalties := &mockPenaltyRepo{
		insertFn: func(ctx context.Context, p *domain.Penalty) error {
			banned = p
			return nil
		},
	}
	app := setupApp(makeDeps(nil, penalties))

	req := httptest.NewRequest("POST", "/v1/admin/bans", strings.NewReader(`{"user_id":"u9","reason":"spam"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Secret", "test-secret")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if banned == nil || banned.UserID != "u9" || banned.Type != "ban" {
		t.Errorf("unexpected penalty record: %+v", banned)
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	// With nil DB, ready should return 503
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- X-API-Version header ----

// A Cache-Control header on the request must not suppress the response
// default; only a handler-set response header does.
func TestCacheControl_IgnoresRequestHeader(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	req.Header.Set("Cache-Control", "no-cache")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=10" {
		t.Errorf("expected health cache default, got %q", cc)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	v := resp.Header.Get("X-API-Version")
	if v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

// TestAccessLogMiddleware verifies the middleware passes requests through.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()

	app.Use(handler.AccessLogMiddleware())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}

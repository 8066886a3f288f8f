package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vibepin/vibepin/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status            int    `json:"status"`
	Code              string `json:"code"`    // Error code: bad_request, cooldown_active, etc.
	Message           string `json:"message"` // Human-readable message
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
	NextAllowedAt     string `json:"next_allowed_at,omitempty"`
	RequestID         string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errForbidden returns a 403 error.
func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, 403, "forbidden", msg)
}

// admissionStatus maps a rejection kind to its HTTP status code.
func admissionStatus(kind domain.AdmissionErrorKind) int {
	switch kind {
	case domain.KindAuthorBanned:
		return 403
	case domain.KindCooldownActive, domain.KindDailyCapReached:
		return 429
	case domain.KindPersistenceFailed:
		return 500
	case domain.KindPersistenceTimeout:
		return 504
	default:
		return 400
	}
}

// errAdmission renders an admission rejection. Rate limit rejections carry a
// Retry-After header plus the concrete retry timing in the body.
func errAdmission(c *fiber.Ctx, err error) error {
	var ae *domain.AdmissionError
	if !errors.As(err, &ae) {
		return errInternal(c, err.Error())
	}

	status := admissionStatus(ae.Kind)
	resp := APIError{
		Status:  status,
		Code:    string(ae.Kind),
		Message: ae.Message,
	}
	if reqID, ok := c.Locals("requestid").(string); ok {
		resp.RequestID = reqID
	}
	if ae.Retryable() {
		resp.RetryAfterSeconds = ae.RetryAfterSeconds
		if ae.NextAllowedAt != nil {
			resp.NextAllowedAt = ae.NextAllowedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		c.Set("Retry-After", strconv.Itoa(ae.RetryAfterSeconds))
	}
	return c.Status(status).JSON(resp)
}

package domain

import (
	"errors"
	"fmt"
	"time"
)

// AdmissionErrorKind is the machine-readable reason a submission was
// rejected. The transport layer maps kinds to status codes.
type AdmissionErrorKind string

const (
	KindMissingFields      AdmissionErrorKind = "missing_fields"
	KindInvalidCoordinates AdmissionErrorKind = "invalid_coordinates"
	KindUnknownCategory    AdmissionErrorKind = "unknown_category"
	KindFoundItemsNoText   AdmissionErrorKind = "found_items_no_text"
	KindContentRequired    AdmissionErrorKind = "content_required"
	KindContentTooLong     AdmissionErrorKind = "content_too_long"
	KindProfanityRejected  AdmissionErrorKind = "profanity_rejected"
	KindAuthorBanned       AdmissionErrorKind = "author_banned"
	KindCooldownActive     AdmissionErrorKind = "cooldown_active"
	KindDailyCapReached    AdmissionErrorKind = "daily_cap_reached"
	KindPersistenceFailed  AdmissionErrorKind = "persistence_failed"
	KindPersistenceTimeout AdmissionErrorKind = "persistence_timeout"
)

// AdmissionError is a terminal rejection of a post submission. Policy
// rejections (cooldown, daily cap) carry the concrete retry timing so a
// client can render a countdown.
type AdmissionError struct {
	Kind              AdmissionErrorKind `json:"kind"`
	Message           string             `json:"message"`
	RetryAfterSeconds int                `json:"retry_after_seconds,omitempty"`
	NextAllowedAt     *time.Time         `json:"next_allowed_at,omitempty"`
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether resubmitting the same request later can succeed.
func (e *AdmissionError) Retryable() bool {
	switch e.Kind {
	case KindCooldownActive, KindDailyCapReached:
		return true
	}
	return false
}

// NewAdmissionError builds a non-policy rejection.
func NewAdmissionError(kind AdmissionErrorKind, msg string) *AdmissionError {
	return &AdmissionError{Kind: kind, Message: msg}
}

// AdmissionKind extracts the rejection kind from an error chain, or ""
// if the error is not an admission rejection.
func AdmissionKind(err error) AdmissionErrorKind {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Moderation errors.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotOwner     = errors.New("post is owned by another user")
)

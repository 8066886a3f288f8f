package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/core/ports"
	"github.com/vibepin/vibepin/internal/pkg/geocodec"
)

const maxContentCodePoints = 280

// AdmissionService validates and admits post submissions.
//
// Rate limiting is advisory: the history check and the insert are not one
// atomic transaction, so concurrent submissions from the same identity can
// race past the cooldown or cap window. A stricter variant would wrap the
// count and insert in a serializable transaction.
type AdmissionService struct {
	posts     ports.PostRepository
	penalties ports.PenaltyRepository
	verifier  ports.TokenVerifier
	events    ports.EventPublisher
	policies  *domain.PolicyTable
	denylist  []string

	// Now is the clock used for cooldown and cap windows. Tests override it.
	Now func() time.Time
}

// NewAdmissionService creates a new AdmissionService. denylist entries are
// matched case-insensitively as substrings of post content.
func NewAdmissionService(
	posts ports.PostRepository,
	penalties ports.PenaltyRepository,
	verifier ports.TokenVerifier,
	events ports.EventPublisher,
	policies *domain.PolicyTable,
	denylist []string,
) *AdmissionService {
	if policies == nil {
		policies = domain.DefaultPolicyTable()
	}
	lowered := make([]string, 0, len(denylist))
	for _, w := range denylist {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			lowered = append(lowered, w)
		}
	}
	return &AdmissionService{
		posts:     posts,
		penalties: penalties,
		verifier:  verifier,
		events:    events,
		policies:  policies,
		denylist:  lowered,
		Now:       time.Now,
	}
}

// ResolveIdentity picks the strongest available author identity: the
// verified bearer subject, then the client-asserted id, then only the
// network fingerprint. The fingerprint is always kept so anonymous posting
// stays rate-limited per origin.
func (s *AdmissionService) ResolveIdentity(ctx context.Context, bearer, assertedID, ip string) domain.Identity {
	if bearer != "" && s.verifier != nil {
		if uid, err := s.verifier.Verify(ctx, bearer); err == nil && uid != "" {
			return domain.Identity{UserID: uid, IP: ip}
		}
	}
	return domain.Identity{UserID: assertedID, IP: ip}
}

// Submit runs the admission pipeline: presence and coordinate checks,
// content-policy gates, cooldown and daily cap against the author's
// history, then normalization and insert. Every rejection is terminal for
// the request; the storage collaborator is never retried here.
func (s *AdmissionService) Submit(ctx context.Context, sub domain.Submission, ident domain.Identity) (*domain.Post, error) {
	if sub.Category == "" || sub.Location == nil {
		return nil, domain.NewAdmissionError(domain.KindMissingFields, "category and location are required")
	}
	if !isFinite(sub.Location.Lat) || !isFinite(sub.Location.Lng) {
		return nil, domain.NewAdmissionError(domain.KindInvalidCoordinates, "coordinates must be finite numbers")
	}

	cat, ok := domain.ParseCategory(sub.Category)
	if !ok {
		return nil, domain.NewAdmissionError(domain.KindUnknownCategory,
			fmt.Sprintf("unknown category %q", sub.Category))
	}
	policy := s.policies.Resolve(cat)

	// Content-policy gates, each independent.
	if cat == domain.CategoryFound {
		if sub.Content != "" {
			return nil, domain.NewAdmissionError(domain.KindFoundItemsNoText,
				"found items cannot have free text content")
		}
		if sub.Found == nil || sub.Found.ItemType == "" || sub.Found.Date.IsZero() || sub.Found.Disposition == "" {
			return nil, domain.NewAdmissionError(domain.KindMissingFields,
				"found reports require item type, date and disposition")
		}
	} else if sub.Content == "" {
		return nil, domain.NewAdmissionError(domain.KindContentRequired,
			"content required for this category")
	}
	if sub.Content != "" {
		if utf8.RuneCountInString(sub.Content) > maxContentCodePoints {
			return nil, domain.NewAdmissionError(domain.KindContentTooLong,
				fmt.Sprintf("content exceeds %d characters", maxContentCodePoints))
		}
		if s.matchesDenylist(sub.Content) {
			return nil, domain.NewAdmissionError(domain.KindProfanityRejected,
				"content contains inappropriate language")
		}
	}

	if ident.UserID != "" && s.penalties != nil {
		banned, err := s.penalties.IsBanned(ctx, ident.UserID)
		if err != nil {
			return nil, persistenceError(err)
		}
		if banned {
			return nil, domain.NewAdmissionError(domain.KindAuthorBanned, "author is banned")
		}
	}

	now := s.Now()
	group := s.policies.GroupCategories(cat)

	if policy.Cooldown > 0 {
		last, err := s.posts.LastPostedAt(ctx, ident, group)
		if err != nil {
			return nil, persistenceError(err)
		}
		if last != nil {
			if next := last.Add(policy.Cooldown); next.After(now) {
				wait := int(math.Ceil(next.Sub(now).Seconds()))
				return nil, &domain.AdmissionError{
					Kind:              domain.KindCooldownActive,
					Message:           fmt.Sprintf("cooling down, wait %dm", (wait+59)/60),
					RetryAfterSeconds: wait,
					NextAllowedAt:     &next,
				}
			}
		}
	}

	if policy.DailyCap > 0 {
		count, oldest, err := s.posts.CountSince(ctx, ident, group, now.Add(-24*time.Hour))
		if err != nil {
			return nil, persistenceError(err)
		}
		if count >= policy.DailyCap {
			ae := &domain.AdmissionError{
				Kind:    domain.KindDailyCapReached,
				Message: fmt.Sprintf("daily limit reached for %s posts", cat),
			}
			if oldest != nil {
				next := oldest.Add(24 * time.Hour)
				ae.NextAllowedAt = &next
				ae.RetryAfterSeconds = int(math.Ceil(next.Sub(now).Seconds()))
			}
			return nil, ae
		}
	}

	// Normalize through the codec; its range check is the safety net for
	// values that slipped past the finite check.
	point, err := geocodec.Decode([]float64{sub.Location.Lng, sub.Location.Lat})
	if err != nil {
		return nil, domain.NewAdmissionError(domain.KindInvalidCoordinates, "coordinates out of range")
	}

	alias := sub.AuthorAlias
	if ident.Anonymous() && alias == "" {
		alias = domain.AnonymousAlias()
	}
	seed := sub.AvatarSeed
	if seed == "" {
		seed = domain.NewAvatarSeed()
	}

	post := &domain.Post{
		Category:      cat,
		Content:       sub.Content,
		Found:         sub.Found,
		Location:      point,
		LocationWKT:   geocodec.EncodeWKT(point),
		LocationLabel: sub.Location.Label,
		PrecisionM:    200,
		Status:        domain.StatusPublished,
		AuthorUserID:  ident.UserID,
		AuthorAlias:   alias,
		AvatarSeed:    seed,
		AuthorIP:      ident.IP,
		CreatedAt:     now,
	}

	if err := s.posts.Insert(ctx, post); err != nil {
		return nil, persistenceError(err)
	}

	if s.events != nil {
		// Best-effort fan-out to the live map.
		_ = s.events.PublishPostCreated(ctx, post)
	}

	return post, nil
}

func (s *AdmissionService) matchesDenylist(content string) bool {
	lowered := strings.ToLower(content)
	for _, w := range s.denylist {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func persistenceError(err error) *domain.AdmissionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.AdmissionError{
			Kind:    domain.KindPersistenceTimeout,
			Message: "storage did not respond in time",
		}
	}
	return &domain.AdmissionError{
		Kind:    domain.KindPersistenceFailed,
		Message: "storage operation failed: " + err.Error(),
	}
}

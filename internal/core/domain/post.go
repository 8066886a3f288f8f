package domain

import (
	"time"
)

// Category classifies a post on the map.
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryGeneral  Category = "general"
	CategoryRant     Category = "rant"
	CategoryFound    Category = "found"
)

// ParseCategory validates a client-supplied category value.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategoryPositive, CategoryGeneral, CategoryRant, CategoryFound:
		return c, true
	}
	return "", false
}

// PostStatus is the moderation state of a post.
type PostStatus string

const (
	StatusPublished PostStatus = "published"
	StatusRemoved   PostStatus = "removed"
	StatusExpired   PostStatus = "expired"
)

// FoundReport carries the structured fields of a found-item post.
// Found posts never carry free text; these fields replace it.
type FoundReport struct {
	ItemType     string    `json:"item_type"`
	ItemClass    string    `json:"item_class,omitempty"`
	Date         time.Time `json:"date"`
	Disposition  string    `json:"disposition"`
	BusinessType string    `json:"business_type,omitempty"`
}

// RawLocation is a submission location exactly as the client sent it,
// before codec normalization.
type RawLocation struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// Submission is a single inbound post request before admission.
type Submission struct {
	Category    string       `json:"category"`
	Content     string       `json:"content,omitempty"`
	Found       *FoundReport `json:"found_data,omitempty"`
	Location    *RawLocation `json:"location"`
	AuthorID    string       `json:"author_id,omitempty"` // client-asserted, untrusted
	AuthorAlias string       `json:"author_alias,omitempty"`
	AvatarSeed  string       `json:"avatar_seed,omitempty"`
}

// Identity is the author identity a submission is attributed to after
// resolution: a verified user id when a valid credential was presented,
// otherwise only the network-address fingerprint.
type Identity struct {
	UserID string
	IP     string
}

// Anonymous reports whether the identity has no verified or asserted user.
func (i Identity) Anonymous() bool { return i.UserID == "" }

// Post is a persisted map post. Never mutated after admission; moderation
// flips status and the soft-delete fields only.
type Post struct {
	ID            string       `json:"id"`
	Category      Category     `json:"category"`
	Content       string       `json:"content,omitempty"`
	Found         *FoundReport `json:"found_data,omitempty"`
	Location      GeoPoint     `json:"location"`
	LocationWKT   string       `json:"-"` // form written to the geography column
	LocationLabel string       `json:"location_label,omitempty"`
	PrecisionM    int          `json:"location_precision_m"`
	Status        PostStatus   `json:"status"`
	AuthorUserID  string       `json:"author_user_id,omitempty"`
	AuthorAlias   string       `json:"author_alias,omitempty"`
	AvatarSeed    string       `json:"avatar_seed,omitempty"`
	AuthorIP      string       `json:"-"`
	CreatedAt     time.Time    `json:"created_at"`
	Distance      *float64     `json:"distance,omitempty"` // computed field
	IsDeleted     bool         `json:"-"`
	DeletedAt     *time.Time   `json:"-"`
	DeletedBy     string       `json:"-"`
}

// Penalty is a moderation action against a user.
type Penalty struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"penalty_type"` // "ban"
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

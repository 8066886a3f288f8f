package http

import (
	"github.com/nats-io/nats.go"

	"github.com/vibepin/vibepin/internal/adapters/postgres"
	"github.com/vibepin/vibepin/internal/adapters/valkey"
	"github.com/vibepin/vibepin/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Admission  *usecases.AdmissionService
	Feed       *usecases.FeedService
	Moderation *usecases.ModerationService
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache

	// AdminSecret guards the /v1/admin endpoints.
	AdminSecret string
}

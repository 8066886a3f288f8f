package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/vibepin/vibepin/internal/adapters/nats"
	"github.com/vibepin/vibepin/internal/adapters/valkey"
	"github.com/vibepin/vibepin/internal/core/domain"
	"github.com/vibepin/vibepin/internal/core/usecases"
	"github.com/vibepin/vibepin/internal/pkg/config"
	"github.com/vibepin/vibepin/internal/pkg/logging"
)

// The notifier consumes post lifecycle events from JetStream, drops the
// stale feed cache, and fans the events out on the broadcast subject that
// WebSocket relays listen on. Running it separately keeps the API pods
// off the durable consumer path.
func main() {
	cfg, err := config.Load("vibepin-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	feed := usecases.NewFeedService(nil, cache)

	err = sub.SubscribePostCreated(ctx, func(ctx context.Context, post *domain.Post) error {
		feed.Invalidate(ctx)
		msg, err := json.Marshal(map[string]any{"type": "post.created", "post": post})
		if err != nil {
			return err
		}
		slog.Info("post created", "post_id", post.ID, "category", post.Category)
		return pub.PublishBroadcast(ctx, msg)
	})
	if err != nil {
		log.Fatalf("subscribe post created: %v", err)
	}

	err = sub.SubscribePostRemoved(ctx, func(ctx context.Context, postID string) error {
		feed.Invalidate(ctx)
		msg, err := json.Marshal(map[string]any{"type": "post.removed", "id": postID})
		if err != nil {
			return err
		}
		slog.Info("post removed", "post_id", postID)
		return pub.PublishBroadcast(ctx, msg)
	})
	if err != nil {
		log.Fatalf("subscribe post removed: %v", err)
	}

	slog.Info("notifier started", "nats", cfg.NATS.URL)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("notifier shutting down")
}

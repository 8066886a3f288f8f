package main

import (
	"context"
	"log"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/vibepin/vibepin/internal/adapters/postgres"
	"github.com/vibepin/vibepin/internal/pkg/config"
	"github.com/vibepin/vibepin/internal/pkg/logging"
	"github.com/vibepin/vibepin/internal/workflows"
)

func main() {
	cfg, err := config.Load("vibepin-sweeper")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RetentionWorkflow)
	w.RegisterActivity(&workflows.RetentionActivities{
		Posts: postgres.NewPostRepo(db),
	})

	// Hourly sweep. Starting the cron workflow is idempotent: a second
	// sweeper instance gets an already-started error, which is fine.
	_, err = c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           "retention-sweep",
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: "0 * * * *",
	}, workflows.RetentionWorkflow, workflows.RetentionInput{
		PurgeDeletedAfter: cfg.Retention.PurgeDeletedAfter,
		ExpireFoundAfter:  cfg.Retention.ExpireFoundAfter,
	})
	if err != nil {
		log.Printf("schedule retention sweep: %v", err)
	}

	log.Println("sweeper worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RetentionInput is the input for the retention sweep workflow.
type RetentionInput struct {
	// PurgeDeletedAfter is how long soft-deleted posts are kept before
	// permanent removal.
	PurgeDeletedAfter time.Duration
	// ExpireFoundAfter is how long found-item posts stay published.
	ExpireFoundAfter time.Duration
}

// RetentionWorkflow runs one cleanup sweep: it expires stale found-item
// posts so they drop off the map, then purges soft-deleted posts past the
// retention window. Scheduled by the sweeper worker as a Temporal cron.
func RetentionWorkflow(ctx workflow.Context, input RetentionInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting retention sweep",
		"purgeDeletedAfter", input.PurgeDeletedAfter,
		"expireFoundAfter", input.ExpireFoundAfter)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	now := workflow.Now(ctx)

	var expired int64
	if err := workflow.ExecuteActivity(ctx, "ExpireStaleFoundPosts",
		now.Add(-input.ExpireFoundAfter)).Get(ctx, &expired); err != nil {
		return err
	}

	var purged int64
	if err := workflow.ExecuteActivity(ctx, "PurgeDeletedPosts",
		now.Add(-input.PurgeDeletedAfter)).Get(ctx, &purged); err != nil {
		return err
	}

	logger.Info("Retention sweep finished", "expired", expired, "purged", purged)
	return nil
}

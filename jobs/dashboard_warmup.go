package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/procureflow/procureflow/internal/procurement"
)

// DashboardWarmupJob pre-populates the dashboard cache so the first reader
// after an invalidation does not pay the scan.
type DashboardWarmupJob struct {
	Dashboard *procurement.Aggregator
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(dashboard *procurement.Aggregator, logger *slog.Logger) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Dashboard: dashboard,
		Logger:    logger,
		clock:     time.Now,
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	start := j.clock()

	summary, err := j.Dashboard.Summary(ctx)
	if err != nil {
		j.Logger.Error("dashboard warmup", slog.Any("error", err))
		return err
	}
	if _, err := j.Dashboard.RequisitionOverview(ctx); err != nil {
		j.Logger.Error("dashboard warmup overview", slog.Any("error", err))
		return err
	}

	j.Logger.Info("dashboard warmed",
		slog.String("reason", payload.Reason),
		slog.Int("total_pr", summary.TotalPR),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

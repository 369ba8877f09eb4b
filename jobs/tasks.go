// Package jobs runs background work over asynq: the dashboard cache warmup
// and the queue plumbing around it.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Queue names.
const QueueDefault = "default"

// Task type identifiers.
const TaskDashboardWarmup = "dashboard:warmup"

// DashboardWarmupPayload scopes a warmup run.
type DashboardWarmupPayload struct {
	// Reason records what triggered the run, for log correlation.
	Reason string `json:"reason,omitempty"`
}

// NewDashboardWarmupTask builds a warmup task.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, raw), nil
}

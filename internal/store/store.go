// Package store provides the durable record of documentation jobs and their
// per-stage progress. It is the single source of truth for job state: the
// submission path reads it for idempotency checks and the worker reads and
// writes it while driving a run. Every operation is a short, self-contained
// statement; no multi-statement transactions span job and stage writes.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a job does not exist.
var ErrNotFound = errors.New("job not found")

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
	StatusCancelled Status = "cancelled"
	StatusDeleted   Status = "deleted"
)

// Terminal returns true if the status is a terminal outcome of a run.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job is one documentation-generation request. The ID is deterministic,
// derived from the canonical repository identity, so re-submitting the same
// repository resolves to the same record.
type Job struct {
	ID           string     `json:"id"`
	RepoURL      string     `json:"repo_url"`
	Title        string     `json:"title"`
	Status       Status     `json:"status"`
	Progress     int        `json:"progress"`
	CurrentStage string     `json:"current_stage,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	OutputURL    string     `json:"output_url,omitempty"`
}

// Stage is one named step of the pipeline for a job. Rows are unique per
// (job_id, name) and upserted, never duplicated.
type Stage struct {
	JobID         string   `json:"-"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Completed     bool     `json:"completed"`
	ExecutionTime *float64 `json:"execution_time,omitempty"` // seconds
	Error         string   `json:"error,omitempty"`
}

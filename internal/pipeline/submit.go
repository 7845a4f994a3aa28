package pipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/docsmith/internal/fetcher"
	"github.com/jackzampolin/docsmith/internal/store"
)

// JobID derives the deterministic job identifier for a repository and title.
// Submitting the same repository with the same title always resolves to the
// same job.
func JobID(repo fetcher.RepoIdentity, title string) string {
	sum := md5.Sum([]byte(repo.String() + ":" + title))
	return hex.EncodeToString(sum[:])
}

// Submitter is the entry point for new documentation requests. It enforces
// idempotent submission against the store and hands accepted work to the
// queue.
type Submitter struct {
	store  *store.Store
	queue  *Queue
	logger *slog.Logger
}

// SubmitterConfig configures a Submitter.
type SubmitterConfig struct {
	Store  *store.Store
	Queue  *Queue
	Logger *slog.Logger
}

func NewSubmitter(cfg SubmitterConfig) *Submitter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		store:  cfg.Store,
		queue:  cfg.Queue,
		logger: logger.With("component", "submitter"),
	}
}

// Submit resolves a repository URL to its deterministic job and enqueues a
// run. A live job (pending or running) is returned as-is unless force is
// set; force deletes all prior state first. A terminal job is reset and
// re-run under the same id.
func (s *Submitter) Submit(ctx context.Context, repoURL, title string, force bool, token string) (*store.Job, error) {
	repo, err := fetcher.ParseRepo(repoURL)
	if err != nil {
		return nil, fmt.Errorf("parsing repository url: %w", err)
	}
	id := JobID(repo, title)
	log := s.logger.With("job_id", id, "repo", repo.String())

	existing, err := s.store.GetJob(ctx, id)
	switch {
	case err == nil && force:
		if _, derr := s.store.DeleteJob(ctx, id); derr != nil {
			return nil, fmt.Errorf("deleting job for forced resubmission: %w", derr)
		}
		log.Info("force resubmission, prior job state deleted")
	case err == nil && !existing.Status.Terminal():
		log.Info("job already in progress, submission is a no-op", "status", existing.Status)
		return existing, nil
	case err == nil:
		// Terminal job resubmitted without force: reset and re-run in
		// place, keeping the deterministic id.
		if rerr := s.store.ResetStages(ctx, id); rerr != nil {
			return nil, fmt.Errorf("resetting stages for resubmission: %w", rerr)
		}
		log.Info("resubmitting terminal job", "previous_status", existing.Status)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("looking up job: %w", err)
	}

	job := &store.Job{
		ID:        id,
		RepoURL:   repoURL,
		Title:     title,
		Status:    store.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.store.UpsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job record: %w", err)
	}
	if err := seedStages(ctx, s.store, id); err != nil {
		return nil, fmt.Errorf("seeding stages: %w", err)
	}

	if err := s.queue.Submit(Task{JobID: id, RepoURL: repoURL, Title: title, Token: token}); err != nil {
		return nil, err
	}
	log.Info("job submitted", "title", title)

	return s.store.GetJob(ctx, id)
}

// Resubmit resets a known job back to pending and enqueues it again. Used by
// the reset operation; the job must already exist.
func (s *Submitter) Resubmit(ctx context.Context, jobID, token string) (*store.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.store.ResetStages(ctx, jobID); err != nil {
		return nil, fmt.Errorf("resetting stages: %w", err)
	}
	job.Status = store.StatusPending
	job.Progress = 0
	job.CurrentStage = ""
	job.Error = ""
	job.CompletedAt = nil
	job.OutputURL = ""
	if err := s.store.UpsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("resetting job: %w", err)
	}

	if err := s.queue.Submit(Task{JobID: jobID, RepoURL: job.RepoURL, Title: job.Title, Token: token}); err != nil {
		return nil, err
	}
	s.logger.Info("job reset and resubmitted", "job_id", jobID)

	return s.store.GetJob(ctx, jobID)
}

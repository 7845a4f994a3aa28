package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackzampolin/docsmith/internal/metrics"
	"github.com/jackzampolin/docsmith/internal/store"
)

// ErrQueueFull is returned when a submission cannot be enqueued without
// blocking.
var ErrQueueFull = errors.New("task queue is full")

// Task identifies one unit of queued work. The queue carries identifiers
// only; all durable state lives in the store, so losing queued tasks on a
// crash loses only unclaimed submissions.
type Task struct {
	JobID   string
	RepoURL string
	Title   string
	Token   string
}

// Queue is a bounded FIFO of submitted jobs consumed by a single worker.
type Queue struct {
	tasks   chan Task
	metrics *metrics.Metrics
}

func NewQueue(size int, m *metrics.Metrics) *Queue {
	if size <= 0 {
		size = 100
	}
	return &Queue{
		tasks:   make(chan Task, size),
		metrics: m,
	}
}

// Submit enqueues a task without blocking. Returns ErrQueueFull when the
// buffer is exhausted.
func (q *Queue) Submit(t Task) error {
	select {
	case q.tasks <- t:
		q.metrics.SetQueueDepth(len(q.tasks))
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports the number of tasks waiting.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Worker consumes the queue and drives each job through the Runner, one job
// at a time. Sequential processing keeps Generator calls serialized at the
// scheduling level as well as behind the invocation permit.
type Worker struct {
	queue  *Queue
	store  *store.Store
	runner *Runner
	logger *slog.Logger
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Queue  *Queue
	Store  *store.Store
	Runner *Runner
	Logger *slog.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:  cfg.Queue,
		store:  cfg.Store,
		runner: cfg.Runner,
		logger: logger.With("component", "worker"),
	}
}

// Start consumes tasks until ctx is done. It blocks; run it in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", "queued", w.queue.Len())
			return
		case task := <-w.queue.tasks:
			w.queue.metrics.SetQueueDepth(w.queue.Len())
			w.process(ctx, task)
		}
	}
}

// process runs one task end to end. Runner errors are already persisted on
// the job record, so here they are only logged.
func (w *Worker) process(ctx context.Context, task Task) {
	log := w.logger.With("job_id", task.JobID)
	log.Info("dequeued job", "repo_url", task.RepoURL, "title", task.Title)

	if err := w.ensureJob(ctx, task); err != nil {
		log.Error("preparing job record failed", "error", err)
		return
	}

	start := time.Now()
	if err := w.runner.Run(ctx, task.JobID, task.RepoURL, task.Title, task.Token); err != nil {
		log.Error("job run ended with error", "error", err, "seconds", time.Since(start).Seconds())
		return
	}
	log.Info("job run finished", "seconds", time.Since(start).Seconds())
}

// ensureJob creates the job record with pending stages when a queued task
// has no durable state yet.
func (w *Worker) ensureJob(ctx context.Context, task Task) error {
	_, err := w.store.GetJob(ctx, task.JobID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	job := &store.Job{
		ID:        task.JobID,
		RepoURL:   task.RepoURL,
		Title:     task.Title,
		Status:    store.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := w.store.UpsertJob(ctx, job); err != nil {
		return err
	}
	return seedStages(ctx, w.store, task.JobID)
}

// seedStages inserts the five fixed stages as pending rows.
func seedStages(ctx context.Context, s *store.Store, jobID string) error {
	for _, info := range FixedStages() {
		err := s.UpsertStage(ctx, jobID, &store.Stage{
			Name:        info.Name,
			Description: info.Description,
			Completed:   false,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

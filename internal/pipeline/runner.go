package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/docsmith/internal/fetcher"
	"github.com/jackzampolin/docsmith/internal/generator"
	"github.com/jackzampolin/docsmith/internal/metrics"
	"github.com/jackzampolin/docsmith/internal/store"
)

// currentStageFetching is reported while repository context is being fetched,
// before the first pipeline stage starts.
const currentStageFetching = "fetching_repository"

// Runner drives one documentation job through the fixed stage sequence.
// Stage failures are recorded and skipped over; only a repository fetch
// failure or an interrupted run ends a job without attempting every stage.
type Runner struct {
	store    *store.Store
	fetcher  fetcher.Fetcher
	gen      generator.Generator
	prompts  *PromptAssembler
	compiler *Compiler
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// RunnerConfig configures a Runner. Store, Fetcher, Generator and Compiler
// are required; Metrics and Logger are optional.
type RunnerConfig struct {
	Store     *store.Store
	Fetcher   fetcher.Fetcher
	Generator generator.Generator
	Compiler  *Compiler
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    cfg.Store,
		fetcher:  cfg.Fetcher,
		gen:      cfg.Generator,
		prompts:  NewPromptAssembler(),
		compiler: cfg.Compiler,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "runner"),
	}
}

// Run executes the full pipeline for one job and persists its terminal
// state. The returned error reports why a run ended failed or partial; a
// completed or cancelled job returns nil.
func (r *Runner) Run(ctx context.Context, jobID, repoURL, title, token string) error {
	log := r.logger.With("job_id", jobID)

	repo, err := fetcher.ParseRepo(repoURL)
	if err != nil {
		return r.finishFailed(ctx, jobID, fmt.Errorf("parsing repository url: %w", err))
	}

	if err := r.updateJob(ctx, jobID, store.StatusRunning, progressFetching, currentStageFetching, "", nil, ""); err != nil {
		return err
	}

	rc, err := r.fetcher.Fetch(ctx, repo, token)
	if err != nil {
		// Without file tree and README there is no valid input for any
		// stage, so this is fatal rather than partial.
		log.Error("repository fetch failed", "error", err)
		return r.finishFailed(ctx, jobID, fmt.Errorf("fetching repository context: %w", err))
	}
	log.Info("fetched repository context", "repo", repo.String(), "files", strings.Count(rc.FileTree, "\n")+1)

	results := make(map[string]StageResult)
	var plan *Plan

	fixed := FixedStages()
	for i, info := range fixed {
		if done, err := r.checkCancelled(ctx, jobID); done {
			log.Info("job cancelled, stopping at stage boundary", "stage", info.Name)
			return err
		}
		if ctx.Err() != nil {
			return r.finishInterrupted(ctx, jobID, title, repoURL, ctx.Err(), results)
		}

		if err := r.updateJob(ctx, jobID, store.StatusRunning, stageProgress(i, len(fixed)), info.Name, "", nil, ""); err != nil {
			return err
		}
		r.runStage(ctx, log, jobID, info.Name, info.Description, results, func(ctx context.Context) (string, error) {
			system := r.prompts.SystemPrompt(info.Name)
			user := r.prompts.UserPrompt(repo, repoURL, info.Name, results, rc)
			return r.gen.Invoke(ctx, system, user)
		})

		switch info.Name {
		case StagePlanning:
			if res, ok := results[StagePlanning]; ok {
				p, perr := ParsePlan(res.Content)
				if perr != nil {
					log.Warn("no structured plan extracted, falling back to flat document", "error", perr)
				} else {
					plan = p
					log.Info("parsed documentation plan", "chapters", len(p.Chapters))
				}
			}
		case StageContentGeneration:
			if plan != nil {
				cancelled, err := r.runChapters(ctx, log, jobID, repo, repoURL, plan, results)
				if cancelled {
					log.Info("job cancelled, stopping between chapters")
					return err
				}
				if err != nil {
					return r.finishInterrupted(ctx, jobID, title, repoURL, err, results)
				}
			}
		}
	}

	outputURL, err := r.compiler.Compile(jobID, title, repoURL, plan, results)
	if err != nil {
		log.Error("compiling final document failed", "error", err)
		return r.finishInterrupted(ctx, jobID, title, repoURL, err, results)
	}

	now := time.Now()
	if err := r.updateJob(ctx, jobID, store.StatusCompleted, progressDone, "", "", &now, outputURL); err != nil {
		return err
	}
	r.metrics.JobFinished(string(store.StatusCompleted))
	log.Info("job completed", "output_url", outputURL, "stages_succeeded", len(results))
	return nil
}

// runStage invokes one stage and persists its outcome. Failures are recorded
// on the stage row and the pipeline moves on; later stages degrade to working
// without this stage's output.
func (r *Runner) runStage(ctx context.Context, log *slog.Logger, jobID, name, description string, results map[string]StageResult, invoke func(context.Context) (string, error)) {
	if err := r.store.UpsertStage(ctx, jobID, &store.Stage{
		Name:        name,
		Description: description,
		Completed:   false,
	}); err != nil {
		log.Error("persisting stage start failed", "stage", name, "error", err)
	}

	log.Info("starting stage", "stage", name)
	start := time.Now()
	content, err := invoke(ctx)
	elapsed := time.Since(start).Seconds()

	// Outcome rows are written even when the run's context was cancelled
	// mid-invoke; a stage that ran must leave a durable record.
	wctx := context.WithoutCancel(ctx)

	if err != nil {
		log.Error("stage failed", "stage", name, "error", err)
		r.metrics.StageFinished(name, "failed")
		if serr := r.store.UpsertStage(wctx, jobID, &store.Stage{
			Name:        name,
			Description: "Error in " + strings.ReplaceAll(name, "_", " "),
			Completed:   false,
			Error:       err.Error(),
		}); serr != nil {
			log.Error("persisting stage failure failed", "stage", name, "error", serr)
		}
		return
	}

	results[name] = StageResult{Stage: name, Content: content, CompletedAt: time.Now()}
	r.metrics.StageFinished(name, "completed")
	r.metrics.ObserveStageDuration(name, elapsed)
	if serr := r.store.UpsertStage(wctx, jobID, &store.Stage{
		Name:          name,
		Description:   "Completed " + strings.ReplaceAll(name, "_", " "),
		Completed:     true,
		ExecutionTime: &elapsed,
	}); serr != nil {
		log.Error("persisting stage completion failed", "stage", name, "error", serr)
	}
	log.Info("completed stage", "stage", name, "seconds", elapsed)
}

// runChapters generates one sub-stage per plan chapter, sequentially. Each
// chapter sees only its own plan fragment to stay inside token budgets.
// Individual chapter failures do not affect the job's terminal status. A true
// cancelled return means the job was already finalized here; the caller must
// not finalize it again.
func (r *Runner) runChapters(ctx context.Context, log *slog.Logger, jobID string, repo fetcher.RepoIdentity, repoURL string, plan *Plan, results map[string]StageResult) (cancelled bool, err error) {
	for _, ch := range plan.Chapters {
		if done, cerr := r.checkCancelled(ctx, jobID); done {
			return true, cerr
		}
		if cerr := ctx.Err(); cerr != nil {
			return false, cerr
		}

		name := ChapterStageName(ch.ID)
		r.runStage(ctx, log, jobID, name, "Generating chapter: "+ch.Title, results, func(ctx context.Context) (string, error) {
			system := r.prompts.SystemPrompt(StageContentGeneration)
			user := r.prompts.ChapterPrompt(repo, repoURL, ch)
			return r.gen.Invoke(ctx, system, user)
		})
	}
	return false, nil
}

// checkCancelled reads the durable job record at a stage boundary. An
// externally requested cancellation takes effect here, never mid-call.
func (r *Runner) checkCancelled(ctx context.Context, jobID string) (bool, error) {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		// A read failure here must not kill the run; the next boundary
		// checks again.
		return false, nil
	}
	if job.Status != store.StatusCancelled {
		return false, nil
	}
	now := time.Now()
	if err := r.updateJob(ctx, jobID, store.StatusCancelled, job.Progress, "", "", &now, ""); err != nil {
		return true, err
	}
	r.metrics.JobFinished(string(store.StatusCancelled))
	return true, nil
}

// finishInterrupted handles a top-level error mid-run. With at least one
// stage result a best-effort basic document is still written and the job is
// marked partial; with nothing usable it is marked failed.
func (r *Runner) finishInterrupted(ctx context.Context, jobID, title, repoURL string, runErr error, results map[string]StageResult) error {
	log := r.logger.With("job_id", jobID)

	// The run error is often the context's own cancellation; the terminal
	// write must still land or the job is stuck at running forever.
	ctx = context.WithoutCancel(ctx)

	if len(results) == 0 {
		return r.finishFailed(ctx, jobID, runErr)
	}

	outputURL, berr := r.compiler.BasicDocument(jobID, title, repoURL, runErr, results)
	if berr != nil {
		return r.finishFailed(ctx, jobID, fmt.Errorf("%v (additionally, failed to generate basic documentation: %v)", runErr, berr))
	}

	now := time.Now()
	if err := r.updateJob(ctx, jobID, store.StatusPartial, progressDone, "", runErr.Error(), &now, outputURL); err != nil {
		return err
	}
	r.metrics.JobFinished(string(store.StatusPartial))
	log.Warn("job finished partially", "error", runErr, "output_url", outputURL)
	return runErr
}

func (r *Runner) finishFailed(ctx context.Context, jobID string, runErr error) error {
	ctx = context.WithoutCancel(ctx)
	now := time.Now()
	// Failed jobs report zero progress: nothing they produced is usable.
	if err := r.updateJob(ctx, jobID, store.StatusFailed, 0, "", runErr.Error(), &now, ""); err != nil {
		return err
	}
	r.metrics.JobFinished(string(store.StatusFailed))
	r.logger.Error("job failed", "job_id", jobID, "error", runErr)
	return runErr
}

// updateJob writes the run-mutable fields of a job record. Repo URL, title
// and creation time are preserved by the store's upsert.
func (r *Runner) updateJob(ctx context.Context, jobID string, status store.Status, progress int, currentStage, errText string, completedAt *time.Time, outputURL string) error {
	err := r.store.UpsertJob(ctx, &store.Job{
		ID:           jobID,
		Status:       status,
		Progress:     progress,
		CurrentStage: currentStage,
		Error:        errText,
		CompletedAt:  completedAt,
		OutputURL:    outputURL,
	})
	if err != nil {
		return fmt.Errorf("updating job %s: %w", jobID, err)
	}
	return nil
}

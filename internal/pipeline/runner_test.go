package pipeline

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackzampolin/docsmith/internal/fetcher"
	"github.com/jackzampolin/docsmith/internal/generator"
	"github.com/jackzampolin/docsmith/internal/metrics"
	"github.com/jackzampolin/docsmith/internal/store"
)

type stubFetcher struct {
	rc  *fetcher.RepoContext
	err error
}

func (f *stubFetcher) Fetch(ctx context.Context, repo fetcher.RepoIdentity, token string) (*fetcher.RepoContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rc, nil
}

func newTestRunner(t *testing.T, gen generator.Generator, fetch fetcher.Fetcher) (*Runner, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := NewRunner(RunnerConfig{
		Store:     s,
		Fetcher:   fetch,
		Generator: gen,
		Compiler:  NewCompiler(CompilerConfig{OutputDir: t.TempDir()}),
	})
	return r, s
}

func seedTestJob(t *testing.T, s *store.Store, id string) {
	t.Helper()
	ctx := context.Background()
	err := s.UpsertJob(ctx, &store.Job{
		ID:      id,
		RepoURL: "https://github.com/acme/foo",
		Title:   "Foo Docs",
		Status:  store.StatusPending,
	})
	if err != nil {
		t.Fatalf("seeding job: %v", err)
	}
	if err := seedStages(ctx, s, id); err != nil {
		t.Fatalf("seeding stages: %v", err)
	}
}

func defaultRepoContext() *fetcher.RepoContext {
	return &fetcher.RepoContext{
		FileTree: "cmd/foo/main.go\ninternal/app/app.go\nREADME.md",
		Readme:   "# foo\n\nA service.",
	}
}

func TestRunnerCompletesAllStages(t *testing.T) {
	ctx := context.Background()
	gen := &generator.Mock{Response: "stage output"}
	r, s := newTestRunner(t, gen, &stubFetcher{rc: defaultRepoContext()})
	seedTestJob(t, s, "job1")

	if err := r.Run(ctx, "job1", "https://github.com/acme/foo", "Foo Docs", ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	job, err := s.GetJob(ctx, "job1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != store.StatusCompleted {
		t.Errorf("status = %s, want completed (error: %s)", job.Status, job.Error)
	}
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}
	if job.OutputURL == "" {
		t.Error("output_url is empty")
	}
	if job.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	stages, err := s.GetStages(ctx, "job1")
	if err != nil {
		t.Fatalf("GetStages() error = %v", err)
	}
	if len(stages) != 5 {
		t.Fatalf("len(stages) = %d, want 5", len(stages))
	}
	for _, st := range stages {
		if !st.Completed {
			t.Errorf("stage %s not completed", st.Name)
		}
		if st.ExecutionTime == nil {
			t.Errorf("stage %s has no execution time", st.Name)
		}
	}

	if gen.CallCount() != 5 {
		t.Errorf("generator calls = %d, want 5", gen.CallCount())
	}
}

func TestRunnerPartialTolerance(t *testing.T) {
	ctx := context.Background()

	// Fail only the planning stage; everything after it must still run.
	planningPrompt := NewPromptAssembler().SystemPrompt(StagePlanning)
	gen := &generator.Mock{
		Fn: func(ctx context.Context, system, user string) (string, error) {
			if system == planningPrompt {
				return "", errors.New("model refused")
			}
			return "stage output", nil
		},
	}
	r, s := newTestRunner(t, gen, &stubFetcher{rc: defaultRepoContext()})
	seedTestJob(t, s, "job2")

	if err := r.Run(ctx, "job2", "https://github.com/acme/foo", "Foo Docs", ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	job, _ := s.GetJob(ctx, "job2")
	if job.Status != store.StatusCompleted {
		t.Errorf("status = %s, want completed despite planning failure", job.Status)
	}

	if gen.CallCount() != 5 {
		t.Errorf("generator calls = %d, want 5 (later stages must still run)", gen.CallCount())
	}

	stages, _ := s.GetStages(ctx, "job2")
	byName := map[string]store.Stage{}
	for _, st := range stages {
		byName[st.Name] = st
	}
	if byName[StagePlanning].Completed {
		t.Error("planning stage should be recorded as failed")
	}
	if byName[StagePlanning].Error == "" {
		t.Error("planning stage missing error message")
	}
	for _, name := range []string{StageCodeAnalysis, StageContentGeneration, StageOptimization, StageQualityCheck} {
		if !byName[name].Completed {
			t.Errorf("stage %s should have completed", name)
		}
	}
}

func TestRunnerFetchFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	gen := &generator.Mock{Response: "stage output"}
	r, s := newTestRunner(t, gen, &stubFetcher{err: fetcher.ErrRepoUnavailable})
	seedTestJob(t, s, "job3")

	if err := r.Run(ctx, "job3", "https://github.com/acme/foo", "Foo Docs", ""); err == nil {
		t.Fatal("Run() should return the fetch error")
	}

	job, _ := s.GetJob(ctx, "job3")
	if job.Status != store.StatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if job.Error == "" {
		t.Error("job error not recorded")
	}
	if gen.CallCount() != 0 {
		t.Errorf("generator calls = %d, want 0 before any stage runs", gen.CallCount())
	}
	if job.Progress != 0 {
		t.Errorf("progress = %d, want 0 for a failed job", job.Progress)
	}
}

func TestRunnerInterruptedRunEndsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the run's context as soon as the first stage succeeds. The job
	// must still reach a durable terminal state with a best-effort document,
	// not stay stuck at running.
	gen := &generator.Mock{}
	gen.Fn = func(ctx context.Context, system, user string) (string, error) {
		cancel()
		return "stage output", nil
	}
	r, s := newTestRunner(t, gen, &stubFetcher{rc: defaultRepoContext()})
	seedTestJob(t, s, "job7")

	if err := r.Run(ctx, "job7", "https://github.com/acme/foo", "Foo Docs", ""); err == nil {
		t.Fatal("Run() should return the interruption error")
	}

	job, err := s.GetJob(context.Background(), "job7")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != store.StatusPartial {
		t.Errorf("status = %s, want partial", job.Status)
	}
	if job.OutputURL == "" {
		t.Error("partial run should still record an output_url")
	}
	if job.Error == "" {
		t.Error("job error not recorded")
	}
	if job.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	if gen.CallCount() != 1 {
		t.Errorf("generator calls = %d, want 1", gen.CallCount())
	}
}

func TestRunnerInterruptedBeforeAnyResultFails(t *testing.T) {
	// With every attempted stage failed there is nothing to compile, so an
	// interrupted run ends failed rather than partial.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &generator.Mock{}
	gen.Fn = func(ctx context.Context, system, user string) (string, error) {
		cancel()
		return "", errors.New("model unavailable")
	}
	r, s := newTestRunner(t, gen, &stubFetcher{rc: defaultRepoContext()})
	seedTestJob(t, s, "job8")

	if err := r.Run(ctx, "job8", "https://github.com/acme/foo", "Foo Docs", ""); err == nil {
		t.Fatal("Run() should return the interruption error")
	}

	job, _ := s.GetJob(context.Background(), "job8")
	if job.Status != store.StatusFailed {
		t.Errorf("status = %s, want failed", job.Status)
	}
	if job.OutputURL != "" {
		t.Errorf("output_url = %q, want empty", job.OutputURL)
	}
	if job.Error == "" {
		t.Error("job error not recorded")
	}
}

func TestRunnerCancellationAtStageBoundary(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// Cancel the job externally after the first stage finishes; the next
	// boundary check must stop the run.
	gen := &generator.Mock{}
	gen.Fn = func(ctx context.Context, system, user string) (string, error) {
		if gen.CallCount() == 1 {
			job, gerr := s.GetJob(ctx, "job4")
			if gerr != nil {
				return "", gerr
			}
			job.Status = store.StatusCancelled
			if uerr := s.UpsertJob(ctx, job); uerr != nil {
				return "", uerr
			}
		}
		return "stage output", nil
	}

	r := NewRunner(RunnerConfig{
		Store:     s,
		Fetcher:   &stubFetcher{rc: defaultRepoContext()},
		Generator: gen,
		Compiler:  NewCompiler(CompilerConfig{OutputDir: t.TempDir()}),
	})
	seedTestJob(t, s, "job4")

	if err := r.Run(ctx, "job4", "https://github.com/acme/foo", "Foo Docs", ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	job, _ := s.GetJob(ctx, "job4")
	if job.Status != store.StatusCancelled {
		t.Errorf("status = %s, want cancelled", job.Status)
	}
	if gen.CallCount() != 1 {
		t.Errorf("generator calls = %d, want 1 (run must stop at the next boundary)", gen.CallCount())
	}
}

func TestRunnerCancellationBetweenChapters(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	planOutput := `<documentation_plan>
<title>Foo Documentation</title>
<description>Docs</description>
<chapters>
<chapter id="overview"><title>Overview</title><description>d</description></chapter>
<chapter id="internals"><title>Internals</title><description>d</description></chapter>
</chapters>
</documentation_plan>`

	// Cancel the job externally during the first chapter; the run must stop
	// before the second chapter and finalize exactly once.
	planningPrompt := NewPromptAssembler().SystemPrompt(StagePlanning)
	gen := &generator.Mock{}
	gen.Fn = func(ctx context.Context, system, user string) (string, error) {
		if system == planningPrompt {
			return planOutput, nil
		}
		if gen.CallCount() == 4 {
			job, gerr := s.GetJob(ctx, "job9")
			if gerr != nil {
				return "", gerr
			}
			job.Status = store.StatusCancelled
			if uerr := s.UpsertJob(ctx, job); uerr != nil {
				return "", uerr
			}
		}
		return "stage output", nil
	}

	m := metrics.New()
	r := NewRunner(RunnerConfig{
		Store:     s,
		Fetcher:   &stubFetcher{rc: defaultRepoContext()},
		Generator: gen,
		Compiler:  NewCompiler(CompilerConfig{OutputDir: t.TempDir()}),
		Metrics:   m,
	})
	seedTestJob(t, s, "job9")

	if err := r.Run(ctx, "job9", "https://github.com/acme/foo", "Foo Docs", ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	job, _ := s.GetJob(ctx, "job9")
	if job.Status != store.StatusCancelled {
		t.Errorf("status = %s, want cancelled", job.Status)
	}
	// 3 fixed stages before the chapter loop plus the first chapter.
	if gen.CallCount() != 4 {
		t.Errorf("generator calls = %d, want 4", gen.CallCount())
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `docsmith_jobs_total{status="cancelled"} 1`) {
		t.Error("cancelled job should be counted exactly once")
	}
}

func TestRunnerPlanFanOut(t *testing.T) {
	ctx := context.Background()

	planOutput := `<documentation_plan>
<title>Foo Documentation</title>
<description>Docs</description>
<chapters>
<chapter id="overview"><title>Overview</title><description>d</description></chapter>
<chapter id="internals"><title>Internals</title><description>d</description></chapter>
</chapters>
</documentation_plan>`

	planningPrompt := NewPromptAssembler().SystemPrompt(StagePlanning)
	gen := &generator.Mock{
		Fn: func(ctx context.Context, system, user string) (string, error) {
			if system == planningPrompt {
				return planOutput, nil
			}
			return "stage output", nil
		},
	}
	r, s := newTestRunner(t, gen, &stubFetcher{rc: defaultRepoContext()})
	seedTestJob(t, s, "job5")

	if err := r.Run(ctx, "job5", "https://github.com/acme/foo", "Foo Docs", ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// 5 fixed stages plus one call per chapter.
	if gen.CallCount() != 7 {
		t.Errorf("generator calls = %d, want 7", gen.CallCount())
	}

	stages, _ := s.GetStages(ctx, "job5")
	names := map[string]bool{}
	for _, st := range stages {
		names[st.Name] = st.Completed
	}
	for _, want := range []string{ChapterStageName("overview"), ChapterStageName("internals")} {
		completed, ok := names[want]
		if !ok {
			t.Errorf("missing chapter stage %s", want)
		} else if !completed {
			t.Errorf("chapter stage %s not completed", want)
		}
	}

	job, _ := s.GetJob(ctx, "job5")
	if job.Status != store.StatusCompleted {
		t.Errorf("status = %s, want completed", job.Status)
	}
	if !strings.Contains(job.OutputURL, "Foo_Docs_job5") {
		t.Errorf("output_url = %q", job.OutputURL)
	}
}

func TestRunnerProgressMonotonic(t *testing.T) {
	ctx := context.Background()

	var progress []int
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	gen := &generator.Mock{}
	gen.Fn = func(ctx context.Context, system, user string) (string, error) {
		job, gerr := s.GetJob(ctx, "job6")
		if gerr != nil {
			return "", gerr
		}
		progress = append(progress, job.Progress)
		return "stage output", nil
	}

	r := NewRunner(RunnerConfig{
		Store:     s,
		Fetcher:   &stubFetcher{rc: defaultRepoContext()},
		Generator: gen,
		Compiler:  NewCompiler(CompilerConfig{OutputDir: t.TempDir()}),
	})
	seedTestJob(t, s, "job6")

	if err := r.Run(ctx, "job6", "https://github.com/acme/foo", "Foo Docs", ""); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress regressed: %v", progress)
		}
	}
	job, _ := s.GetJob(ctx, "job6")
	if job.Progress != 100 {
		t.Errorf("final progress = %d, want 100", job.Progress)
	}
}

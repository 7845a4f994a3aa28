package store

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertJob(t *testing.T) {
	ctx := context.Background()

	t.Run("insert then get", func(t *testing.T) {
		s := newTestStore(t)

		job := &Job{
			ID:      "abc123",
			RepoURL: "https://github.com/acme/foo",
			Title:   "Foo Docs",
			Status:  StatusPending,
		}
		if err := s.UpsertJob(ctx, job); err != nil {
			t.Fatalf("UpsertJob() error = %v", err)
		}

		got, err := s.GetJob(ctx, "abc123")
		if err != nil {
			t.Fatalf("GetJob() error = %v", err)
		}
		if got.Status != StatusPending {
			t.Errorf("status = %s, want pending", got.Status)
		}
		if got.CreatedAt.IsZero() {
			t.Error("created_at not set on insert")
		}
	})

	t.Run("update preserves repo_url and title", func(t *testing.T) {
		s := newTestStore(t)

		job := &Job{ID: "j1", RepoURL: "https://github.com/acme/foo", Title: "Foo Docs", Status: StatusPending}
		if err := s.UpsertJob(ctx, job); err != nil {
			t.Fatalf("UpsertJob() error = %v", err)
		}

		update := &Job{ID: "j1", RepoURL: "ignored", Title: "ignored", Status: StatusRunning, Progress: 20, CurrentStage: "code_analysis"}
		if err := s.UpsertJob(ctx, update); err != nil {
			t.Fatalf("UpsertJob() update error = %v", err)
		}

		got, err := s.GetJob(ctx, "j1")
		if err != nil {
			t.Fatalf("GetJob() error = %v", err)
		}
		if got.RepoURL != "https://github.com/acme/foo" {
			t.Errorf("repo_url = %s, want original preserved", got.RepoURL)
		}
		if got.Status != StatusRunning || got.Progress != 20 {
			t.Errorf("status/progress = %s/%d, want running/20", got.Status, got.Progress)
		}
	})

	t.Run("empty values clear columns", func(t *testing.T) {
		s := newTestStore(t)

		now := time.Now().UTC()
		job := &Job{ID: "j2", RepoURL: "r", Title: "t", Status: StatusFailed, Error: "boom", CompletedAt: &now, OutputURL: "/api/docs/file/x.md"}
		if err := s.UpsertJob(ctx, job); err != nil {
			t.Fatalf("UpsertJob() error = %v", err)
		}

		if err := s.UpsertJob(ctx, &Job{ID: "j2", RepoURL: "r", Title: "t", Status: StatusPending}); err != nil {
			t.Fatalf("UpsertJob() clear error = %v", err)
		}

		got, err := s.GetJob(ctx, "j2")
		if err != nil {
			t.Fatalf("GetJob() error = %v", err)
		}
		if got.Error != "" || got.CompletedAt != nil || got.OutputURL != "" {
			t.Errorf("error/completed_at/output_url not cleared: %q %v %q", got.Error, got.CompletedAt, got.OutputURL)
		}
	})

	t.Run("missing job returns ErrNotFound", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.GetJob(ctx, "nope"); err != ErrNotFound {
			t.Errorf("GetJob() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStages(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert is unique per name", func(t *testing.T) {
		s := newTestStore(t)
		seedJob(t, s, "j1")

		if err := s.UpsertStage(ctx, "j1", &Stage{Name: "planning", Description: "Planning documentation structure"}); err != nil {
			t.Fatalf("UpsertStage() error = %v", err)
		}
		secs := 2.5
		if err := s.UpsertStage(ctx, "j1", &Stage{Name: "planning", Description: "Completed planning", Completed: true, ExecutionTime: &secs}); err != nil {
			t.Fatalf("UpsertStage() update error = %v", err)
		}

		stages, err := s.GetStages(ctx, "j1")
		if err != nil {
			t.Fatalf("GetStages() error = %v", err)
		}
		if len(stages) != 1 {
			t.Fatalf("len(stages) = %d, want 1 (no duplicate rows)", len(stages))
		}
		if !stages[0].Completed || stages[0].ExecutionTime == nil || *stages[0].ExecutionTime != 2.5 {
			t.Errorf("stage not updated in place: %+v", stages[0])
		}
	})

	t.Run("reset clears completion and timing", func(t *testing.T) {
		s := newTestStore(t)
		seedJob(t, s, "j1")

		secs := 1.0
		for _, name := range []string{"code_analysis", "planning"} {
			if err := s.UpsertStage(ctx, "j1", &Stage{Name: name, Description: name, Completed: true, ExecutionTime: &secs, Error: "old"}); err != nil {
				t.Fatalf("UpsertStage() error = %v", err)
			}
		}

		if err := s.ResetStages(ctx, "j1"); err != nil {
			t.Fatalf("ResetStages() error = %v", err)
		}

		stages, err := s.GetStages(ctx, "j1")
		if err != nil {
			t.Fatalf("GetStages() error = %v", err)
		}
		for _, st := range stages {
			if st.Completed || st.ExecutionTime != nil || st.Error != "" {
				t.Errorf("stage %s not reset: %+v", st.Name, st)
			}
		}
	})

	t.Run("delete cascades to stages", func(t *testing.T) {
		s := newTestStore(t)
		seedJob(t, s, "j1")
		if err := s.UpsertStage(ctx, "j1", &Stage{Name: "planning", Description: "d"}); err != nil {
			t.Fatalf("UpsertStage() error = %v", err)
		}

		deleted, err := s.DeleteJob(ctx, "j1")
		if err != nil {
			t.Fatalf("DeleteJob() error = %v", err)
		}
		if !deleted {
			t.Error("DeleteJob() = false, want true")
		}

		stages, err := s.GetStages(ctx, "j1")
		if err != nil {
			t.Fatalf("GetStages() error = %v", err)
		}
		if len(stages) != 0 {
			t.Errorf("len(stages) = %d after delete, want 0", len(stages))
		}

		deleted, err = s.DeleteJob(ctx, "j1")
		if err != nil {
			t.Fatalf("DeleteJob() second call error = %v", err)
		}
		if deleted {
			t.Error("DeleteJob() on missing job = true, want false")
		}
	})
}

func TestListCompleted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		done := base.Add(time.Duration(i) * time.Minute)
		job := &Job{ID: id, RepoURL: "r/" + id, Title: id, Status: StatusCompleted, Progress: 100, CompletedAt: &done}
		if err := s.UpsertJob(ctx, job); err != nil {
			t.Fatalf("UpsertJob() error = %v", err)
		}
	}
	if err := s.UpsertJob(ctx, &Job{ID: "d", RepoURL: "r/d", Title: "d", Status: StatusRunning}); err != nil {
		t.Fatalf("UpsertJob() error = %v", err)
	}

	jobs, err := s.ListCompleted(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListCompleted() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("len(jobs) = %d, want 2", len(jobs))
	}
	if jobs[0].ID != "c" {
		t.Errorf("first job = %s, want most recently completed (c)", jobs[0].ID)
	}

	n, err := s.CountCompleted(ctx)
	if err != nil {
		t.Fatalf("CountCompleted() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountCompleted() = %d, want 3", n)
	}
}

func TestSetStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedJob(t, s, "job1")

	if err := s.SetStatus(ctx, "job1", StatusCancelled); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	job, err := s.GetJob(ctx, "job1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job.Status != StatusCancelled {
		t.Errorf("status = %s, want cancelled", job.Status)
	}
	if job.RepoURL != "r" || job.Title != "t" {
		t.Errorf("SetStatus touched other fields: %+v", job)
	}

	if err := s.SetStatus(ctx, "missing", StatusFailed); err != ErrNotFound {
		t.Errorf("SetStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func seedJob(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.UpsertJob(context.Background(), &Job{ID: id, RepoURL: "r", Title: "t", Status: StatusPending}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

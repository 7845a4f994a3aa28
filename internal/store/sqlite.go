package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists jobs and stages in SQLite.
// Use ":memory:" for an in-memory database (tests), or a file path for
// persistent storage.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and if needed initializes) a job store at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		repo_url TEXT NOT NULL,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		current_stage TEXT,
		error TEXT,
		created_at TEXT NOT NULL,
		completed_at TEXT,
		output_url TEXT
	);
	CREATE TABLE IF NOT EXISTS job_stages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		execution_time REAL,
		error TEXT,
		UNIQUE(job_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_job_stages_job_id ON job_stages(job_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertJob inserts the job, or updates its mutable fields if a row with the
// same id exists. Status, progress, current_stage, error, completed_at and
// output_url are written as given, so passing an empty value clears the
// column; repo_url, title and created_at are never overwritten on update.
func (s *Store) UpsertJob(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, repo_url, title, status, progress, current_stage, error, created_at, completed_at, output_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			current_stage = excluded.current_stage,
			error = excluded.error,
			completed_at = excluded.completed_at,
			output_url = excluded.output_url`,
		job.ID, job.RepoURL, job.Title, string(job.Status), job.Progress,
		nullString(job.CurrentStage), nullString(job.Error),
		createdAt.Format(time.RFC3339), nullTime(job.CompletedAt), nullString(job.OutputURL),
	)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob returns the job with the given id, or ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, repo_url, title, status, progress, current_stage, error, created_at, completed_at, output_url
		FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// SetStatus updates only the status of an existing job. Returns ErrNotFound
// when no such job exists.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set status for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set status for %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertStage inserts or updates the stage row for (jobID, stage.Name).
func (s *Store) UpsertStage(ctx context.Context, jobID string, stage *Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_stages (job_id, name, description, completed, execution_time, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, name) DO UPDATE SET
			description = excluded.description,
			completed = excluded.completed,
			execution_time = excluded.execution_time,
			error = excluded.error`,
		jobID, stage.Name, stage.Description, boolInt(stage.Completed),
		nullFloat(stage.ExecutionTime), nullString(stage.Error),
	)
	if err != nil {
		return fmt.Errorf("upsert stage %s/%s: %w", jobID, stage.Name, err)
	}
	return nil
}

// GetStages returns all stage rows for a job in insertion order.
func (s *Store) GetStages(ctx context.Context, jobID string) ([]Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, name, description, completed, execution_time, error
		FROM job_stages WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query stages for %s: %w", jobID, err)
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		var st Stage
		var completed int
		var execTime sql.NullFloat64
		var stageErr sql.NullString
		if err := rows.Scan(&st.JobID, &st.Name, &st.Description, &completed, &execTime, &stageErr); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		st.Completed = completed != 0
		if execTime.Valid {
			v := execTime.Float64
			st.ExecutionTime = &v
		}
		st.Error = stageErr.String
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// ResetStages clears the completion flag, execution time and error for every
// stage of a job, preparing it for a fresh run.
func (s *Store) ResetStages(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE job_stages SET completed = 0, execution_time = NULL, error = NULL WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("reset stages for %s: %w", jobID, err)
	}
	return nil
}

// DeleteJob removes a job and all of its stage rows. Returns false if no job
// with the given id existed.
func (s *Store) DeleteJob(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_stages WHERE job_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete stages for %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListCompleted returns completed jobs ordered by completion time descending.
func (s *Store) ListCompleted(ctx context.Context, limit, offset int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_url, title, status, progress, current_stage, error, created_at, completed_at, output_url
		FROM jobs WHERE status = ? ORDER BY completed_at DESC LIMIT ? OFFSET ?`,
		string(StatusCompleted), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list completed jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// CountCompleted returns the total number of completed jobs.
func (s *Store) CountCompleted(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status = ?`, string(StatusCompleted)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed jobs: %w", err)
	}
	return n, nil
}

// ListJobs returns all jobs ordered by creation time descending.
func (s *Store) ListJobs(ctx context.Context) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_url, title, status, progress, current_stage, error, created_at, completed_at, output_url
		FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var status, createdAt string
	var currentStage, jobErr, completedAt, outputURL sql.NullString

	err := row.Scan(&job.ID, &job.RepoURL, &job.Title, &status, &job.Progress,
		&currentStage, &jobErr, &createdAt, &completedAt, &outputURL)
	if err != nil {
		return nil, err
	}

	job.Status = Status(status)
	job.CurrentStage = currentStage.String
	job.Error = jobErr.String
	job.OutputURL = outputURL.String
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		job.CreatedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			job.CompletedAt = &t
		}
	}
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]Job, error) {
	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

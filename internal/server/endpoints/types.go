package endpoints

import (
	"time"

	"github.com/jackzampolin/docsmith/internal/store"
)

// StageResponse describes one pipeline stage of a job.
type StageResponse struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Completed     bool     `json:"completed"`
	ExecutionTime *float64 `json:"execution_time,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// JobResponse describes a documentation job.
type JobResponse struct {
	JobID        string          `json:"job_id"`
	RepoURL      string          `json:"repo_url"`
	Title        string          `json:"title"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"`
	CurrentStage string          `json:"current_stage,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	OutputURL    string          `json:"output_url,omitempty"`
	Stages       []StageResponse `json:"stages,omitempty"`
}

// toJobResponse renders a stored job, optionally with its stages.
func toJobResponse(job *store.Job, stages []store.Stage) JobResponse {
	resp := JobResponse{
		JobID:        job.ID,
		RepoURL:      job.RepoURL,
		Title:        job.Title,
		Status:       string(job.Status),
		Progress:     job.Progress,
		CurrentStage: job.CurrentStage,
		Error:        job.Error,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
		OutputURL:    job.OutputURL,
	}
	for _, st := range stages {
		resp.Stages = append(resp.Stages, StageResponse{
			Name:          st.Name,
			Description:   st.Description,
			Completed:     st.Completed,
			ExecutionTime: st.ExecutionTime,
			Error:         st.Error,
		})
	}
	return resp
}

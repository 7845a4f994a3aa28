package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/pipeline"
	"github.com/jackzampolin/docsmith/internal/store"
	"github.com/jackzampolin/docsmith/internal/svcctx"
)

// ResetRequest is the optional body for resetting a job.
type ResetRequest struct {
	AccessToken string `json:"access_token,omitempty"`
}

// ResetEndpoint handles POST /api/docs/reset/{job_id}. It clears a job's
// state and stages and queues it for a fresh run.
type ResetEndpoint struct{}

func (e *ResetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/docs/reset/{job_id}", e.handler
}

func (e *ResetEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Reset and re-run a job
//	@Description	Clears the job's progress, error, and stage results, then queues it for another run.
//	@Tags			docs
//	@Accept			json
//	@Produce		json
//	@Param			job_id	path		string			true	"Job ID"
//	@Param			request	body		ResetRequest	false	"Optional access token"
//	@Success		202		{object}	JobResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/docs/reset/{job_id} [post]
func (e *ResetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	var req ResetRequest
	// Body is optional; ignore decode errors on an empty body.
	_ = decodeOptionalJSON(r, &req)

	sub := svcctx.SubmitterFrom(r.Context())
	job, err := sub.Resubmit(r.Context(), jobID, req.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, pipeline.ErrQueueFull):
			writeError(w, http.StatusServiceUnavailable, "task queue is full, try again later")
		default:
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to reset job: %v", err))
		}
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job, nil))
}

func (e *ResetEndpoint) Command(getServerURL func() string) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "reset <job_id>",
		Short: "Reset a job and queue it for a fresh run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			var resp JobResponse
			if err := client.Post(cmd.Context(), "/api/docs/reset/"+args[0], ResetRequest{AccessToken: token}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Repository access token for private repos")
	return cmd
}

package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/store"
	"github.com/jackzampolin/docsmith/internal/svcctx"
)

// CancelEndpoint handles POST /api/docs/cancel/{job_id}. The pipeline
// re-reads job status at every stage boundary, so a cancelled job stops
// before its next stage starts.
type CancelEndpoint struct{}

func (e *CancelEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/docs/cancel/{job_id}", e.handler
}

func (e *CancelEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Cancel a running job
//	@Description	Marks a pending or running job as cancelled. The pipeline stops at the next stage boundary.
//	@Tags			docs
//	@Produce		json
//	@Param			job_id	path		string	true	"Job ID"
//	@Success		200		{object}	JobResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/docs/cancel/{job_id} [post]
func (e *CancelEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	st := svcctx.StoreFrom(r.Context())
	job, err := st.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	if job.Status.Terminal() {
		writeError(w, http.StatusConflict, "job has already finished")
		return
	}

	if err := st.SetStatus(r.Context(), jobID, store.StatusCancelled); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to cancel job")
		return
	}
	job.Status = store.StatusCancelled

	writeJSON(w, http.StatusOK, toJobResponse(job, nil))
}

func (e *CancelEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job_id>",
		Short: "Cancel a pending or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			var resp JobResponse
			if err := client.Post(cmd.Context(), "/api/docs/cancel/"+args[0], nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

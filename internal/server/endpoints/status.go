package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/store"
	"github.com/jackzampolin/docsmith/internal/svcctx"
)

// StatusEndpoint handles GET /api/docs/status/{job_id}.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/status/{job_id}", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get job status
//	@Description	Returns the current status, progress, and stage of a generation job.
//	@Tags			docs
//	@Produce		json
//	@Param			job_id	path		string	true	"Job ID"
//	@Success		200		{object}	JobResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/docs/status/{job_id} [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, toJobResponse(job, nil))
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job_id>",
		Short: "Get the status of a generation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			var resp JobResponse
			if err := client.Get(cmd.Context(), "/api/docs/status/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

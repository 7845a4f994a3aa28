package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/store"
	"github.com/jackzampolin/docsmith/internal/svcctx"
)

// DetailEndpoint handles GET /api/docs/detail/{job_id}. It returns the job
// together with its per-stage records.
type DetailEndpoint struct{}

func (e *DetailEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/detail/{job_id}", e.handler
}

func (e *DetailEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get job detail with stages
//	@Description	Returns the job plus one record per pipeline stage, including execution times and stage errors.
//	@Tags			docs
//	@Produce		json
//	@Param			job_id	path		string	true	"Job ID"
//	@Success		200		{object}	JobResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/docs/detail/{job_id} [get]
func (e *DetailEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	stages, err := st.GetStages(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stages")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(job, stages))
}

func (e *DetailEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <job_id>",
		Short: "Get full job detail including stage records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			var resp JobResponse
			if err := client.Get(cmd.Context(), "/api/docs/detail/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

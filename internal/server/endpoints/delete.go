package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/svcctx"
)

// DeleteResponse reports the outcome of a delete request.
type DeleteResponse struct {
	JobID   string `json:"job_id"`
	Deleted bool   `json:"deleted"`
}

// DeleteEndpoint handles DELETE /api/docs/{job_id}. Deletion removes the job
// row and all of its stage records.
type DeleteEndpoint struct{}

func (e *DeleteEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/docs/{job_id}", e.handler
}

func (e *DeleteEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a job
//	@Description	Removes the job and all of its stage records. Generated files on disk are left in place.
//	@Tags			docs
//	@Produce		json
//	@Param			job_id	path		string	true	"Job ID"
//	@Success		200		{object}	DeleteResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/docs/{job_id} [delete]
func (e *DeleteEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")

	st := svcctx.StoreFrom(r.Context())
	deleted, err := st.DeleteJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{JobID: jobID, Deleted: true})
}

func (e *DeleteEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job_id>",
		Short: "Delete a job and its stage records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			var resp DeleteResponse
			if err := client.Delete(cmd.Context(), "/api/docs/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

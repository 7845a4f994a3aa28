package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/svcctx"
)

// CompletedResponse is a page of finished jobs.
type CompletedResponse struct {
	Jobs   []JobResponse `json:"jobs"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// CompletedEndpoint handles GET /api/docs/completed.
type CompletedEndpoint struct{}

func (e *CompletedEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/completed", e.handler
}

func (e *CompletedEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List completed jobs
//	@Description	Returns finished jobs (completed or partial) newest first, with pagination.
//	@Tags			docs
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (default 20, max 100)"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	CompletedResponse
//	@Router			/api/docs/completed [get]
func (e *CompletedEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	st := svcctx.StoreFrom(r.Context())
	jobs, err := st.ListCompleted(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	total, err := st.CountCompleted(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count jobs")
		return
	}

	resp := CompletedResponse{
		Jobs:   make([]JobResponse, 0, len(jobs)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(&jobs[i], nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *CompletedEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "completed",
		Short: "List completed documentation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			path := fmt.Sprintf("/api/docs/completed?limit=%d&offset=%d", limit, offset)
			var resp CompletedResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

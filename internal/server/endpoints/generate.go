package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/pipeline"
	"github.com/jackzampolin/docsmith/internal/svcctx"
)

// GenerateRequest is the body for starting documentation generation.
type GenerateRequest struct {
	RepoURL     string `json:"repo_url"`
	Title       string `json:"title"`
	Force       bool   `json:"force,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// GenerateEndpoint handles POST /api/docs/generate.
type GenerateEndpoint struct{}

func (e *GenerateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/docs/generate", e.handler
}

func (e *GenerateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start documentation generation for a repository
//	@Description	Submits a job. Submitting the same repository and title again returns the same job id; force deletes prior state first.
//	@Tags			docs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		GenerateRequest	true	"Generation request"
//	@Success		202		{object}	JobResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/docs/generate [post]
func (e *GenerateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RepoURL == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "repo_url and title are required")
		return
	}

	sub := svcctx.SubmitterFrom(r.Context())
	job, err := sub.Submit(r.Context(), req.RepoURL, req.Title, req.Force, req.AccessToken)
	if err != nil {
		if errors.Is(err, pipeline.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "task queue is full, try again later")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to submit job: %v", err))
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job, nil))
}

func (e *GenerateEndpoint) Command(getServerURL func() string) *cobra.Command {
	var force bool
	var token string
	cmd := &cobra.Command{
		Use:   "generate <repo_url> <title>",
		Short: "Start documentation generation for a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := GenerateRequest{RepoURL: args[0], Title: args[1], Force: force, AccessToken: token}

			var resp JobResponse
			if err := client.Post(cmd.Context(), "/api/docs/generate", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Delete any existing job state before submitting")
	cmd.Flags().StringVar(&token, "token", "", "Repository access token for private repos")
	return cmd
}

package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
)

// FileEndpoint serves generated markdown from the output directory on
// GET /api/docs/file/{name}. Only .md files directly inside the output
// directory are reachable.
type FileEndpoint struct {
	OutputDir string
}

func (e *FileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/docs/file/{name}", e.handler
}

func (e *FileEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Download a generated documentation file
//	@Description	Serves a markdown file produced by a generation job.
//	@Tags			docs
//	@Produce		text/markdown
//	@Param			name	path		string	true	"File name"
//	@Success		200		{string}	string
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/docs/file/{name} [get]
func (e *FileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	// Reject anything that could escape the output directory.
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, "/\\") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	if !strings.HasSuffix(name, ".md") {
		writeError(w, http.StatusBadRequest, "only markdown files are served")
		return
	}

	path := filepath.Join(e.OutputDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *FileEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "file <name>",
		Short: "Download a generated documentation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			data, err := client.GetRaw(cmd.Context(), "/api/docs/file/"+args[0])
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write the file to this path instead of stdout")
	return cmd
}

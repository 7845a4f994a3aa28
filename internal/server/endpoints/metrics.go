package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/metrics"
)

// MetricsEndpoint exposes Prometheus metrics on GET /metrics.
type MetricsEndpoint struct {
	Metrics *metrics.Metrics
}

func (e *MetricsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/metrics", e.handler
}

func (e *MetricsEndpoint) RequiresInit() bool { return false }

func (e *MetricsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if e.Metrics == nil {
		writeError(w, http.StatusServiceUnavailable, "metrics not configured")
		return
	}
	e.Metrics.Handler().ServeHTTP(w, r)
}

func (e *MetricsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Dump server metrics in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			data, err := client.GetRaw(cmd.Context(), "/metrics")
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

package endpoints

import (
	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/internal/metrics"
)

// Config carries the settings endpoints need beyond the request-scoped
// services injected by the server.
type Config struct {
	// OutputDir is the directory generated documentation files live in.
	OutputDir string

	// Metrics is the shared metrics recorder. May be nil.
	Metrics *metrics.Metrics
}

// All returns every API endpoint.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&GenerateEndpoint{},
		&StatusEndpoint{},
		&DetailEndpoint{},
		&ResetEndpoint{},
		&CancelEndpoint{},
		&DeleteEndpoint{},
		&CompletedEndpoint{},
		&FileEndpoint{OutputDir: cfg.OutputDir},
		&MetricsEndpoint{Metrics: cfg.Metrics},
	}
}

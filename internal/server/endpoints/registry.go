package endpoints

import (
	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/ollama"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	OllamaManager   *ollama.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{OllamaManager: cfg.OllamaManager},

		// Analysis endpoints
		&StartAnalysisEndpoint{},
		&AnalysisStatusEndpoint{},
		&AnalysisResultEndpoint{},
		&CancelAnalysisEndpoint{},
		&ClearAnalysisEndpoint{},

		// Chat endpoint
		&ChatEndpoint{},

		// Report downloads
		&ReportFileEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// AnalysisCommands groups the analysis endpoints for the "analyses" CLI
// subcommand.
func AnalysisCommands() []api.Endpoint {
	return []api.Endpoint{
		&StartAnalysisEndpoint{},
		&AnalysisStatusEndpoint{},
		&AnalysisResultEndpoint{},
		&CancelAnalysisEndpoint{},
		&ClearAnalysisEndpoint{},
	}
}

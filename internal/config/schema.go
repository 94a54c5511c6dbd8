package config

import "time"

// Config holds redline configuration.
// Stored at: ~/.redline/config.yaml
type Config struct {
	Server    ServerCfg                  `mapstructure:"server" yaml:"server"`
	Providers map[string]ChatProviderCfg `mapstructure:"providers" yaml:"providers"`
	Analysis  AnalysisCfg                `mapstructure:"analysis" yaml:"analysis"`
	Alerts    AlertsCfg                  `mapstructure:"alerts" yaml:"alerts"`
	Ollama    OllamaCfg                  `mapstructure:"ollama" yaml:"ollama"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// ChatProviderCfg configures one chat backend.
type ChatProviderCfg struct {
	Type    string `mapstructure:"type" yaml:"type"`         // "openai" covers OpenAI-compatible backends
	BaseURL string `mapstructure:"base_url" yaml:"base_url"` // e.g. "http://localhost:11434/v1"
	Model   string `mapstructure:"model" yaml:"model"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// AnalysisCfg tunes the analysis pipeline.
type AnalysisCfg struct {
	Provider     string        `mapstructure:"provider" yaml:"provider"` // Default chat provider name
	Temperature  float64       `mapstructure:"temperature" yaml:"temperature"`
	ChunkWords   int           `mapstructure:"chunk_words" yaml:"chunk_words"`
	ChunkOverlap int           `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	StageTimeout time.Duration `mapstructure:"stage_timeout" yaml:"stage_timeout"`
	Retention    time.Duration `mapstructure:"retention" yaml:"retention"` // Terminal job retention
}

// AlertsCfg configures exploitative-verdict notifications.
type AlertsCfg struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Recipient string `mapstructure:"recipient" yaml:"recipient"`
	SMTPHost  string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username  string `mapstructure:"username" yaml:"username"` // Supports ${ENV_VAR} syntax
	Password  string `mapstructure:"password" yaml:"password"` // Supports ${ENV_VAR} syntax
	From      string `mapstructure:"from" yaml:"from"`
}

// OllamaCfg holds the managed Ollama container configuration.
type OllamaCfg struct {
	// Managed starts and supervises a local Ollama container.
	Managed bool `mapstructure:"managed" yaml:"managed"`
	// ContainerName is the Docker container name. Empty derives a stable
	// per-home name so separate home directories get separate containers.
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: ollama/ollama:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 11434)
	Port string `mapstructure:"port" yaml:"port"`
	// Model is pulled on startup when set.
	Model string `mapstructure:"model" yaml:"model"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "0.0.0.0",
			Port: 8690,
		},
		Providers: map[string]ChatProviderCfg{
			"ollama": {
				Type:    "openai",
				BaseURL: "http://localhost:11434/v1",
				Model:   "llama3.1",
				APIKey:  "ollama",
				Enabled: true,
			},
			"openrouter": {
				Type:    "openai",
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "anthropic/claude-sonnet-4",
				APIKey:  "${OPENROUTER_API_KEY}",
				Enabled: false,
			},
		},
		Analysis: AnalysisCfg{
			Provider:     "ollama",
			Temperature:  0.0,
			ChunkWords:   4500,
			ChunkOverlap: 450,
			StageTimeout: 10 * time.Minute,
			Retention:    time.Hour,
		},
		Alerts: AlertsCfg{
			Enabled:  false,
			SMTPPort: 587,
		},
		Ollama: OllamaCfg{
			Managed: false,
			Image:   "ollama/ollama:latest",
			Port:          "11434",
		},
	}
}

// GetProvider returns a chat provider config by name.
func (c *Config) GetProvider(name string) (ChatProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled chat providers.
func (c *Config) EnabledProviders() map[string]ChatProviderCfg {
	result := make(map[string]ChatProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

package config

// Config holds docsmith configuration.
// Loaded from ./config.yaml or ~/.docsmith/config.yaml when present.
type Config struct {
	Server    ServerCfg    `mapstructure:"server" yaml:"server"`
	Generator GeneratorCfg `mapstructure:"generator" yaml:"generator"`
	GitHub    GitHubCfg    `mapstructure:"github" yaml:"github"`
	Store     StoreCfg     `mapstructure:"store" yaml:"store"`
	Queue     QueueCfg     `mapstructure:"queue" yaml:"queue"`
	Output    OutputCfg    `mapstructure:"output" yaml:"output"`
}

// ServerCfg configures the HTTP listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// GeneratorCfg configures the text-generation backend.
type GeneratorCfg struct {
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url"`
	Model          string  `mapstructure:"model" yaml:"model"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// GitHubCfg configures repository context fetching.
type GitHubCfg struct {
	APIBase string `mapstructure:"api_base" yaml:"api_base"`
	Token   string `mapstructure:"token" yaml:"token"` // supports ${ENV_VAR} syntax
}

// StoreCfg configures the job database.
type StoreCfg struct {
	// Path to the sqlite database file. Empty means {home}/data/docsmith.db.
	Path string `mapstructure:"path" yaml:"path"`
}

// QueueCfg configures the in-memory task queue.
type QueueCfg struct {
	Size int `mapstructure:"size" yaml:"size"`
}

// OutputCfg configures where compiled documentation is written.
type OutputCfg struct {
	// Dir for generated markdown. Empty means {home}/output/documentation.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "0.0.0.0",
			Port: 8001,
		},
		Generator: GeneratorCfg{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "anthropic/claude-3.5-haiku",
			APIKey:         "${OPENROUTER_API_KEY}",
			Temperature:    0.2,
			MaxTokens:      4096,
			TimeoutSeconds: 300,
		},
		GitHub: GitHubCfg{
			APIBase: "https://api.github.com",
			Token:   "${GITHUB_TOKEN}",
		},
		Queue: QueueCfg{
			Size: 100,
		},
	}
}

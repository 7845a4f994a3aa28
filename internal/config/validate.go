package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema constrains the loaded configuration document. Validation runs
// on every load, including hot reloads, so a bad edit never replaces a good
// config.
const configSchema = `{
  "type": "object",
  "properties": {
    "server": {
      "type": "object",
      "properties": {
        "host": {"type": "string", "minLength": 1},
        "port": {"type": "integer", "minimum": 1, "maximum": 65535}
      }
    },
    "generator": {
      "type": "object",
      "properties": {
        "base_url": {"type": "string", "minLength": 1},
        "model": {"type": "string", "minLength": 1},
        "temperature": {"type": "number", "minimum": 0, "maximum": 2},
        "max_tokens": {"type": "integer", "minimum": 1},
        "timeout_seconds": {"type": "integer", "minimum": 1}
      }
    },
    "queue": {
      "type": "object",
      "properties": {
        "size": {"type": "integer", "minimum": 1}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("config.json", configSchema)

// Validate checks a Config against the schema.
func Validate(cfg *Config) error {
	raw, err := json.Marshal(toDocument(cfg))
	if err != nil {
		return fmt.Errorf("failed to serialize config for validation: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode config for validation: %w", err)
	}

	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// toDocument renders the config as the plain document the schema speaks
// about, using the yaml key names.
func toDocument(cfg *Config) map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		},
		"generator": map[string]any{
			"base_url":        cfg.Generator.BaseURL,
			"model":           cfg.Generator.Model,
			"temperature":     cfg.Generator.Temperature,
			"max_tokens":      cfg.Generator.MaxTokens,
			"timeout_seconds": cfg.Generator.TimeoutSeconds,
		},
		"queue": map[string]any{
			"size": cfg.Queue.Size,
		},
	}
}

// Summary renders a one-line description of the active config for logs,
// with secrets elided.
func (c *Config) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "server=%s:%d model=%s store=%s", c.Server.Host, c.Server.Port, c.Generator.Model, c.Store.Path)
	if c.ResolvedAPIKey() != "" {
		b.WriteString(" api_key=set")
	}
	return b.String()
}

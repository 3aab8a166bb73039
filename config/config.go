// Package config loads host configuration from YAML files. A config file
// declares which MCP servers to launch and which model backend to use.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig declares a single MCP server subprocess.
type ServerConfig struct {
	Name    string            `yaml:"name"`
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

// ModelConfig selects and tunes the model backend.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // "anthropic" or "openai"
	Model       string  `yaml:"model"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Config is the root of the YAML config file.
type Config struct {
	Servers      []ServerConfig `yaml:"servers"`
	Model        ModelConfig    `yaml:"model"`
	SystemPrompt string         `yaml:"system_prompt"`
	LogLevel     string         `yaml:"log_level"`
}

// Default returns a config with sensible defaults applied. Callers usually
// go through Load, which layers a file on top of these.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "anthropic",
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file, applies defaults for omitted fields, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Model.Provider == "" {
		c.Model.Provider = "anthropic"
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = 1024
	}
	if c.Model.Temperature == 0 {
		c.Model.Temperature = 0.7
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks structural requirements the loader cannot default away.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Servers))

	for i, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("servers[%d]: name is required", i)
		}
		if s.Command == "" {
			return fmt.Errorf("server %s: command is required", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("server %s: duplicate name", s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	switch c.Model.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("model: unknown provider %q", c.Model.Provider)
	}

	if c.Model.MaxTokens < 1 {
		return fmt.Errorf("model: max_tokens must be positive, got %d", c.Model.MaxTokens)
	}

	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcphost.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
servers:
  - name: osinfo
    command: python
    args: [servers/osinfo.py]
    env:
      DEBUG: "1"
  - name: disk
    command: ./diskusage-server
model:
  provider: anthropic
  model: claude-3-7-sonnet-20250219
  max_tokens: 2048
  temperature: 0.2
system_prompt: You are a helpful assistant.
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "osinfo", cfg.Servers[0].Name)
	assert.Equal(t, []string{"servers/osinfo.py"}, cfg.Servers[0].Args)
	assert.Equal(t, map[string]string{"DEBUG": "1"}, cfg.Servers[0].Env)
	assert.Equal(t, "disk", cfg.Servers[1].Name)

	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "claude-3-7-sonnet-20250219", cfg.Model.Model)
	assert.Equal(t, int64(2048), cfg.Model.MaxTokens)
	assert.Equal(t, 0.2, cfg.Model.Temperature)
	assert.Equal(t, "You are a helpful assistant.", cfg.SystemPrompt)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
servers:
  - name: osinfo
    command: python
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, int64(1024), cfg.Model.MaxTokens)
	assert.Equal(t, 0.7, cfg.Model.Temperature)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "servers: [")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing server name",
			mutate:  func(c *Config) { c.Servers[0].Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "missing command",
			mutate:  func(c *Config) { c.Servers[0].Command = "" },
			wantErr: "command is required",
		},
		{
			name: "duplicate server name",
			mutate: func(c *Config) {
				c.Servers = append(c.Servers, ServerConfig{Name: "osinfo", Command: "python"})
			},
			wantErr: "duplicate name",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Model.Provider = "llama" },
			wantErr: `unknown provider "llama"`,
		},
		{
			name:    "non-positive max_tokens",
			mutate:  func(c *Config) { c.Model.MaxTokens = -1 },
			wantErr: "max_tokens must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Servers = []ServerConfig{{Name: "osinfo", Command: "python"}}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

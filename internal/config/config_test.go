package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every bound variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "glm-4-flash", cfg.Model)
	assert.Equal(t, 3, cfg.Game.Players)
	assert.Equal(t, 1, cfg.Game.Impostors)
	assert.True(t, cfg.Game.Streaming)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Zero(t, cfg.Client.RequestsPerSecond)
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "undercover.yaml", `
model: glm-4-plus
game:
  players: 6
  impostors: 2
  streaming: false
client:
  timeout: 45s
  requests_per_second: 2.5
`)
	t.Setenv("UNDERCOVER_PLAYERS", "8")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "glm-4-plus", cfg.Model)
	assert.Equal(t, 8, cfg.Game.Players, "environment overrides the file")
	assert.Equal(t, 2, cfg.Game.Impostors)
	assert.False(t, cfg.Game.Streaming)
	assert.Equal(t, 45*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 2.5, cfg.Client.RequestsPerSecond)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "OPENAI_API_KEY=sk-from-dotenv\nOPENAI_API_BASE=https://api.deepseek.com\nUNDERCOVER_IMPOSTORS=2\n")

	cfg, err := Load("", envFile)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-dotenv", cfg.OpenAI.APIKey)
	assert.Equal(t, "https://api.deepseek.com", cfg.OpenAI.BaseURL)
	assert.Equal(t, 2, cfg.Game.Impostors)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		OpenAI: OpenAIConfig{APIKey: "sk"},
		Model:  "glm-4-flash",
		Game:   GameConfig{Players: 4, Impostors: 1},
		Client: ClientConfig{Timeout: time.Second},
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(*Config){
		"missing key":        func(c *Config) { c.OpenAI.APIKey = "" },
		"missing model":      func(c *Config) { c.Model = "" },
		"two players":        func(c *Config) { c.Game.Players = 2 },
		"no impostor":        func(c *Config) { c.Game.Impostors = 0 },
		"too many impostors": func(c *Config) { c.Game.Impostors = 4 },
		"negative timeout":   func(c *Config) { c.Client.Timeout = -time.Second },
		"negative rps":       func(c *Config) { c.Client.RequestsPerSecond = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	err := (&Config{Game: GameConfig{Players: 2}}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is not set")
	assert.Contains(t, err.Error(), "players must be at least 3")
	assert.Contains(t, err.Error(), "impostors must be between 1 and 1")
}

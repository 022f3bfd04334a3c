// Package config loads the settings of the undercover CLI and examples from
// a .env file, an optional YAML file and the environment, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigName is the YAML file looked up in the working directory
// when no explicit path is given.
const DefaultConfigName = "undercover"

// Config is the merged settings of one CLI or example run.
type Config struct {
	OpenAI      OpenAIConfig `mapstructure:"openai"`
	Model       string       `mapstructure:"model"`
	Game        GameConfig   `mapstructure:"game"`
	Client      ClientConfig `mapstructure:"client"`
	MetricsFile string       `mapstructure:"metrics_file"`
}

// OpenAIConfig locates the OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// GameConfig sizes the table and picks the word catalog.
type GameConfig struct {
	Players   int    `mapstructure:"players"`
	Impostors int    `mapstructure:"impostors"`
	Words     string `mapstructure:"words"`
	Streaming bool   `mapstructure:"streaming"`
}

// ClientConfig bounds each model call and the overall request rate.
type ClientConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

var envBindings = map[string]string{
	"openai.api_key":             "OPENAI_API_KEY",
	"openai.base_url":            "OPENAI_API_BASE",
	"model":                      "UNDERCOVER_MODEL",
	"game.players":               "UNDERCOVER_PLAYERS",
	"game.impostors":             "UNDERCOVER_IMPOSTORS",
	"game.words":                 "UNDERCOVER_WORDS",
	"game.streaming":             "UNDERCOVER_STREAMING",
	"client.timeout":             "UNDERCOVER_TIMEOUT",
	"client.requests_per_second": "UNDERCOVER_RPS",
	"client.burst":               "UNDERCOVER_BURST",
	"metrics_file":               "UNDERCOVER_METRICS_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "glm-4-flash")
	v.SetDefault("game.players", 3)
	v.SetDefault("game.impostors", 1)
	v.SetDefault("game.streaming", true)
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("client.requests_per_second", 0)
	v.SetDefault("client.burst", 1)
}

// Load reads the configuration. envFiles are loaded into the process
// environment first (".env" when none is given; missing files are
// skipped). configFile names a YAML file; when empty, undercover.yaml in
// the working directory is used if present.
func Load(configFile string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &config, nil
}

// Validate reports every setting that would make a game fail to start.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is not set"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model is empty"))
	}
	if c.Game.Players < 3 {
		errs = append(errs, fmt.Errorf("players must be at least 3, got %d", c.Game.Players))
	}
	if c.Game.Impostors < 1 || c.Game.Impostors > c.Game.Players-1 {
		errs = append(errs, fmt.Errorf("impostors must be between 1 and %d, got %d", c.Game.Players-1, c.Game.Impostors))
	}
	if c.Client.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Client.Timeout))
	}
	if c.Client.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests per second must not be negative, got %g", c.Client.RequestsPerSecond))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

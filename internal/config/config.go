// Package config loads the layered runtime configuration: built-in defaults,
// then an optional YAML file, then AGORA_* environment variables, each layer
// overriding the one below it.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ModelConfig configures the upstream OpenAI-compatible model service.
type ModelConfig struct {
	BaseURL     string            `mapstructure:"base_url"`
	APIKey      string            `mapstructure:"api_key"`
	Model       string            `mapstructure:"model"`
	Temperature float64           `mapstructure:"temperature"`
	TimeoutSecs int               `mapstructure:"timeout_secs"`
	MaxRetries  int               `mapstructure:"max_retries"`
	Headers     map[string]string `mapstructure:"headers"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// SimulationConfig tunes the orchestration engine.
type SimulationConfig struct {
	ReactionConcurrency int `mapstructure:"reaction_concurrency"`
	MaxReactionFailures int `mapstructure:"max_reaction_failures"`
	ResultCacheSize     int `mapstructure:"result_cache_size"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// Config is the full runtime configuration.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	Server     ServerConfig     `mapstructure:"server"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Store      StoreConfig      `mapstructure:"store"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.base_url", "https://api.openai.com/v1")
	// Every key needs a default so AutomaticEnv can populate it via Unmarshal.
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.model", "gpt-4o-mini")
	v.SetDefault("model.temperature", 1.0)
	v.SetDefault("model.timeout_secs", 120)
	v.SetDefault("model.max_retries", 3)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("simulation.reaction_concurrency", 32)
	v.SetDefault("simulation.max_reaction_failures", 0)
	v.SetDefault("simulation.result_cache_size", 128)

	v.SetDefault("store.path", "agora.db")
}

// Load reads the configuration. path names an explicit config file; when
// empty, agora-config.yaml is searched in the working directory and $HOME,
// and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("agora-config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("AGORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url must not be empty")
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model.model must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Simulation.ResultCacheSize <= 0 {
		return fmt.Errorf("simulation.result_cache_size must be positive")
	}
	return nil
}

// Package config loads csgenius configuration from an optional YAML
// file plus CSGENIUS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all settings for the service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	GenAI     GenAIConfig     `mapstructure:"genai"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Port  int    `mapstructure:"port"`
	Token string `mapstructure:"token"`
}

// GenAIConfig points at the external completion service.
type GenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// KnowledgeConfig controls the knowledge store lifecycle.
type KnowledgeConfig struct {
	// Seed loads the built-in starter entries into an empty store.
	Seed bool `mapstructure:"seed"`
	// Backup, when set, is a backup JSON file loaded at startup.
	Backup string `mapstructure:"backup"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration. path may be empty, in which case the default
// search paths are consulted and a missing config file is not an error,
// since every value has a default or an env override.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("$HOME/.config/csgenius")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CSGENIUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 4620)
	v.SetDefault("server.token", "")
	v.SetDefault("genai.base_url", "")
	v.SetDefault("genai.model", "gemini-2.5-flash")
	v.SetDefault("genai.timeout", time.Minute)
	v.SetDefault("knowledge.seed", false)
	v.SetDefault("knowledge.backup", "")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" {
			// An explicit config file must exist and parse.
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a running server cannot do without.
func (c Config) Validate() error {
	if c.GenAI.APIKey == "" {
		return errors.New("genai.api_key (or CSGENIUS_GENAI_API_KEY) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and optionally a
// config file. Environment variables (prefix MURMUR_, nested keys
// joined with underscores, e.g. MURMUR_DATABASE_URL) take precedence
// over values from the config file.
// Returns a populated Config struct or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; environment variables carry everything.
	}

	v.SetEnvPrefix("MURMUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers defaults for settings that have a sensible
// out-of-the-box value. Secrets and connection URLs have no defaults
// and must be provided.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("broker.prefetch_count", 1)
	v.SetDefault("broker.reconnect_delay_seconds", 5)

	v.SetDefault("stt.model", "nova-2")
	v.SetDefault("stt.language", "ru")
	v.SetDefault("stt.timeout_seconds", 60)

	v.SetDefault("llm.model_candidates", []string{
		"gemini-flash-latest",
		"gemini-2.5-flash",
		"gemini-pro-latest",
		"gemini-2.5-pro",
		"gemini-2.0-flash",
	})
	v.SetDefault("llm.timeout_seconds", 30)

	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.base_delay_seconds", 4)
	v.SetDefault("pipeline.max_delay_seconds", 10)
	v.SetDefault("pipeline.fallback_preview_len", 200)

	// Bind the env-only keys explicitly so AutomaticEnv sees them even
	// without a config file entry.
	for _, key := range []string{
		"database.url",
		"broker.url",
		"stt.deepgram_api_key",
		"llm.gemini_api_key",
	} {
		// BindEnv only errors on empty input.
		_ = v.BindEnv(key)
	}
}

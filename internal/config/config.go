package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Broker   BrokerConfig   `mapstructure:"broker" validate:"required"`
	STT      STTConfig      `mapstructure:"stt" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
}

// ServerConfig contains process-level settings shared by the worker
// binaries.
type ServerConfig struct {
	// HealthPort is the port the worker's health endpoint listens on.
	HealthPort int    `mapstructure:"health_port" validate:"required,gt=0,lt=65536"`
	LogLevel   string `mapstructure:"log_level"   validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// BrokerConfig contains the task queue broker settings.
type BrokerConfig struct {
	URL string `mapstructure:"url" validate:"required"`

	// PrefetchCount bounds in-flight deliveries per consumer. The
	// pipeline relies on 1 so each worker holds at most one note.
	PrefetchCount int `mapstructure:"prefetch_count" validate:"required,gte=1"`

	// ReconnectDelaySeconds is the wait between reconnect attempts
	// after the broker connection drops.
	ReconnectDelaySeconds int `mapstructure:"reconnect_delay_seconds" validate:"gte=1"`
}

// STTConfig contains speech-to-text integration settings.
type STTConfig struct {
	DeepgramAPIKey string `mapstructure:"deepgram_api_key" validate:"required"`
	Model          string `mapstructure:"model"            validate:"required"`
	Language       string `mapstructure:"language"         validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"  validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`

	// ModelCandidates are tried in priority order at startup; the
	// first usable one becomes the summarization model.
	ModelCandidates []string `mapstructure:"model_candidates" validate:"required,min=1"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds"  validate:"required,gt=0"`
}

// PipelineConfig tunes the shared retry policy for external AI calls.
type PipelineConfig struct {
	// MaxAttempts is the total number of tries per external call
	// (1 initial + N-1 retries).
	MaxAttempts        int `mapstructure:"max_attempts"         validate:"required,gte=1"`
	BaseDelaySeconds   int `mapstructure:"base_delay_seconds"   validate:"required,gte=1"`
	MaxDelaySeconds    int `mapstructure:"max_delay_seconds"    validate:"required,gte=1"`
	FallbackPreviewLen int `mapstructure:"fallback_preview_len" validate:"required,gte=1"`
}

package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	QC       QCConfig       `mapstructure:"qc"       validate:"required"`
	Email    EmailConfig    `mapstructure:"email"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// ContentRoot is where the file publisher writes published articles.
	ContentRoot string `mapstructure:"content_root" validate:"required"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name"     validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"    validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// QueueConfig contains job queue worker settings.
type QueueConfig struct {
	WorkerCount     int `mapstructure:"worker_count"      validate:"required,gte=1,lte=64"`
	PollIntervalSec int `mapstructure:"poll_interval_sec" validate:"required,gte=1"`
	LockTimeoutSec  int `mapstructure:"lock_timeout_sec"  validate:"required,gte=30"`
	MaxRetries      int `mapstructure:"max_retries"       validate:"gte=0,lte=10"`
}

// QCConfig contains quality-control loop settings.
type QCConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gte=1,lte=10"`
}

// EmailConfig contains notification transport settings. Empty tokens leave
// the pipeline running with notifications logged instead of sent.
type EmailConfig struct {
	PostmarkServerToken  string `mapstructure:"postmark_server_token"`
	PostmarkAccountToken string `mapstructure:"postmark_account_token"`
	SenderEmail          string `mapstructure:"sender_email" validate:"omitempty,email"`
}

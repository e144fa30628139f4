package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Gateway  GatewayConfig  `mapstructure:"gateway"  validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"    validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
}

// ServerConfig contains all HTTP API server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// GatewayConfig contains the live-update gateway settings.
type GatewayConfig struct {
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// RedisConfig contains connection settings for the intake queue and the
// job-update pub/sub channel.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all generation provider settings.
type LLMConfig struct {
	GeminiAPIKey          string `mapstructure:"gemini_api_key"          validate:"required"`
	ModelName             string `mapstructure:"model_name"              validate:"required"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
}

// QueueConfig contains the job processing settings: how long a job waits
// before it becomes eligible, how often the poller scans, how large a poll
// batch may be, and the retry ceiling.
type QueueConfig struct {
	ExecutionDelaySeconds int `mapstructure:"execution_delay_seconds" validate:"gte=0"`
	MaxRetries            int `mapstructure:"max_retries"             validate:"gte=0"`
	PollIntervalMs        int `mapstructure:"poll_interval_ms"        validate:"required,gt=0"`
	BatchSize             int `mapstructure:"batch_size"              validate:"required,gt=0"`
	WorkerCount           int `mapstructure:"worker_count"            validate:"required,gt=0"`
}

package domain

import (
	"time"
)

// Config is the main application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig is the HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is "postgres" (pgx pool) or "sqlite" (embedded file store).
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`

	// AuditEnabled turns on the analysis audit trail. The audit store
	// follows the main driver: a SQLite file next to the main store, or
	// the analysis_audit table in Postgres.
	AuditEnabled bool   `mapstructure:"audit_enabled"`
	AuditPath    string `mapstructure:"audit_path"`
}

// DatabaseConfig is the Postgres connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MinOpenConns    int           `mapstructure:"min_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// LLMConfig configures the delegated language-model collaborator.
type LLMConfig struct {
	// Provider is "openai" or "googleai".
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum provider calls per second.
	RateLimit int            `mapstructure:"rate_limit"`
	OpenAI    OpenAIConfig   `mapstructure:"openai"`
	GoogleAI  GoogleAIConfig `mapstructure:"googleai"`
	Breaker   BreakerConfig  `mapstructure:"breaker"`
}

// OpenAIConfig configures the OpenAI-compatible chat completion client.
type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// GoogleAIConfig configures the Google AI (Gemini) client.
type GoogleAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// BreakerConfig configures the circuit breaker around provider calls.
type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// CacheConfig configures the Redis analysis-response cache and the
// in-process LRU in front of it.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	LRUSize     int           `mapstructure:"lru_size"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

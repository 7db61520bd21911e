package config

import (
	"time"

	"modelql/internal/entityschema"
)

// Config holds the application configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Model         ModelConfig         `mapstructure:"model"`
}

// ModelConfig describes where the entity model comes from. Entities may be
// declared inline under "model.entities" or in a separate YAML file named by
// "model.file"; inline entities win when both are present.
type ModelConfig struct {
	File     string                      `mapstructure:"file"`
	Entities []entityschema.EntityConfig `mapstructure:"entities"`
}

// PoolConfig holds connection pool parameters.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// DatabaseConfig holds database connection parameters.
type DatabaseConfig struct {
	// ConnectionString is a complete go-sql-driver/mysql Data Source Name.
	// Format: user:password@tcp(host:port)/database?params
	// When set, overrides Host/Port/User/Password/Database fields.
	ConnectionString string `mapstructure:"dsn"`
	// ConnectionStringFile is a path to a file containing the DSN (for
	// secrets management). Supports "@-" to read from stdin.
	ConnectionStringFile string `mapstructure:"dsn_file"`

	// Discrete connection fields (used when DSN is not set)
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password_file"`
	Database     string `mapstructure:"database"`

	// Connection pool settings
	Pool PoolConfig `mapstructure:"pool"`

	// ConnectionTimeout is the max time to wait for DB on startup.
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
	// ConnectionRetryInterval is the initial interval between connection retries.
	ConnectionRetryInterval time.Duration `mapstructure:"connection_retry_interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int             `mapstructure:"port"`
	GraphiQLEnabled bool            `mapstructure:"graphiql_enabled"`
	DefaultPerPage  int             `mapstructure:"default_per_page"`
	MaxPerPage      int             `mapstructure:"max_per_page"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration   `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig      `mapstructure:"cors"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// CORSConfig configures Cross-Origin Resource Sharing policies.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RateLimitConfig configures a global token bucket limiter for all
// HTTP endpoints.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`           // debug, info, warn, error
	Format         string `mapstructure:"format"`          // json, text
	ExportsEnabled bool   `mapstructure:"exports_enabled"` // Enable OTLP log export
}

// OTLPConfig holds OTLP trace exporter configuration. Export is over
// http/protobuf.
type OTLPConfig struct {
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
	Timeout  time.Duration     `mapstructure:"timeout"`
}

// ObservabilityConfig holds observability parameters.
type ObservabilityConfig struct {
	ServiceName      string        `mapstructure:"service_name"`
	ServiceVersion   string        `mapstructure:"service_version"`
	Environment      string        `mapstructure:"environment"`
	MetricsEnabled   bool          `mapstructure:"metrics_enabled"`
	TracingEnabled   bool          `mapstructure:"tracing_enabled"`
	TraceSampleRatio float64       `mapstructure:"trace_sample_ratio"`
	Logging          LoggingConfig `mapstructure:"logging"`
	OTLP             OTLPConfig    `mapstructure:"otlp"`
}

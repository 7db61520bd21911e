package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"modelql/internal/entityschema"
)

var defineFlagsOnce sync.Once

// Load loads configuration from multiple sources with the following precedence:
// 1. Explicit overrides (v.Set) – used for file-backed secrets
// 2. Command line flags
// 3. Environment variables
// 4. Config file
// 5. Default values
func Load() (*Config, error) {
	v := viper.New()

	// Defaults (lowest priority)
	setDefaults(v)

	// --- Flags ---
	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	// --- Config file ---
	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("modelql")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modelql/")
		v.AddConfigPath("$HOME/.modelql")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// --- Environment variables ---
	// Canonical keys: dot + snake_case
	// Env vars: MODELQL_DATABASE_HOST
	v.SetEnvPrefix("MODELQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Flags binding (highest normal priority) ---
	bindChangedFlagsToViper(v)

	// --- DSN from file (explicit override) ---
	if v.GetString("database.dsn") == "" && v.GetString("database.dsn_file") != "" {
		dsn, err := readSecretFile(v.GetString("database.dsn_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read database DSN file: %w", err)
		}
		v.Set("database.dsn", dsn)
	}

	// --- Password from file (explicit override) ---
	if v.GetString("database.password") == "" && v.GetString("database.password_file") != "" {
		pwd, err := readSecretFile(v.GetString("database.password_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read database password file: %w", err)
		}
		v.Set("database.password", pwd)
	}

	// --- Unmarshal (strict) ---
	cfg, err := unmarshalConfig(v)
	if err != nil {
		return nil, err
	}

	// --- Entity model from file ---
	if len(cfg.Model.Entities) == 0 && cfg.Model.File != "" {
		entities, err := LoadModelFile(cfg.Model.File)
		if err != nil {
			return nil, err
		}
		cfg.Model.Entities = entities
	}

	return cfg, nil
}

func unmarshalConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.UnmarshalExact(
		&cfg,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToStringSliceHookFunc(","),
				stringToScalarKindHookFunc(),
			),
		),
	); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadModelFile reads a YAML entity model definition. The file holds a single
// "entities" list in the same shape as inline "model.entities" config.
func LoadModelFile(path string) ([]entityschema.EntityConfig, error) {
	mv := viper.New()
	mv.SetConfigFile(path)
	mv.SetConfigType("yaml")
	if err := mv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read model file %q: %w", path, err)
	}

	var model struct {
		Entities []entityschema.EntityConfig `mapstructure:"entities"`
	}
	if err := mv.UnmarshalExact(
		&model,
		viper.DecodeHook(stringToScalarKindHookFunc()),
	); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model file %q: %w", path, err)
	}
	if len(model.Entities) == 0 {
		return nil, fmt.Errorf("model file %q defines no entities", path)
	}
	return model.Entities, nil
}

// bindChangedFlagsToViper copies only explicitly-set flags into Viper,
// preserving precedence: flags > env > file > defaults.
func bindChangedFlagsToViper(v *viper.Viper) {
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "version" {
			return
		}

		switch f.Value.Type() {
		case "string":
			val, _ := pflag.CommandLine.GetString(f.Name)
			v.Set(f.Name, val)
		case "int":
			val, _ := pflag.CommandLine.GetInt(f.Name)
			v.Set(f.Name, val)
		case "bool":
			val, _ := pflag.CommandLine.GetBool(f.Name)
			v.Set(f.Name, val)
		case "float64":
			val, _ := pflag.CommandLine.GetFloat64(f.Name)
			v.Set(f.Name, val)
		case "duration":
			val, _ := pflag.CommandLine.GetDuration(f.Name)
			v.Set(f.Name, val)
		case "stringSlice":
			val, _ := pflag.CommandLine.GetStringSlice(f.Name)
			v.Set(f.Name, val)
		default:
			v.Set(f.Name, f.Value.String())
		}
	})
}

// defineFlags defines all command line flags using canonical snake_case keys.
func defineFlags() {
	defineFlagsOnce.Do(func() {
		// Database connection flags
		pflag.String("database.dsn", "", "Complete MySQL DSN (user:pass@tcp(host:port)/db)")
		pflag.String("database.dsn_file", "", "Path to file containing database DSN (use @- for stdin)")
		pflag.String("database.host", "", "Database host")
		pflag.Int("database.port", 0, "Database port")
		pflag.String("database.user", "", "Database user")
		pflag.String("database.password", "", "Database password")
		pflag.String("database.password_file", "", "Path to file containing database password (use @- for stdin)")
		pflag.String("database.database", "", "Database name")

		// Database pool flags
		pflag.Int("database.pool.max_open", 0, "Maximum open database connections")
		pflag.Int("database.pool.max_idle", 0, "Maximum idle connections in pool")
		pflag.Duration("database.pool.max_lifetime", 0, "Connection max lifetime (e.g. 5m, 30s)")
		pflag.Duration("database.connection_timeout", 0, "Max time to wait for database on startup (0 = fail immediately)")
		pflag.Duration("database.connection_retry_interval", 0, "Initial interval between connection retries")

		// Server flags
		pflag.Int("server.port", 0, "HTTP server port")
		pflag.Bool("server.graphiql_enabled", false, "Enable GraphiQL UI for /graphql (dev only)")
		pflag.Int("server.default_per_page", 0, "Default page size for list queries")
		pflag.Int("server.max_per_page", 0, "Maximum page size for list queries")
		pflag.Duration("server.read_timeout", 0, "HTTP server read timeout")
		pflag.Duration("server.write_timeout", 0, "HTTP server write timeout")
		pflag.Duration("server.idle_timeout", 0, "HTTP server idle timeout")
		pflag.Duration("server.shutdown_timeout", 0, "HTTP server graceful shutdown timeout")

		// Server CORS and rate limit flags
		pflag.Bool("server.cors.enabled", false, "Enable CORS (Cross-Origin Resource Sharing)")
		pflag.StringSlice("server.cors.allowed_origins", nil, "Allowed CORS origins (comma-separated or repeated)")
		pflag.StringSlice("server.cors.allowed_methods", nil, "Allowed CORS methods (comma-separated or repeated)")
		pflag.StringSlice("server.cors.allowed_headers", nil, "Allowed CORS headers (comma-separated or repeated)")
		pflag.StringSlice("server.cors.expose_headers", nil, "CORS headers to expose to browser (comma-separated or repeated)")
		pflag.Bool("server.cors.allow_credentials", false, "Allow credentials in CORS requests")
		pflag.Int("server.cors.max_age", 0, "CORS preflight cache duration (seconds)")
		pflag.Bool("server.rate_limit.enabled", false, "Enable global rate limiting for all HTTP endpoints")
		pflag.Float64("server.rate_limit.rps", 0, "Global rate limit requests per second")
		pflag.Int("server.rate_limit.burst", 0, "Global rate limit burst size")

		// Model flags
		pflag.String("model.file", "", "Path to entity model definition YAML file")

		// Observability flags
		pflag.String("observability.service_name", "", "Service name for observability")
		pflag.String("observability.service_version", "", "Service version for observability")
		pflag.String("observability.environment", "", "Environment name (dev, staging, prod)")
		pflag.Bool("observability.metrics_enabled", false, "Enable metrics collection")
		pflag.Bool("observability.tracing_enabled", false, "Enable distributed tracing")
		pflag.Float64("observability.trace_sample_ratio", 0, "Trace sampling ratio from 0.0 to 1.0")

		// Logging flags (under observability)
		pflag.String("observability.logging.level", "", "Log level (debug, info, warn, error)")
		pflag.String("observability.logging.format", "", "Log format (json, text)")
		pflag.Bool("observability.logging.exports_enabled", false, "Enable OTLP log export")

		// OTLP flags
		pflag.String("observability.otlp.endpoint", "", "OTLP endpoint for traces (e.g., localhost:4318)")
		pflag.Bool("observability.otlp.insecure", false, "Use insecure connection (no TLS)")
		pflag.Duration("observability.otlp.timeout", 0, "OTLP export timeout")

		// Config file flag
		pflag.StringP("config", "c", "", "Config file path")
	})
}

// setDefaults sets default values (lowest precedence).
func setDefaults(v *viper.Viper) {
	// Database connection defaults
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn_file", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "modelql")
	v.SetDefault("database.password", "")
	v.SetDefault("database.password_file", "")
	v.SetDefault("database.database", "modelql")

	// Database pool defaults
	v.SetDefault("database.pool.max_open", 25)
	v.SetDefault("database.pool.max_idle", 5)
	v.SetDefault("database.pool.max_lifetime", 5*time.Minute)
	v.SetDefault("database.connection_timeout", 60*time.Second)
	v.SetDefault("database.connection_retry_interval", 2*time.Second)

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.graphiql_enabled", false)
	v.SetDefault("server.default_per_page", 10)
	v.SetDefault("server.max_per_page", 100)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Server CORS defaults
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("server.cors.expose_headers", []string{})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.cors.max_age", 86400)

	// Server rate limit defaults
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.rps", 0.0)
	v.SetDefault("server.rate_limit.burst", 0)

	// Model defaults
	v.SetDefault("model.file", "")
	v.SetDefault("model.entities", []interface{}{})

	// Observability defaults
	v.SetDefault("observability.service_name", "modelql")
	v.SetDefault("observability.service_version", "")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)

	// Logging defaults (under observability)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.exports_enabled", false)

	// OTLP defaults
	v.SetDefault("observability.otlp.endpoint", "localhost:4318")
	v.SetDefault("observability.otlp.insecure", false)
	v.SetDefault("observability.otlp.timeout", 10*time.Second)
}

func readSecretFile(path string) (string, error) {
	var data []byte
	var err error

	if path == "@-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// stringToStringSliceHookFunc splits separated string values (usually from
// environment variables) into string slices.
func stringToStringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}

		parts := strings.Split(raw, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}

// stringToScalarKindHookFunc decodes the textual column kinds used in model
// definitions ("string", "int", "datetime", ...) into entityschema.ScalarKind.
func stringToScalarKindHookFunc() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(entityschema.ScalarKind(0)) {
			return data, nil
		}
		return entityschema.ParseScalarKind(data.(string))
	}
}

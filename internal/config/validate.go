package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors []ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.Database.validate(result)
	c.Server.validate(result)
	c.Observability.validate(result)
	c.Model.validate(result)

	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	if d.ConnectionString == "" {
		if d.Host == "" {
			result.addError("database.host", "host cannot be empty",
				"set database.host or provide a full DSN via database.dsn")
		}
		if d.Port < 1 || d.Port > 65535 {
			result.addError("database.port",
				fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port), "")
		}
		if d.User == "" {
			result.addError("database.user", "user cannot be empty", "")
		}
		if d.Database == "" {
			result.addError("database.database", "database name cannot be empty",
				"set database.database or include /<database> in database.dsn")
		}
	}

	if d.Pool.MaxOpen < 1 {
		result.addError("database.pool.max_open", "must be at least 1", "")
	}
	if d.Pool.MaxIdle < 0 {
		result.addError("database.pool.max_idle", "cannot be negative", "")
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen {
		result.addError("database.pool.max_idle",
			fmt.Sprintf("max_idle (%d) cannot exceed max_open (%d)", d.Pool.MaxIdle, d.Pool.MaxOpen), "")
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.addError("server.port",
			fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port), "")
	}
	if s.DefaultPerPage < 1 {
		result.addError("server.default_per_page", "must be at least 1", "")
	}
	if s.MaxPerPage < 1 {
		result.addError("server.max_per_page", "must be at least 1", "")
	}
	if s.DefaultPerPage > s.MaxPerPage {
		result.addError("server.default_per_page",
			fmt.Sprintf("default_per_page (%d) cannot exceed max_per_page (%d)",
				s.DefaultPerPage, s.MaxPerPage), "")
	}

	if s.CORS.Enabled && len(s.CORS.AllowedOrigins) == 0 {
		result.addError("server.cors.allowed_origins",
			"allowed_origins cannot be empty when CORS is enabled",
			`list allowed origins or use "*"`)
	}
	if s.CORS.MaxAge < 0 {
		result.addError("server.cors.max_age", "cannot be negative", "")
	}

	if s.RateLimit.Enabled {
		if s.RateLimit.RPS <= 0 {
			result.addError("server.rate_limit.rps",
				"must be greater than 0 when rate limiting is enabled", "")
		}
		if s.RateLimit.Burst <= 0 {
			result.addError("server.rate_limit.burst",
				"must be greater than 0 when rate limiting is enabled", "")
		}
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	switch o.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		result.addError("observability.logging.level",
			fmt.Sprintf("unknown log level %q", o.Logging.Level),
			"use debug, info, warn or error")
	}

	switch o.Logging.Format {
	case "json", "text":
	default:
		result.addError("observability.logging.format",
			fmt.Sprintf("unknown log format %q", o.Logging.Format),
			"use json or text")
	}

	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.addError("observability.trace_sample_ratio",
			fmt.Sprintf("ratio %g is out of range (0.0-1.0)", o.TraceSampleRatio), "")
	}

	if o.TracingEnabled && o.OTLP.Endpoint == "" {
		result.addError("observability.otlp.endpoint",
			"endpoint cannot be empty when tracing is enabled", "")
	}
}

func (m *ModelConfig) validate(result *ValidationResult) {
	if len(m.Entities) == 0 && m.File == "" {
		result.addError("model", "no entities configured",
			"declare model.entities inline or point model.file at a model definition YAML")
	}

	for i, ec := range m.Entities {
		field := fmt.Sprintf("model.entities[%d]", i)
		if ec.Name == "" {
			result.addError(field, "entity name cannot be empty", "")
		}
		if ec.Table == "" {
			result.addError(field, "entity table cannot be empty", "")
		}
		if ec.PrimaryKey.Name == "" {
			result.addError(field, "entity primary key cannot be empty", "")
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelql/internal/entityschema"
)

func loadDefaults(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	cfg, err := unmarshalConfig(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := loadDefaults(t)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.Pool.MaxOpen)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.DefaultPerPage)
	assert.Equal(t, 100, cfg.Server.MaxPerPage)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
	assert.False(t, cfg.Observability.TracingEnabled)
	assert.False(t, cfg.Server.CORS.Enabled)
	assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.Server.CORS.AllowedMethods)
	assert.Equal(t, 86400, cfg.Server.CORS.MaxAge)
	assert.False(t, cfg.Server.RateLimit.Enabled)
}

func TestCORSOriginsDecodeFromString(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	// Environment variables deliver list values as a single separated string.
	v.Set("server.cors.allowed_origins", "http://a.example, http://b.example")

	cfg, err := unmarshalConfig(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORS.AllowedOrigins)
}

func TestDSNFromDiscreteFields(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.example.com",
		Port:     3306,
		User:     "app",
		Password: "secret",
		Database: "tasks",
	}
	assert.Equal(t,
		"app:secret@tcp(db.example.com:3306)/tasks?parseTime=true&loc=UTC",
		d.DSN())
}

func TestDSNPassthroughAddsParseTime(t *testing.T) {
	d := DatabaseConfig{ConnectionString: "app:secret@tcp(db:3306)/tasks"}
	assert.Equal(t, "app:secret@tcp(db:3306)/tasks?parseTime=true&loc=UTC", d.DSN())

	d = DatabaseConfig{ConnectionString: "app:secret@tcp(db:3306)/tasks?parseTime=true&loc=UTC"}
	assert.Equal(t, "app:secret@tcp(db:3306)/tasks?parseTime=true&loc=UTC", d.DSN())
}

func TestModelEntitiesDecode(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("model.entities", []map[string]interface{}{
		{
			"name":  "task",
			"table": "task",
			"primary_key": map[string]interface{}{
				"name": "id",
				"kind": "int",
			},
			"columns": []map[string]interface{}{
				{"name": "message", "kind": "string"},
				{"name": "done", "kind": "bool", "has_default": true},
				{"name": "done_at", "kind": "datetime", "nullable": true},
			},
			"relationships": []map[string]interface{}{
				{"name": "user", "target": "user", "fk_column": "user_id"},
			},
		},
	})

	cfg, err := unmarshalConfig(v)
	require.NoError(t, err)
	require.Len(t, cfg.Model.Entities, 1)

	task := cfg.Model.Entities[0]
	assert.Equal(t, "task", task.Name)
	assert.Equal(t, entityschema.KindInt, task.PrimaryKey.Kind)
	require.Len(t, task.Columns, 3)
	assert.Equal(t, entityschema.KindBool, task.Columns[1].Kind)
	assert.True(t, task.Columns[1].HasDefault)
	assert.Equal(t, entityschema.KindDateTime, task.Columns[2].Kind)
	assert.True(t, task.Columns[2].Nullable)
	require.Len(t, task.Relationships, 1)
	assert.Equal(t, "user_id", task.Relationships[0].FKColumn)
}

func TestModelEntityUnknownKind(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("model.entities", []map[string]interface{}{
		{
			"name":        "task",
			"table":       "task",
			"primary_key": map[string]interface{}{"name": "id", "kind": "bigint"},
		},
	})

	_, err := unmarshalConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown column kind "bigint"`)
}

func TestLoadModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entities:
  - name: user
    table: user
    primary_key:
      name: id
      kind: int
    columns:
      - name: username
        kind: string
`), 0o600))

	entities, err := LoadModelFile(path)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "user", entities[0].Name)
	assert.Equal(t, entityschema.KindString, entities[0].Columns[0].Kind)
}

func TestLoadModelFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entities: []\n"), 0o600))

	_, err := LoadModelFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defines no entities")
}

func TestValidateDefaultsNeedEntities(t *testing.T) {
	cfg := loadDefaults(t)

	result := cfg.Validate()
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Error(), "no entities configured")

	cfg.Model.Entities = []entityschema.EntityConfig{
		{
			Name:       "task",
			Table:      "task",
			PrimaryKey: entityschema.Column{Name: "id", Kind: entityschema.KindInt},
		},
	}
	assert.False(t, cfg.Validate().HasErrors())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Model.File = "model.yaml"
	cfg.Server.Port = 0
	cfg.Server.DefaultPerPage = 500
	cfg.Observability.Logging.Level = "verbose"
	cfg.Observability.TraceSampleRatio = 2

	result := cfg.Validate()
	require.True(t, result.HasErrors())
	msg := result.Error()
	assert.Contains(t, msg, "server.port")
	assert.Contains(t, msg, "default_per_page (500) cannot exceed max_per_page (100)")
	assert.Contains(t, msg, `unknown log level "verbose"`)
	assert.Contains(t, msg, "trace_sample_ratio")
}

func TestValidateCORSAndRateLimit(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Model.File = "model.yaml"
	cfg.Server.CORS.Enabled = true
	cfg.Server.RateLimit.Enabled = true

	result := cfg.Validate()
	require.True(t, result.HasErrors())
	msg := result.Error()
	assert.Contains(t, msg, "allowed_origins cannot be empty when CORS is enabled")
	assert.Contains(t, msg, "server.rate_limit.rps")
	assert.Contains(t, msg, "server.rate_limit.burst")

	cfg.Server.CORS.AllowedOrigins = []string{"*"}
	cfg.Server.RateLimit.RPS = 50
	cfg.Server.RateLimit.Burst = 100
	assert.False(t, cfg.Validate().HasErrors())
}

func TestValidatePoolBounds(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Model.File = "model.yaml"
	cfg.Database.Pool.MaxIdle = 50

	result := cfg.Validate()
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Error(), "max_idle (50) cannot exceed max_open (25)")
}

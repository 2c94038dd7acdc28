// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (OPENAI_API_KEY, DATABASE_URL, INGEST_SECRET)
//  2. Config file (~/.brain/config.yaml or ./config.yaml)
//  3. Default values
//
// Main categories:
//   - OpenAI: model, embedding model and dimensions
//   - Storage: PostgreSQL connection (see storage.go)
//   - Engine: retry counts, timeouts, vector top-k, disambiguation threshold
//   - Safety: forbidden result fields, queryable tables
//
// Sensitive values (API key, password, ingest secret) are never logged.
// Load validates immediately; a bad configuration fails process startup.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the OpenAI API key is not set.
	ErrMissingAPIKey = errors.New("missing OpenAI API key")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbeddingDimensions indicates the embedding dimension is out of range.
	ErrInvalidEmbeddingDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidMaxRetries indicates sql_max_retries is out of range.
	ErrInvalidMaxRetries = errors.New("invalid sql_max_retries")

	// ErrInvalidTopK indicates vector_top_k is out of range.
	ErrInvalidTopK = errors.New("invalid vector_top_k")

	// ErrInvalidThreshold indicates disambiguation_threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid disambiguation_threshold")

	// ErrInvalidTimeout indicates llm_timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid llm_timeout")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")
)

// Config stores application configuration.
// SECURITY: sensitive fields must never be logged; keep them out of any
// String/MarshalJSON representation added later.
type Config struct {
	// OpenAI configuration
	OpenAIAPIKey        string `mapstructure:"openai_api_key"`
	OpenAIModel         string `mapstructure:"openai_model"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`

	// Engine configuration. SQLMaxRetries and DisambiguationThreshold
	// are deliberately configurable: the shipped defaults are working
	// values, not tuned optima.
	SQLMaxRetries           int           `mapstructure:"sql_max_retries"`
	VectorTopK              int           `mapstructure:"vector_top_k"`
	DisambiguationThreshold int           `mapstructure:"disambiguation_threshold"`
	LLMTimeout              time.Duration `mapstructure:"llm_timeout"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Tables the SQL generation prompt may reference.
	SQLTables []string `mapstructure:"sql_tables"`

	// Column names that must never reach a caller (financial data).
	ForbiddenFields []string `mapstructure:"forbidden_fields"`

	// Shared secret guarding the ingest trigger endpoint.
	IngestSecret string `mapstructure:"ingest_secret"` // SENSITIVE

	// HTTP listen address for serve mode.
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".brain")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults plus env cover startup.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("openai_model", "gpt-4o")
	viper.SetDefault("embedding_model", "text-embedding-3-small")
	viper.SetDefault("embedding_dimensions", 1536)

	viper.SetDefault("sql_max_retries", 3)
	viper.SetDefault("vector_top_k", 5)
	viper.SetDefault("disambiguation_threshold", 5)
	viper.SetDefault("llm_timeout", 15*time.Second)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "brain")
	viper.SetDefault("postgres_db_name", "brain")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("sql_tables", []string{
		"consultores", "proyectos", "clientes",
		"proyectoequipo", "tareas", "oficinas",
	})
	viper.SetDefault("forbidden_fields", []string{
		"costohora", "tarifahora", "salario", "costo",
		"tarifa", "precio", "monto", "honorarios",
	})

	viper.SetDefault("listen_addr", ":8080")
}

// bindEnvVariables binds sensitive environment variables explicitly.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("ingest_secret", "INGEST_SECRET")
	mustBind("postgres_password", "POSTGRES_PASSWORD")
}

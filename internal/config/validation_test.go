package config

import (
	"errors"
	"testing"
	"time"
)

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	return &Config{
		OpenAIAPIKey:            "sk-test",
		OpenAIModel:             "gpt-4o",
		EmbeddingModel:          "text-embedding-3-small",
		EmbeddingDimensions:     1536,
		SQLMaxRetries:           3,
		VectorTopK:              5,
		DisambiguationThreshold: 5,
		LLMTimeout:              15 * time.Second,
		PostgresHost:            "localhost",
		PostgresPort:            5432,
		PostgresUser:            "brain",
		PostgresDBName:          "brain",
		PostgresSSLMode:         "disable",
	}
}

func TestValidateOK(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.OpenAIAPIKey = "" },
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "empty model",
			mutate:  func(c *Config) { c.OpenAIModel = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "zero embedding dimensions",
			mutate:  func(c *Config) { c.EmbeddingDimensions = 0 },
			wantErr: ErrInvalidEmbeddingDimensions,
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.SQLMaxRetries = 0 },
			wantErr: ErrInvalidMaxRetries,
		},
		{
			name:    "excessive retries",
			mutate:  func(c *Config) { c.SQLMaxRetries = 100 },
			wantErr: ErrInvalidMaxRetries,
		},
		{
			name:    "zero top k",
			mutate:  func(c *Config) { c.VectorTopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "zero disambiguation threshold",
			mutate:  func(c *Config) { c.DisambiguationThreshold = 0 },
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "timeout too small",
			mutate:  func(c *Config) { c.LLMTimeout = time.Millisecond },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "bad postgres port",
			mutate:  func(c *Config) { c.PostgresPort = 0 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty db name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresConnectionString(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "p ss'word"

	dsn := cfg.PostgresConnectionString()

	want := `host=localhost port=5432 user=brain password='p ss\'word' dbname=brain sslmode=disable`
	if dsn != want {
		t.Errorf("PostgresConnectionString() = %q, want %q", dsn, want)
	}
}

package config

import (
	"fmt"
	"time"
)

// Hard ceilings; anything beyond these is a configuration mistake,
// not a tuning decision.
const (
	maxRetries             = 10
	maxTopK                = 100
	maxThreshold           = 100
	minLLMTimeout          = time.Second
	maxLLMTimeout          = 5 * time.Minute
	maxEmbeddingDimensions = 4096
)

// Validate checks the configuration and returns the first problem found.
// Called by Load; startup fails on any error.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
	}
	if c.OpenAIModel == "" {
		return fmt.Errorf("%w: openai_model must not be empty", ErrInvalidModelName)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: embedding_model must not be empty", ErrInvalidModelName)
	}
	if c.EmbeddingDimensions <= 0 || c.EmbeddingDimensions > maxEmbeddingDimensions {
		return fmt.Errorf("%w: got %d, want 1..%d",
			ErrInvalidEmbeddingDimensions, c.EmbeddingDimensions, maxEmbeddingDimensions)
	}

	if c.SQLMaxRetries < 1 || c.SQLMaxRetries > maxRetries {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidMaxRetries, c.SQLMaxRetries, maxRetries)
	}
	if c.VectorTopK < 1 || c.VectorTopK > maxTopK {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidTopK, c.VectorTopK, maxTopK)
	}
	if c.DisambiguationThreshold < 1 || c.DisambiguationThreshold > maxThreshold {
		return fmt.Errorf("%w: got %d, want 1..%d",
			ErrInvalidThreshold, c.DisambiguationThreshold, maxThreshold)
	}
	if c.LLMTimeout < minLLMTimeout || c.LLMTimeout > maxLLMTimeout {
		return fmt.Errorf("%w: got %v, want %v..%v",
			ErrInvalidTimeout, c.LLMTimeout, minLLMTimeout, maxLLMTimeout)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name must not be empty", ErrInvalidPostgresDBName)
	}

	return nil
}

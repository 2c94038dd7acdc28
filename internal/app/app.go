// Package app wires the application together: configuration, database
// pool, model client, engines, orchestrator, and ingester.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invenzis/brain/internal/classify"
	"github.com/invenzis/brain/internal/config"
	"github.com/invenzis/brain/internal/engine"
	"github.com/invenzis/brain/internal/ingest"
	"github.com/invenzis/brain/internal/knowledge"
	"github.com/invenzis/brain/internal/llm"
	"github.com/invenzis/brain/internal/log"
	"github.com/invenzis/brain/internal/memory"
	"github.com/invenzis/brain/internal/orchestrator"
)

// App is the assembled application.
type App struct {
	Config       *config.Config
	Pool         *pgxpool.Pool
	LLM          *llm.Client
	Knowledge    *knowledge.Store
	Memory       *memory.Manager
	Orchestrator *orchestrator.Orchestrator
	Ingester     *ingest.Ingester
	Logger       log.Logger
}

// Setup builds the full dependency graph and verifies the database is
// reachable.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	client := llm.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.EmbeddingModel,
		cfg.EmbeddingDimensions, logger, llm.WithTimeout(cfg.LLMTimeout))

	store := knowledge.NewStore(pool, client, logger)
	classifier := classify.New(client, logger)

	sqlEngine := engine.NewSQL(client, pool, logger,
		engine.WithMaxRetries(cfg.SQLMaxRetries),
		engine.WithForbiddenFields(cfg.ForbiddenFields))
	vectorEngine := engine.NewVector(store, cfg.VectorTopK, logger)

	mem := memory.NewManager(memory.NewPostgresStore(pool), logger)

	orch := orchestrator.New(classifier, sqlEngine, vectorEngine, client, mem, logger,
		orchestrator.WithDisambiguationThreshold(cfg.DisambiguationThreshold))

	logger.Info("application ready",
		"model", cfg.OpenAIModel,
		"embedding_model", cfg.EmbeddingModel,
		"database", cfg.PostgresDBName)

	return &App{
		Config:       cfg,
		Pool:         pool,
		LLM:          client,
		Knowledge:    store,
		Memory:       mem,
		Orchestrator: orch,
		Ingester:     ingest.New(pool, store, logger),
		Logger:       logger,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
}

package engine

import (
	"context"

	"github.com/invenzis/brain/internal/knowledge"
	"github.com/invenzis/brain/internal/log"
)

// Searcher is the vector search call the engine needs from the
// knowledge store.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// VectorResult is the outcome of one vector retrieval. Success means
// the search ran; an empty Chunks is a clean miss, not a failure.
type VectorResult struct {
	Success bool
	Chunks  []knowledge.Result
	Err     string
}

// Vector answers questions by similarity search over embedded chunks.
type Vector struct {
	store  Searcher
	topK   int
	logger log.Logger
}

// NewVector creates the vector engine. topK below 1 falls back to 5.
func NewVector(store Searcher, topK int, logger log.Logger) *Vector {
	if topK < 1 {
		topK = 5
	}
	return &Vector{store: store, topK: topK, logger: logger}
}

// Search retrieves the chunks closest to question.
func (e *Vector) Search(ctx context.Context, question string) VectorResult {
	return e.search(ctx, question, knowledge.WithTopK(e.topK))
}

// SearchWithFilter restricts retrieval to chunks from one source table.
func (e *Vector) SearchWithFilter(ctx context.Context, question, sourceTable string) VectorResult {
	return e.search(ctx, question,
		knowledge.WithTopK(e.topK), knowledge.WithSourceTable(sourceTable))
}

func (e *Vector) search(ctx context.Context, question string, opts ...knowledge.SearchOption) VectorResult {
	chunks, err := e.store.Search(ctx, question, opts...)
	if err != nil {
		e.logger.Warn("vector search failed", "error", err)
		return VectorResult{Err: err.Error()}
	}

	e.logger.Debug("vector search finished", "hits", len(chunks))
	return VectorResult{Success: true, Chunks: chunks}
}

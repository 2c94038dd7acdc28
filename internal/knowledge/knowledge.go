// Package knowledge stores and searches text chunks with vector
// similarity using PostgreSQL + pgvector.
//
// Chunks are denormalized rows from the operational tables (projects,
// lessons, notes) embedded at ingest time. Search embeds the question
// and ranks by cosine similarity; every hit keeps its source table and
// row id so answers can cite where the text came from.
package knowledge

import (
	"context"
	"time"
)

// Chunk is one embeddable unit of text with its provenance.
type Chunk struct {
	ID          string
	Text        string
	SourceTable string
	SourceID    string
	CreatedAt   time.Time
}

// Result is a search hit. Similarity is cosine similarity in [0, 1],
// higher is closer.
type Result struct {
	Chunk
	Similarity float64
}

// Embedder turns texts into vectors. Input order is preserved.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/invenzis/brain/internal/log"
)

// Querier is the slice of the pgx pool surface the store uses.
// *pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store manages embedded chunks in the rag_chunks table.
// Safe for concurrent use.
type Store struct {
	db       Querier
	embedder Embedder
	logger   log.Logger
}

// NewStore creates a Store over db using embedder for all vector work.
func NewStore(db Querier, embedder Embedder, logger log.Logger) *Store {
	return &Store{db: db, embedder: embedder, logger: logger}
}

// Upsert embeds every chunk's text in one batch and writes the chunks,
// replacing any existing row with the same id. A chunk with empty text
// is rejected before any embedding call is made.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.Text == "" {
			return fmt.Errorf("chunk %q has empty text", c.ID)
		}
		texts[i] = c.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	const upsert = `
		INSERT INTO rag_chunks (id, contenido, embedding, fuentetabla, fuenteid, creado_en)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			contenido = EXCLUDED.contenido,
			embedding = EXCLUDED.embedding,
			fuentetabla = EXCLUDED.fuentetabla,
			fuenteid = EXCLUDED.fuenteid`

	for i, c := range chunks {
		vec := pgvector.NewVector(vectors[i])
		if _, err := s.db.Exec(ctx, upsert, c.ID, c.Text, vec, c.SourceTable, c.SourceID); err != nil {
			return fmt.Errorf("upserting chunk %q: %w", c.ID, err)
		}
	}

	s.logger.Debug("upserted chunks", "count", len(chunks))
	return nil
}

// Search embeds query and returns the closest chunks by cosine
// similarity, best first.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned for query")
	}
	queryVec := pgvector.NewVector(vectors[0])

	var rows pgx.Rows
	if cfg.sourceTable != "" {
		rows, err = s.db.Query(ctx, `
			SELECT id, contenido, fuentetabla, fuenteid, creado_en,
			       1 - (embedding <=> $1) AS similitud
			FROM rag_chunks
			WHERE fuentetabla = $2
			ORDER BY embedding <=> $1
			LIMIT $3`, queryVec, cfg.sourceTable, cfg.topK)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT id, contenido, fuentetabla, fuenteid, creado_en,
			       1 - (embedding <=> $1) AS similitud
			FROM rag_chunks
			ORDER BY embedding <=> $1
			LIMIT $2`, queryVec, cfg.topK)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, cfg.topK)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Text, &r.SourceTable, &r.SourceID, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}

	return results, nil
}

// DeleteBySource removes every chunk ingested from sourceTable. Used
// before re-ingesting a table so stale rows never linger.
func (s *Store) DeleteBySource(ctx context.Context, sourceTable string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM rag_chunks WHERE fuentetabla = $1`, sourceTable)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for %q: %w", sourceTable, err)
	}

	s.logger.Debug("deleted chunks", "source_table", sourceTable, "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	rows, err := s.db.Query(ctx, `SELECT count(*) FROM rag_chunks`)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	defer rows.Close()

	var count int64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("scanning count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading count: %w", err)
	}
	return count, nil
}

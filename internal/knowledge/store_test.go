package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/invenzis/brain/internal/log"
)

type fakeEmbedder struct {
	err   error
	calls [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 0.5}
	}
	return vectors, nil
}

// fakeRows implements pgx.Rows over an in-memory row set.
type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan arity: %d dest for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *float64:
			*p = row[i].(float64)
		case *int64:
			*p = row[i].(int64)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan dest %T", d)
		}
	}
	return nil
}

type fakeDB struct {
	rows    [][]any
	execErr error

	queries []string
	args    [][]any
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return &fakeRows{rows: f.rows}, nil
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("DELETE 2"), f.execErr
}

func TestSearchRanksAndScans(t *testing.T) {
	t.Parallel()

	now := time.Now()
	db := &fakeDB{rows: [][]any{
		{"c1", "migración a S/4HANA", "proyectos", "p-7", now, 0.91},
		{"c2", "lecciones de retail", "lecciones", "l-2", now, 0.55},
	}}
	store := NewStore(db, &fakeEmbedder{}, log.NewNop())

	results, err := store.Search(context.Background(), "problemas con S/4HANA", WithTopK(2))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	first := results[0]
	if first.ID != "c1" || first.SourceTable != "proyectos" || first.SourceID != "p-7" {
		t.Errorf("first hit = %+v", first)
	}
	if first.Similarity != 0.91 {
		t.Errorf("similarity = %v, want 0.91", first.Similarity)
	}
	if strings.Contains(db.queries[0], "fuentetabla =") {
		t.Error("unfiltered search carried a source-table predicate")
	}
}

func TestSearchWithSourceTable(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	store := NewStore(db, &fakeEmbedder{}, log.NewNop())

	if _, err := store.Search(context.Background(), "retail", WithSourceTable("lecciones")); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if !strings.Contains(db.queries[0], "WHERE fuentetabla = $2") {
		t.Errorf("query missing source-table filter: %s", db.queries[0])
	}
	if db.args[0][1] != "lecciones" {
		t.Errorf("source table arg = %v", db.args[0][1])
	}
}

func TestSearchEmbeddingFailure(t *testing.T) {
	t.Parallel()

	embedErr := errors.New("upstream down")
	store := NewStore(&fakeDB{}, &fakeEmbedder{err: embedErr}, log.NewNop())

	if _, err := store.Search(context.Background(), "retail"); !errors.Is(err, embedErr) {
		t.Errorf("Search() error = %v, want wrapped %v", err, embedErr)
	}
}

func TestUpsertBatchesEmbeddings(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	embedder := &fakeEmbedder{}
	store := NewStore(db, embedder, log.NewNop())

	chunks := []Chunk{
		{ID: "c1", Text: "uno", SourceTable: "proyectos", SourceID: "p-1"},
		{ID: "c2", Text: "dos", SourceTable: "proyectos", SourceID: "p-2"},
	}
	if err := store.Upsert(context.Background(), chunks); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if len(embedder.calls) != 1 || len(embedder.calls[0]) != 2 {
		t.Errorf("embedder calls = %v, want one batch of two", embedder.calls)
	}
	if len(db.queries) != 2 {
		t.Fatalf("exec count = %d, want 2", len(db.queries))
	}
	if !strings.Contains(db.queries[0], "ON CONFLICT (id) DO UPDATE") {
		t.Errorf("statement is not an upsert: %s", db.queries[0])
	}
	if db.args[1][0] != "c2" {
		t.Errorf("second upsert id = %v", db.args[1][0])
	}
}

func TestUpsertRejectsEmptyText(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{}
	store := NewStore(&fakeDB{}, embedder, log.NewNop())

	err := store.Upsert(context.Background(), []Chunk{{ID: "c1"}})
	if err == nil {
		t.Fatal("Upsert() accepted a chunk with empty text")
	}
	if len(embedder.calls) != 0 {
		t.Error("embedder called despite invalid input")
	}
}

func TestDeleteBySource(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	store := NewStore(db, &fakeEmbedder{}, log.NewNop())

	n, err := store.DeleteBySource(context.Background(), "proyectos")
	if err != nil {
		t.Fatalf("DeleteBySource() error = %v", err)
	}
	if n != 2 {
		t.Errorf("rows affected = %d, want 2", n)
	}
	if db.args[0][0] != "proyectos" {
		t.Errorf("delete arg = %v", db.args[0][0])
	}
}

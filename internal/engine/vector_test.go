package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/invenzis/brain/internal/knowledge"
	"github.com/invenzis/brain/internal/log"
)

type fakeSearcher struct {
	results []knowledge.Result
	err     error
	gotOpts int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	f.gotOpts = len(opts)
	return f.results, f.err
}

func TestVectorSearchSuccess(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{results: []knowledge.Result{
		{Chunk: knowledge.Chunk{ID: "c1", Text: "migración compleja", SourceTable: "proyectos", SourceID: "p-1"}, Similarity: 0.88},
	}}
	e := NewVector(store, 5, log.NewNop())

	res := e.Search(context.Background(), "problemas de migración")

	if !res.Success {
		t.Fatalf("Search() = %+v, want success", res)
	}
	if len(res.Chunks) != 1 || res.Chunks[0].SourceTable != "proyectos" {
		t.Errorf("chunks = %+v", res.Chunks)
	}
}

func TestVectorSearchNoHitsIsCleanMiss(t *testing.T) {
	t.Parallel()

	e := NewVector(&fakeSearcher{}, 5, log.NewNop())

	res := e.Search(context.Background(), "tema desconocido")

	if !res.Success {
		t.Error("empty result set reported as failure")
	}
	if len(res.Chunks) != 0 || res.Err != "" {
		t.Errorf("res = %+v, want success with no chunks", res)
	}
}

func TestVectorSearchFailure(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{err: errors.New("connection refused")}
	e := NewVector(store, 5, log.NewNop())

	res := e.Search(context.Background(), "pregunta")

	if res.Success {
		t.Error("failed search reported as success")
	}
	if res.Err == "" {
		t.Error("Err empty after search failure")
	}
}

func TestVectorSearchWithFilterPassesOptions(t *testing.T) {
	t.Parallel()

	store := &fakeSearcher{results: []knowledge.Result{
		{Chunk: knowledge.Chunk{ID: "c2", Text: "lección de upgrade", SourceTable: "leccionesaprendidas", SourceID: "l-3"}, Similarity: 0.91},
	}}
	e := NewVector(store, 5, log.NewNop())

	res := e.SearchWithFilter(context.Background(), "lecciones de upgrade", "leccionesaprendidas")

	if !res.Success {
		t.Fatalf("SearchWithFilter() = %+v, want success", res)
	}
	if store.gotOpts != 2 {
		t.Errorf("options passed = %d, want topK and source filter", store.gotOpts)
	}
}

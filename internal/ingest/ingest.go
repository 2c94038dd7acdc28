// Package ingest rebuilds the embedded knowledge chunks from the
// operational tables.
//
// Each source table has a reader that turns rows into self-contained
// Spanish passages; the chunk ids are derived from table and row id so
// re-ingesting updates in place instead of duplicating.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/invenzis/brain/internal/knowledge"
	"github.com/invenzis/brain/internal/log"
)

// batchSize bounds how many chunks go into one embedding request.
const batchSize = 50

// Querier is the slice of the pgx pool surface the readers use.
// *pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ChunkStore is the write surface of the knowledge store.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []knowledge.Chunk) error
	DeleteBySource(ctx context.Context, sourceTable string) (int64, error)
}

// Stats summarizes one ingest run.
type Stats struct {
	Tables  int
	Chunks  int
	Deleted int64
}

// Ingester reads the source tables and writes embedded chunks.
type Ingester struct {
	db     Querier
	store  ChunkStore
	logger log.Logger
}

// New creates an Ingester.
func New(db Querier, store ChunkStore, logger log.Logger) *Ingester {
	return &Ingester{db: db, store: store, logger: logger}
}

// source binds a table to its chunk reader.
type source struct {
	table string
	read  func(i *Ingester, ctx context.Context) ([]knowledge.Chunk, error)
}

var sources = []source{
	{"proyectos", (*Ingester).readProjects},
	{"leccionesaprendidas", (*Ingester).readLessons},
	{"tareas", (*Ingester).readTasks},
	{"consultores", (*Ingester).readConsultants},
}

// Run rebuilds every source table's chunks: delete, read, embed,
// upsert. A failing table aborts the run so a partial rebuild never
// looks complete.
func (i *Ingester) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	for _, src := range sources {
		deleted, err := i.store.DeleteBySource(ctx, src.table)
		if err != nil {
			return stats, fmt.Errorf("clearing %s chunks: %w", src.table, err)
		}
		stats.Deleted += deleted

		chunks, err := src.read(i, ctx)
		if err != nil {
			return stats, fmt.Errorf("reading %s: %w", src.table, err)
		}

		for start := 0; start < len(chunks); start += batchSize {
			end := start + batchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			if err := i.store.Upsert(ctx, chunks[start:end]); err != nil {
				return stats, fmt.Errorf("writing %s chunks: %w", src.table, err)
			}
		}

		i.logger.Info("ingested table", "table", src.table, "chunks", len(chunks))
		stats.Tables++
		stats.Chunks += len(chunks)
	}

	return stats, nil
}

// chunkID derives a stable id from provenance so repeated ingests
// update rather than accumulate.
func chunkID(table, sourceID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(table+":"+sourceID)).String()
}

func (i *Ingester) readProjects(ctx context.Context) ([]knowledge.Chunk, error) {
	rows, err := i.db.Query(ctx, `
		SELECT p.proyectoid, p.nombreproyecto, p.tiposervicio, p.estado,
		       COALESCE(p.problemaejecutivo, ''), COALESCE(p.solucionpropuesta, ''),
		       COALESCE(c.nombrecliente, ''), COALESCE(c.industria, '')
		FROM proyectos p
		LEFT JOIN clientes c ON c.clienteid = p.clienteid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []knowledge.Chunk
	for rows.Next() {
		var id int64
		var name, service, status, problem, solution, client, industry string
		if err := rows.Scan(&id, &name, &service, &status, &problem, &solution, &client, &industry); err != nil {
			return nil, err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Proyecto %s (%s, estado: %s).", name, service, status)
		if client != "" {
			fmt.Fprintf(&b, " Cliente: %s (%s).", client, industry)
		}
		if problem != "" {
			fmt.Fprintf(&b, " Problema: %s", problem)
		}
		if solution != "" {
			fmt.Fprintf(&b, " Solución: %s", solution)
		}

		sourceID := fmt.Sprint(id)
		chunks = append(chunks, knowledge.Chunk{
			ID:          chunkID("proyectos", sourceID),
			Text:        b.String(),
			SourceTable: "proyectos",
			SourceID:    sourceID,
		})
	}
	return chunks, rows.Err()
}

func (i *Ingester) readLessons(ctx context.Context) ([]knowledge.Chunk, error) {
	rows, err := i.db.Query(ctx, `
		SELECT l.leccionid, l.descripcion, COALESCE(l.categoria, ''),
		       COALESCE(l.impacto, ''), COALESCE(p.nombreproyecto, '')
		FROM leccionesaprendidas l
		LEFT JOIN proyectos p ON p.proyectoid = l.proyectoid
		WHERE l.descripcion IS NOT NULL AND l.descripcion <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []knowledge.Chunk
	for rows.Next() {
		var id int64
		var description, category, impact, project string
		if err := rows.Scan(&id, &description, &category, &impact, &project); err != nil {
			return nil, err
		}

		var b strings.Builder
		b.WriteString("Lección aprendida")
		if project != "" {
			fmt.Fprintf(&b, " del proyecto %s", project)
		}
		if category != "" {
			fmt.Fprintf(&b, " (%s)", category)
		}
		fmt.Fprintf(&b, ": %s", description)
		if impact != "" {
			fmt.Fprintf(&b, " Impacto: %s", impact)
		}

		sourceID := fmt.Sprint(id)
		chunks = append(chunks, knowledge.Chunk{
			ID:          chunkID("leccionesaprendidas", sourceID),
			Text:        b.String(),
			SourceTable: "leccionesaprendidas",
			SourceID:    sourceID,
		})
	}
	return chunks, rows.Err()
}

func (i *Ingester) readTasks(ctx context.Context) ([]knowledge.Chunk, error) {
	rows, err := i.db.Query(ctx, `
		SELECT t.tareaid, t.tareadescripcion, COALESCE(t.tareaestatus, ''),
		       COALESCE(p.nombreproyecto, '')
		FROM tareas t
		LEFT JOIN proyectos p ON p.proyectoid = t.proyectoid
		WHERE t.tareadescripcion IS NOT NULL AND t.tareadescripcion <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []knowledge.Chunk
	for rows.Next() {
		var id int64
		var description, status, project string
		if err := rows.Scan(&id, &description, &status, &project); err != nil {
			return nil, err
		}

		text := fmt.Sprintf("Tarea: %s", description)
		if project != "" {
			text += fmt.Sprintf(" (proyecto %s)", project)
		}
		if status != "" {
			text += fmt.Sprintf(" [estado: %s]", status)
		}

		sourceID := fmt.Sprint(id)
		chunks = append(chunks, knowledge.Chunk{
			ID:          chunkID("tareas", sourceID),
			Text:        text,
			SourceTable: "tareas",
			SourceID:    sourceID,
		})
	}
	return chunks, rows.Err()
}

func (i *Ingester) readConsultants(ctx context.Context) ([]knowledge.Chunk, error) {
	rows, err := i.db.Query(ctx, `
		SELECT consultorid, nombrecompleto, COALESCE(rolprincipal, ''),
		       COALESCE(nivelsenioridad, ''), COALESCE(expertise::text, ''),
		       COALESCE(ubicacion, '')
		FROM consultores
		WHERE activo = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []knowledge.Chunk
	for rows.Next() {
		var id int64
		var name, role, seniority, expertise, location string
		if err := rows.Scan(&id, &name, &role, &seniority, &expertise, &location); err != nil {
			return nil, err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s es %s", name, role)
		if seniority != "" {
			fmt.Fprintf(&b, " (%s)", seniority)
		}
		if location != "" {
			fmt.Fprintf(&b, " en %s", location)
		}
		b.WriteString(".")
		if expertise != "" {
			fmt.Fprintf(&b, " Expertise: %s", expertise)
		}

		sourceID := fmt.Sprint(id)
		chunks = append(chunks, knowledge.Chunk{
			ID:          chunkID("consultores", sourceID),
			Text:        b.String(),
			SourceTable: "consultores",
			SourceID:    sourceID,
		})
	}
	return chunks, rows.Err()
}

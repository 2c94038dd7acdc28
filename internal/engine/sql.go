// Package engine executes questions against the two retrieval backends:
// generated SQL over the operational tables, and vector search over the
// embedded knowledge chunks.
//
// The SQL path is generate-validate-execute with bounded retries. Every
// failed attempt feeds its statement and error back into the next
// generation prompt so the model can correct itself instead of
// repeating the mistake.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/invenzis/brain/internal/log"
	"github.com/invenzis/brain/internal/prompt"
	"github.com/invenzis/brain/internal/security"
	"github.com/invenzis/brain/internal/sqlextract"
)

// Completer is the generation call the engine needs from the model
// client.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Querier is the slice of the pgx pool surface the engine uses.
// *pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Result is the outcome of one Execute call. SQL and Err describe the
// last attempt; on failure they seed operator logs, never user output.
type Result struct {
	Success  bool
	Rows     []security.Row
	SQL      string
	Err      string
	Attempts int
}

// SQL generates and executes read-only statements with retry feedback.
// Safe for concurrent use.
type SQL struct {
	llm        Completer
	db         Querier
	maxRetries int
	forbidden  []string
	logger     log.Logger
}

// SQLOption configures the engine.
type SQLOption func(*SQL)

// WithMaxRetries sets how many generation attempts one question gets.
func WithMaxRetries(n int) SQLOption {
	return func(e *SQL) {
		if n >= 1 {
			e.maxRetries = n
		}
	}
}

// WithForbiddenFields overrides the column names scrubbed from
// statements and result rows.
func WithForbiddenFields(fields []string) SQLOption {
	return func(e *SQL) { e.forbidden = fields }
}

// NewSQL creates the SQL engine. Defaults: three attempts, the standard
// financial-column denylist.
func NewSQL(llm Completer, db Querier, logger log.Logger, opts ...SQLOption) *SQL {
	e := &SQL{
		llm:        llm,
		db:         db,
		maxRetries: 3,
		forbidden: []string{
			"costohora", "tarifahora", "salario", "costo",
			"tarifa", "precio", "monto", "honorarios",
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute answers question via generated SQL. Each attempt generates a
// statement, extracts it from the model output, validates it against
// the read-only contract, scrubs forbidden columns, and runs it. Any
// step failing records the statement and error for the next attempt's
// retry prompt; generation and extraction failures leave no statement
// to feed back. Exhausting all attempts returns a failed Result
// carrying the last statement and error.
func (e *SQL) Execute(ctx context.Context, question string) Result {
	var prevSQL, prevErr string

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{SQL: prevSQL, Err: err.Error(), Attempts: attempt}
		}

		p := prompt.SQLGeneration(question)
		if attempt > 0 {
			p = prompt.SQLRetry(question, prevSQL, prevErr)
		}

		raw, err := e.llm.Complete(ctx, p, 0)
		if err != nil {
			e.logger.Warn("sql generation failed",
				"attempt", attempt, "error", err)
			prevSQL, prevErr = "", err.Error()
			continue
		}

		stmt, err := sqlextract.Extract(raw)
		if err != nil {
			e.logger.Warn("sql extraction failed",
				"attempt", attempt, "error", err)
			// The extraction error quotes the raw model output; only the
			// fixed placeholder may feed back into the next prompt.
			prevSQL, prevErr = "", prompt.NoValidSQL
			continue
		}

		if err := security.ValidateSQL(stmt); err != nil {
			e.logger.Warn("sql rejected by validation",
				"attempt", attempt, "error", err)
			prevSQL, prevErr = stmt, err.Error()
			continue
		}

		stmt = security.FilterForbiddenFields(stmt, e.forbidden)

		rows, err := e.collectRows(ctx, stmt)
		if err != nil {
			e.logger.Warn("sql execution failed",
				"attempt", attempt, "sql", stmt, "error", err)
			prevSQL, prevErr = stmt, err.Error()
			continue
		}

		e.logger.Debug("sql succeeded",
			"attempt", attempt, "rows", len(rows))
		return Result{
			Success:  true,
			Rows:     security.FilterRows(rows, e.forbidden),
			SQL:      stmt,
			Attempts: attempt,
		}
	}

	return Result{SQL: prevSQL, Err: prevErr, Attempts: e.maxRetries}
}

// collectRows runs stmt and materializes every row as column name to
// value.
func (e *SQL) collectRows(ctx context.Context, stmt string, args ...any) ([]security.Row, error) {
	rows, err := e.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	defer rows.Close()

	var out []security.Row
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		row := make(security.Row, len(fields))
		for i, f := range fields {
			if i < len(values) {
				row[f.Name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("statement timeout: %w", err)
		}
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return out, nil
}

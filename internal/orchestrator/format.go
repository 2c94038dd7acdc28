package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invenzis/brain/internal/knowledge"
	"github.com/invenzis/brain/internal/prompt"
	"github.com/invenzis/brain/internal/security"
)

// preferredColumns lead row rendering so the most useful facts come
// first; remaining columns follow alphabetically.
var preferredColumns = []string{
	"nombrecompleto", "email", "rolprincipal", "ubicacion",
	"nombreproyecto", "nombrecliente", "estado", "industria",
	"rolenproyecto",
}

// formatRows renders query results as one line per row with a stable
// column order.
func formatRows(rows []security.Row) string {
	var b strings.Builder
	for _, row := range rows {
		var pairs []string
		seen := make(map[string]struct{}, len(row))

		for _, col := range preferredColumns {
			if v, ok := row[col]; ok && v != nil {
				pairs = append(pairs, fmt.Sprintf("%s: %v", col, v))
				seen[col] = struct{}{}
			}
		}

		rest := make([]string, 0, len(row))
		for col := range row {
			if _, ok := seen[col]; !ok {
				rest = append(rest, col)
			}
		}
		sort.Strings(rest)
		for _, col := range rest {
			if v := row[col]; v != nil {
				pairs = append(pairs, fmt.Sprintf("%s: %v", col, v))
			}
		}

		b.WriteString("- ")
		b.WriteString(strings.Join(pairs, ", "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatChunks renders vector hits as quoted passages with provenance.
func formatChunks(chunks []knowledge.Result) string {
	var b strings.Builder
	for _, c := range chunks {
		fmt.Fprintf(&b, "- [%s] %s\n", c.SourceTable, c.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// field reads one column as text; missing or nil columns render empty.
func field(row security.Row, col string) string {
	if v, ok := row[col]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// disambiguationAnswer asks the user to narrow down which consultant
// they meant, listing at most disambiguationListLimit candidates.
func disambiguationAnswer(rows []security.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Encontré %d consultores que coinciden con tu búsqueda:\n\n", len(rows))

	shown := rows
	if len(shown) > disambiguationListLimit {
		shown = shown[:disambiguationListLimit]
	}
	for _, row := range shown {
		fmt.Fprintf(&b, "• **%s** (%s) - %s - %s\n",
			field(row, "nombrecompleto"), field(row, "email"),
			field(row, "rolprincipal"), field(row, "ubicacion"))
	}
	if len(rows) > len(shown) {
		fmt.Fprintf(&b, "... y %d más\n", len(rows)-len(shown))
	}

	b.WriteString("\n¿Podrías especificar a cuál te refieres? Puedes darme el email o el apellido.")
	return b.String()
}

// fallbackAnswer renders retrieved data without the model. Used when
// synthesis fails or leaks technical detail.
func fallbackAnswer(r retrieved) string {
	if r.sql.Success && len(r.sql.Rows) > 0 {
		var b strings.Builder
		b.WriteString("Esto es lo que encontré:\n\n")
		for _, row := range r.sql.Rows {
			var parts []string
			for _, col := range preferredColumns {
				if v := field(row, col); v != "" {
					parts = append(parts, v)
				}
			}
			if len(parts) == 0 {
				continue
			}
			fmt.Fprintf(&b, "• %s\n", strings.Join(parts, " - "))
		}
		return strings.TrimRight(b.String(), "\n")
	}

	if r.vector.Success && len(r.vector.Chunks) > 0 {
		var b strings.Builder
		b.WriteString("Esto es lo que encontré:\n\n")
		for _, c := range r.vector.Chunks {
			fmt.Fprintf(&b, "• %s\n", c.Text)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	return prompt.NoResultsGeneric
}

package security

import (
	"fmt"
	"regexp"
	"strings"
)

// ViolationError reports a denylisted construct found in a statement.
// Keyword names the offending construct for retry feedback; the message
// never reaches an end user.
type ViolationError struct {
	Keyword string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("SQL contains forbidden keyword: %s", e.Keyword)
}

// deniedKeywords are constructs that must never appear in a generated
// statement, in any letter case: DDL/DML verbs, privilege and execution
// verbs, file-system access, and comment delimiters used for injection.
// Matched as substrings of the uppercased statement — crude by design;
// false positives are retried, false negatives are not acceptable.
var deniedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE",
	"TRUNCATE", "GRANT", "REVOKE", "EXEC", "EXECUTE",
	"INTO OUTFILE", "LOAD_FILE", "--", "/*",
}

// ValidateSQL checks that sql satisfies the read-only contract.
// Returns a *ViolationError naming the first denylisted keyword found,
// or an error when the statement does not start with SELECT or WITH.
// Any single violation is terminal for the attempt.
func ValidateSQL(sql string) error {
	upper := strings.ToUpper(sql)

	for _, kw := range deniedKeywords {
		if strings.Contains(upper, kw) {
			return &ViolationError{Keyword: kw}
		}
	}

	stripped := strings.TrimSpace(upper)
	if !strings.HasPrefix(stripped, "SELECT") && !strings.HasPrefix(stripped, "WITH") {
		return fmt.Errorf("query must start with SELECT or WITH")
	}

	return nil
}

// Row is one result row as column name to value.
type Row = map[string]any

// FilterForbiddenFields removes each forbidden field name from the
// statement's projection list, wherever it sits: mid-list, leading,
// trailing, or qualified with a table alias. Filtering clauses are
// never touched; this runs after ValidateSQL so the statement is known
// to be read-only.
func FilterForbiddenFields(sql string, forbidden []string) string {
	for _, field := range forbidden {
		// Optionally qualified occurrence: field or alias.field.
		f := `(?:\w+\s*\.\s*)?` + regexp.QuoteMeta(field)

		rules := []struct {
			re   *regexp.Regexp
			repl string
		}{
			// mid-list: ", field," collapses to ","
			{regexp.MustCompile(`(?i),\s*` + f + `\s*,`), ","},
			// trailing: ", field FROM" collapses to " FROM"
			{regexp.MustCompile(`(?i),\s*` + f + `\s+(FROM)`), " $1"},
			// leading: "field, " is dropped
			{regexp.MustCompile(`(?i)\b` + f + `\s*,\s*`), ""},
		}
		for _, r := range rules {
			sql = r.re.ReplaceAllString(sql, r.repl)
		}
	}
	return sql
}

// FilterRows drops every column whose lowercased name is in forbidden
// from every row. Post-execution defense: applies regardless of whether
// the query-time filter caught the field.
func FilterRows(rows []Row, forbidden []string) []Row {
	denied := make(map[string]struct{}, len(forbidden))
	for _, f := range forbidden {
		denied[strings.ToLower(f)] = struct{}{}
	}

	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		clean := make(Row, len(row))
		for k, v := range row {
			if _, ok := denied[strings.ToLower(k)]; ok {
				continue
			}
			clean[k] = v
		}
		filtered = append(filtered, clean)
	}
	return filtered
}

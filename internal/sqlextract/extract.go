// Package sqlextract pulls a single executable SQL statement out of
// free-form model output.
//
// Models routinely wrap SQL in markdown fences or append narration even
// when told not to. Extract tries five strategies in fixed priority
// order and returns the first hit, normalized to one trailing semicolon
// and single-space whitespace. Each strategy is a pure func(string)
// (string, bool) so it can be tested in isolation.
package sqlextract

import (
	"fmt"
	"regexp"
	"strings"
)

// Error is returned when no strategy yields a usable statement. Snippet
// holds a bounded prefix of the raw text for logs; it must never reach
// an end user.
type Error struct {
	Snippet string
}

func (e *Error) Error() string {
	return fmt.Sprintf("no SQL statement found in model output: %q", e.Snippet)
}

const snippetLimit = 200

var (
	sqlBlockRe    = regexp.MustCompile("(?is)```sql\\s*(.*?)\\s*```")
	codeBlockRe   = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	selectSemiRe  = regexp.MustCompile(`(?is)(SELECT\s+.+?;)`)
	selectToEndRe = regexp.MustCompile(`(?is)(SELECT\s+.+?)(?:\n\n|\nEsta|\nAquí|\nLa consulta|\nEsto|$)`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// stopPatterns mark the start of trailing narration after a statement.
var stopPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\n\nEsta`),
	regexp.MustCompile(`(?i)\n\nAquí`),
	regexp.MustCompile(`(?i)\n\nLa consulta`),
	regexp.MustCompile(`(?i)\n\nEsto busca`),
	regexp.MustCompile(`(?i)\n\nExplicación`),
	regexp.MustCompile(`\n\n--`),
	regexp.MustCompile(`(?i)\nEsta consulta`),
	regexp.MustCompile(`(?i)\.\s*Esta`),
}

type strategy func(string) (string, bool)

// strategies in priority order; Extract stops at the first success.
var strategies = []strategy{
	fromSQLBlock,
	fromCodeBlock,
	selectWithSemicolon,
	selectToEnd,
	startsWithSelect,
}

// Extract returns the first SQL statement found in raw model output.
// The result is normalized and idempotent: extracting an already-clean
// statement returns it unchanged.
func Extract(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &Error{Snippet: ""}
	}

	for _, s := range strategies {
		if sql, ok := s(text); ok {
			return sql, nil
		}
	}

	snippet := text
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
	}
	return "", &Error{Snippet: snippet}
}

// fromSQLBlock extracts from a ```sql fenced block.
func fromSQLBlock(text string) (string, bool) {
	m := sqlBlockRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	sql := strings.TrimSpace(m[1])
	if !looksLikeSQL(sql) {
		return "", false
	}
	return clean(sql), true
}

// fromCodeBlock extracts from any generic fenced block whose content
// looks like SQL.
func fromCodeBlock(text string) (string, bool) {
	for _, m := range codeBlockRe.FindAllStringSubmatch(text, -1) {
		sql := strings.TrimSpace(m[1])
		if looksLikeSQL(sql) {
			return clean(sql), true
		}
	}
	return "", false
}

// selectWithSemicolon finds a semicolon-terminated SELECT anywhere in
// the text (non-greedy to the first semicolon).
func selectWithSemicolon(text string) (string, bool) {
	m := selectSemiRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return clean(strings.TrimSpace(m[1])), true
}

// selectToEnd finds a SELECT running to end of text or to a narration
// delimiter, then trims any trailing narration.
func selectToEnd(text string) (string, bool) {
	m := selectToEndRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	sql := removeTrailingText(strings.TrimSpace(m[1]))
	if !looksLikeSQL(sql) {
		return "", false
	}
	return clean(sql), true
}

// startsWithSelect handles output that begins directly with SELECT.
func startsWithSelect(text string) (string, bool) {
	if !strings.HasPrefix(strings.ToUpper(text), "SELECT") {
		return "", false
	}
	sql := removeTrailingText(text)
	if !looksLikeSQL(sql) {
		return "", false
	}
	return clean(sql), true
}

// removeTrailingText cuts the statement at the first narration marker.
func removeTrailingText(sql string) string {
	for _, re := range stopPatterns {
		if loc := re.FindStringIndex(sql); loc != nil {
			sql = sql[:loc[0]]
		}
	}
	return strings.TrimSpace(sql)
}

// looksLikeSQL reports whether text plausibly is an executable read-only
// statement: starts with SELECT or WITH, and a SELECT must have a FROM.
func looksLikeSQL(text string) bool {
	if text == "" {
		return false
	}

	upper := strings.TrimSpace(strings.ToUpper(text))

	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return false
	}
	if strings.HasPrefix(upper, "SELECT") && !strings.Contains(upper, "FROM") {
		return false
	}

	return true
}

// clean normalizes an extracted statement: trimmed, exactly one trailing
// semicolon, whitespace runs collapsed to single spaces.
func clean(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSpace(strings.TrimRight(sql, ";"))
	sql += ";"
	return whitespaceRe.ReplaceAllString(sql, " ")
}

// Package classify routes natural-language questions to an intent.
//
// Classification is pattern-first: an ordered table of Spanish regex
// rules, evaluated first-match-wins, covers the common phrasings at
// high confidence. A short name-like question falls back to a direct
// consultant lookup; everything else defaults to hybrid. An LLM
// classification path exists for when the pattern confidence is judged
// insufficient by the caller.
package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/invenzis/brain/internal/log"
	"github.com/invenzis/brain/internal/prompt"
)

// Intent is the routing category for a question.
type Intent string

const (
	IntentConsultant Intent = "consultant_search"
	IntentProject    Intent = "project_search"
	IntentClient     Intent = "client_search"
	IntentKnowledge  Intent = "knowledge_search"
	IntentHybrid     Intent = "hybrid"
	IntentUnknown    Intent = "unknown"
)

// Classification is the immutable result of classifying one question.
// Confidence is advisory; it only influences whether the caller invokes
// the LLM fallback.
type Classification struct {
	Intent     Intent
	Entities   map[string]string
	Confidence float64
}

// intentRules binds an intent to its ordered pattern list. Rule order
// is part of the contract: both the intent order and the pattern order
// within an intent are evaluated as written, first match wins.
type intentRules struct {
	intent   Intent
	patterns []*regexp.Regexp
}

var rules = []intentRules{
	{IntentConsultant, compileAll(
		`(?:qui[eé]n(?:es)?)\s+(?:es|son|trabaja)\s+([\p{L}\p{N}_]+)`,
		`(?:qui[eé]n)\s+sabe\s+(?:de|sobre)\s+(.+)`,
		`experto(?:s)?\s+en\s+(.+)`,
		`consultor(?:es|a)?\s+(?:de|en)\s+(.+)`,
		`(?:qui[eé]n)\s+conoce\s+(.+)`,
		`(?:personas?|gente)\s+(?:que\s+)?(?:sabe(?:n)?|conoce(?:n)?)\s+(.+)`,
		`(?:busco|necesito)\s+(?:a\s+)?alguien\s+(?:que|con)\s+(.+)`,
	)},
	{IntentProject, compileAll(
		`proyectos?\s+(?:de|en\s+que\s+trabaja)\s+([\p{L}\p{N}_]+)`,
		`(?:en\s+)?qu[ée]\s+(?:proyectos?|trabaja)\s+([\p{L}\p{N}_]+)`,
		`(?:equipo|asignaciones?)\s+(?:de(?:l)?)\s+(?:proyecto\s+)?(.+)`,
		`(?:qui[eé]n(?:es)?)\s+trabaja(?:n)?\s+en\s+(?:el\s+)?(?:proyecto\s+)?(.+)`,
	)},
	{IntentClient, compileAll(
		`clientes?\s+(?:de|del?\s+rubro|en)\s+(.+)`,
		`empresas?\s+(?:del?\s+(?:rubro|sector)|en)\s+(.+)`,
		`(?:trabajamos|hicimos\s+algo)\s+con\s+(.+)`,
		`(?:qu[ée])\s+(?:librer[ií]as?|bancos?|empresas?)\s+(.+)`,
		`(?:industria|sector)\s+(.+)`,
	)},
	{IntentKnowledge, compileAll(
		`lecciones?\s+(?:aprendidas?|de)\s+(.+)`,
		`problemas?\s+(?:con|en|de)\s+(.+)`,
		`(?:c[oó]mo)\s+(?:se\s+)?(?:solucion[oó]|resolvi[oó]|manej[oó])\s+(.+)`,
		`(?:qu[ée])\s+(?:hicimos|aprendimos)\s+(?:con|en|de)\s+(.+)`,
		`experiencias?\s+(?:con|en)\s+(.+)`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}

// questionWords disqualify a short question from the name heuristic.
var questionWords = map[string]struct{}{
	"que": {}, "qué": {}, "como": {}, "cómo": {}, "cuando": {}, "cuándo": {},
	"donde": {}, "dónde": {}, "por": {}, "para": {},
	"el": {}, "la": {}, "los": {}, "las": {},
}

// Completer is the generation call used by the LLM fallback path.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Classifier maps questions to intents. The zero value is not usable;
// construct with New.
type Classifier struct {
	llm    Completer // may be nil: ClassifyWithLLM degrades to unknown
	logger log.Logger
}

// New creates a Classifier. llm may be nil when no fallback is wanted.
func New(llm Completer, logger log.Logger) *Classifier {
	return &Classifier{llm: llm, logger: logger}
}

// Classify maps a question to an intent using the pattern table, the
// name heuristic, then the hybrid default. Pure function of the input.
func (c *Classifier) Classify(question string) Classification {
	lower := strings.ToLower(strings.TrimSpace(question))

	for _, group := range rules {
		for _, re := range group.patterns {
			m := re.FindStringSubmatch(lower)
			if m == nil {
				continue
			}
			c.logger.Debug("classified via pattern",
				"intent", group.intent, "pattern", re.String())
			return Classification{
				Intent:     group.intent,
				Entities:   extractEntities(re, m),
				Confidence: 0.9,
			}
		}
	}

	if looksLikeName(question) {
		return Classification{
			Intent:     IntentConsultant,
			Entities:   map[string]string{"name": question},
			Confidence: 0.7,
		}
	}

	c.logger.Debug("no pattern match, defaulting to hybrid")
	return Classification{
		Intent:     IntentHybrid,
		Entities:   map[string]string{"raw_question": question},
		Confidence: 0.5,
	}
}

// labelToIntent maps the closed label set the classification prompt
// allows. Anything else is unknown.
var labelToIntent = map[string]Intent{
	"CONSULTANT_SEARCH": IntentConsultant,
	"PROJECT_SEARCH":    IntentProject,
	"CLIENT_SEARCH":     IntentClient,
	"KNOWLEDGE_SEARCH":  IntentKnowledge,
	"HYBRID":            IntentHybrid,
}

// ClassifyWithLLM asks the model for a category. Slower but handles
// phrasings the pattern table misses. Any malformed or unrecognized
// response maps to unknown; so does a missing model or a call failure.
func (c *Classifier) ClassifyWithLLM(ctx context.Context, question string) (Classification, error) {
	if c.llm == nil {
		return Classification{Intent: IntentUnknown}, nil
	}

	resp, err := c.llm.Complete(ctx, prompt.Classification(question), 0)
	if err != nil {
		c.logger.Warn("llm classification failed", "error", err)
		return Classification{Intent: IntentUnknown}, fmt.Errorf("llm classification: %w", err)
	}

	label := strings.ToUpper(strings.TrimSpace(resp))
	intent, ok := labelToIntent[label]
	if !ok {
		c.logger.Debug("llm returned unrecognized label", "label", label)
		return Classification{
			Intent:   IntentUnknown,
			Entities: map[string]string{"raw_question": question},
		}, nil
	}

	return Classification{
		Intent:     intent,
		Entities:   map[string]string{"raw_question": question},
		Confidence: 0.8,
	}, nil
}

// extractEntities pulls named groups when present, otherwise the first
// positional group.
func extractEntities(re *regexp.Regexp, match []string) map[string]string {
	entities := make(map[string]string)

	named := false
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(match) {
			continue
		}
		entities[name] = strings.TrimSpace(match[i])
		named = true
	}
	if !named && len(match) > 1 {
		entities["value"] = strings.TrimSpace(match[1])
	}

	return entities
}

// looksLikeName reports whether a question is a bare person lookup:
// at most three tokens, none of them interrogatives or articles, and at
// least one capitalized token or an "@" (email fragment).
func looksLikeName(question string) bool {
	words := strings.Fields(strings.TrimSpace(question))
	if len(words) == 0 || len(words) > 3 {
		return false
	}

	for _, w := range words {
		if _, ok := questionWords[strings.ToLower(w)]; ok {
			return false
		}
	}

	if strings.Contains(question, "@") {
		return true
	}
	for _, w := range words {
		r := []rune(w)
		if len(r) > 0 && unicode.IsUpper(r[0]) {
			return true
		}
	}
	return false
}

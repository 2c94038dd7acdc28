// Package orchestrator runs the full question pipeline: sanitize,
// classify, retrieve, disambiguate, synthesize, remember.
//
// The pipeline never lets a technical failure reach the user. Any
// unrecoverable error collapses to one generic Spanish message, and
// only clean, successful exchanges enter conversation memory.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/invenzis/brain/internal/classify"
	"github.com/invenzis/brain/internal/engine"
	"github.com/invenzis/brain/internal/log"
	"github.com/invenzis/brain/internal/prompt"
	"github.com/invenzis/brain/internal/security"
)

// llmFallbackBelow is the pattern confidence under which the LLM
// classifier gets a chance to do better.
const llmFallbackBelow = 0.7

// disambiguationListLimit caps how many candidates a disambiguation
// answer shows.
const disambiguationListLimit = 10

// contextExchanges is how many prior question/answer pairs feed the
// synthesis prompt.
const contextExchanges = 5

// Input is one question with its conversation identity.
type Input struct {
	Question       string
	ConversationID string
	UserName       string
	UserEmail      string
}

// Output is the user-facing result. Sources describe where the answer
// came from, never how it was computed.
type Output struct {
	Answer  string
	Sources []string
	Intent  string
}

// SQLEngine answers questions via generated SQL.
type SQLEngine interface {
	Execute(ctx context.Context, question string) engine.Result
}

// VectorEngine answers questions via vector search.
type VectorEngine interface {
	Search(ctx context.Context, question string) engine.VectorResult
}

// Classifier routes questions to intents.
type Classifier interface {
	Classify(question string) classify.Classification
	ClassifyWithLLM(ctx context.Context, question string) (classify.Classification, error)
}

// Completer is the synthesis generation call.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// Memory is the conversation history the pipeline reads and appends to.
type Memory interface {
	Context(ctx context.Context, conversationID string, maxExchanges int) string
	SaveExchange(ctx context.Context, conversationID, question, answer string, wasSuccessful bool) (bool, error)
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	classifier Classifier
	sql        SQLEngine
	vector     VectorEngine
	llm        Completer
	memory     Memory
	threshold  int
	logger     log.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithDisambiguationThreshold sets how many consultant matches trigger
// a clarifying question instead of an answer.
func WithDisambiguationThreshold(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.threshold = n
		}
	}
}

// New creates an Orchestrator. Default disambiguation threshold: five.
func New(classifier Classifier, sql SQLEngine, vector VectorEngine, llm Completer, memory Memory, logger log.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier: classifier,
		sql:        sql,
		vector:     vector,
		llm:        llm,
		memory:     memory,
		threshold:  5,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process answers one question. It never returns an error: every
// failure path degrades to the generic no-results answer with intent
// "error".
func (o *Orchestrator) Process(ctx context.Context, in Input) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic recovered", "panic", r)
			out = Output{Answer: prompt.NoResultsGeneric, Sources: []string{}, Intent: "error"}
		}
	}()

	question := security.StripSystemPrompt(in.Question)
	if question == "" {
		return Output{Answer: prompt.NoResultsGeneric, Sources: []string{}, Intent: "error"}
	}

	cls := o.classifier.Classify(question)
	if cls.Confidence < llmFallbackBelow {
		if llmCls, err := o.classifier.ClassifyWithLLM(ctx, question); err == nil && llmCls.Intent != classify.IntentUnknown {
			o.logger.Debug("llm classification override",
				"pattern_intent", cls.Intent, "llm_intent", llmCls.Intent)
			cls = llmCls
		}
	}

	o.logger.Info("processing question",
		"conversation_id", in.ConversationID,
		"intent", cls.Intent, "confidence", cls.Confidence)

	retrieved := o.retrieve(ctx, cls.Intent, question)

	if cls.Intent == classify.IntentConsultant && retrieved.sql.Success && len(retrieved.sql.Rows) > o.threshold {
		answer := disambiguationAnswer(retrieved.sql.Rows)
		// A clarifying question is not an answer; keep it out of memory
		// so the follow-up question is interpreted fresh.
		return Output{
			Answer:  answer,
			Sources: []string{sqlSource(cls.Intent)},
			Intent:  string(cls.Intent),
		}
	}

	formatted, sources := o.assemble(cls.Intent, retrieved)
	if formatted == "" {
		return Output{Answer: prompt.NoResultsGeneric, Sources: []string{}, Intent: string(cls.Intent)}
	}

	answer := o.synthesize(ctx, in, question, formatted, retrieved)

	if _, err := o.memory.SaveExchange(ctx, in.ConversationID, question, answer, true); err != nil {
		o.logger.Warn("saving exchange failed",
			"conversation_id", in.ConversationID, "error", err)
	}

	return Output{Answer: answer, Sources: sources, Intent: string(cls.Intent)}
}

// retrieved bundles the results of the retrieval stage. Engines that
// did not run leave their zero value.
type retrieved struct {
	sql    engine.Result
	vector engine.VectorResult
}

// retrieve dispatches to the engines the intent calls for. Hybrid and
// unknown fan out to both concurrently.
func (o *Orchestrator) retrieve(ctx context.Context, intent classify.Intent, question string) retrieved {
	var r retrieved

	switch intent {
	case classify.IntentConsultant, classify.IntentProject, classify.IntentClient:
		r.sql = o.sql.Execute(ctx, question)
	case classify.IntentKnowledge:
		r.vector = o.vector.Search(ctx, question)
	default:
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			r.sql = o.sql.Execute(gctx, question)
			return nil
		})
		g.Go(func() error {
			r.vector = o.vector.Search(gctx, question)
			return nil
		})
		_ = g.Wait()
	}

	return r
}

// assemble renders the retrieved data for the synthesis prompt and
// builds the source citations. Empty output means nothing usable came
// back from any engine.
func (o *Orchestrator) assemble(intent classify.Intent, r retrieved) (string, []string) {
	var parts []string
	var sources []string

	if r.sql.Success && len(r.sql.Rows) > 0 {
		parts = append(parts, formatRows(r.sql.Rows))
		sources = append(sources, sqlSource(intent))
	}
	if r.vector.Success && len(r.vector.Chunks) > 0 {
		parts = append(parts, formatChunks(r.vector.Chunks))
		for _, c := range r.vector.Chunks {
			sources = append(sources, fmt.Sprintf("Fuente: %s | ID: %s", c.SourceTable, c.SourceID))
		}
	}

	return strings.Join(parts, "\n\n"), sources
}

// synthesize turns the retrieved data into prose. A contaminated
// synthesis falls back to deterministic formatting; so does any model
// failure.
func (o *Orchestrator) synthesize(ctx context.Context, in Input, question, formatted string, r retrieved) string {
	enriched := prompt.Condense(o.memory.Context(ctx, in.ConversationID, contextExchanges), question)
	if in.UserName != "" {
		enriched += fmt.Sprintf("\n(Pregunta hecha por %s)", in.UserName)
	}

	answer, err := o.llm.Complete(ctx, prompt.Synthesis(enriched, formatted), 0)
	if err != nil {
		o.logger.Warn("synthesis failed, using deterministic fallback", "error", err)
		return fallbackAnswer(r)
	}
	answer = strings.TrimSpace(answer)

	if answer == "" || synthesisContaminated(answer) {
		o.logger.Warn("synthesis contaminated, using deterministic fallback")
		return fallbackAnswer(r)
	}

	return answer
}

// synthesisIndicators flag technical leakage at the start of a
// synthesized answer. Only the opening of the text is scanned: a
// legitimate answer may mention these words deep in prose, but an
// answer that opens with them is narrating the machinery.
var synthesisIndicators = []string{
	"error", "sql", "select", "from consultores", "where", "```",
}

const synthesisScanWindow = 150

func synthesisContaminated(answer string) bool {
	window := strings.ToLower(answer)
	if r := []rune(window); len(r) > synthesisScanWindow {
		window = string(r[:synthesisScanWindow])
	}
	for _, indicator := range synthesisIndicators {
		if strings.Contains(window, indicator) {
			return true
		}
	}
	return false
}

func sqlSource(intent classify.Intent) string {
	return fmt.Sprintf("Fuente: Base de datos | Tipo: %s", intent)
}

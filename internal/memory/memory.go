// Package memory keeps per-conversation message history with strict
// hygiene: technical artifacts never enter the stored history, and
// anything that slipped in earlier is filtered out on read and can be
// purged in place.
//
// The hygiene rules exist because stored history is replayed into
// prompts. A saved error message or SQL fragment contaminates every
// later generation in that conversation, so exchanges are screened at
// save time, at read time, and on demand.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/invenzis/brain/internal/log"
	"github.com/invenzis/brain/internal/security"
)

// Roles for stored messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxMessages bounds stored history per conversation. Oldest messages
// drop first.
const MaxMessages = 10

// contextAnswerLimit truncates assistant turns when rendering prompt
// context; full answers stay in storage.
const contextAnswerLimit = 300

// Message is one stored conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// errorIndicators mark content as a technical artifact rather than a
// real answer. Matched case-insensitively as substrings.
var errorIndicators = []string{
	"error al intentar",
	"consulta sql",
	"```sql",
	"select ",
	"from consultores",
	"where ",
	"parece que hubo",
	"no encontré información",
	"hubo un problema",
	"sql debido",
	"intentar ejecutar",
}

// contaminated reports whether content carries any technical artifact.
func contaminated(content string) bool {
	lower := strings.ToLower(content)
	for _, indicator := range errorIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ChatStore persists conversation histories. A missing conversation
// returns an empty slice, not an error.
type ChatStore interface {
	GetMessages(ctx context.Context, conversationID string) ([]Message, error)
	SetMessages(ctx context.Context, conversationID string, messages []Message) error
}

// Manager applies the hygiene rules over a ChatStore.
type Manager struct {
	store  ChatStore
	logger log.Logger
}

// NewManager creates a Manager over store.
func NewManager(store ChatStore, logger log.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// SaveExchange appends a question/answer pair to the conversation and
// reports whether the pair was stored. The pair is refused outright
// when the exchange failed, when either side carries a leaked
// system-prompt marker, or when the answer reads like a technical
// artifact. Refusal is not an error; the conversation simply does not
// remember the exchange.
func (m *Manager) SaveExchange(ctx context.Context, conversationID, question, answer string, wasSuccessful bool) (bool, error) {
	if !wasSuccessful {
		m.logger.Debug("exchange not saved: failed", "conversation_id", conversationID)
		return false, nil
	}
	if security.ContainsSystemPrompt(question) || security.ContainsSystemPrompt(answer) {
		m.logger.Warn("exchange not saved: system prompt marker", "conversation_id", conversationID)
		return false, nil
	}
	if contaminated(answer) {
		m.logger.Debug("exchange not saved: technical artifact", "conversation_id", conversationID)
		return false, nil
	}

	messages, err := m.store.GetMessages(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("loading conversation %q: %w", conversationID, err)
	}

	now := time.Now()
	messages = append(messages,
		Message{Role: RoleUser, Content: question, Timestamp: now},
		Message{Role: RoleAssistant, Content: answer, Timestamp: now},
	)
	if len(messages) > MaxMessages {
		messages = messages[len(messages)-MaxMessages:]
	}

	if err := m.store.SetMessages(ctx, conversationID, messages); err != nil {
		return false, fmt.Errorf("saving conversation %q: %w", conversationID, err)
	}
	return true, nil
}

// Context renders the conversation as prompt context: one line per
// message, contaminated messages skipped, assistant turns truncated,
// capped to the newest maxExchanges question/answer pairs
// (maxExchanges < 1 means no cap beyond what storage holds).
// Any read failure degrades to empty context; a broken memory store
// must never block answering.
func (m *Manager) Context(ctx context.Context, conversationID string, maxExchanges int) string {
	messages, err := m.store.GetMessages(ctx, conversationID)
	if err != nil {
		m.logger.Warn("conversation context unavailable",
			"conversation_id", conversationID, "error", err)
		return ""
	}

	clean := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if contaminated(msg.Content) {
			continue
		}
		clean = append(clean, msg)
	}
	if maxExchanges > 0 && len(clean) > 2*maxExchanges {
		clean = clean[len(clean)-2*maxExchanges:]
	}

	var lines []string
	for _, msg := range clean {
		switch msg.Role {
		case RoleUser:
			lines = append(lines, "Usuario: "+msg.Content)
		case RoleAssistant:
			content := msg.Content
			if r := []rune(content); len(r) > contextAnswerLimit {
				content = string(r[:contextAnswerLimit]) + "..."
			}
			lines = append(lines, "Asistente: "+content)
		}
	}

	return strings.Join(lines, "\n")
}

// Clean rewrites the stored history without contaminated messages and
// returns how many were removed.
func (m *Manager) Clean(ctx context.Context, conversationID string) (int, error) {
	messages, err := m.store.GetMessages(ctx, conversationID)
	if err != nil {
		return 0, fmt.Errorf("loading conversation %q: %w", conversationID, err)
	}

	clean := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if contaminated(msg.Content) {
			continue
		}
		clean = append(clean, msg)
	}

	removed := len(messages) - len(clean)
	if removed == 0 {
		return 0, nil
	}

	if err := m.store.SetMessages(ctx, conversationID, clean); err != nil {
		return 0, fmt.Errorf("saving conversation %q: %w", conversationID, err)
	}

	m.logger.Info("cleaned conversation",
		"conversation_id", conversationID, "removed", removed)
	return removed, nil
}

// Clear empties the conversation.
func (m *Manager) Clear(ctx context.Context, conversationID string) error {
	if err := m.store.SetMessages(ctx, conversationID, nil); err != nil {
		return fmt.Errorf("clearing conversation %q: %w", conversationID, err)
	}
	return nil
}

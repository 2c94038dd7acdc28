package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the slice of the pgx pool surface the store uses.
// *pgxpool.Pool satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists conversations in the conversaciones table,
// one row per conversation with the full history as jsonb.
type PostgresStore struct {
	db Querier
}

// NewPostgresStore creates a PostgresStore over db.
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetMessages loads a conversation's history. Unknown conversations
// return an empty history.
func (s *PostgresStore) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT mensajes FROM conversaciones WHERE conversation_id = $1`,
		conversationID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading messages for %q: %w", conversationID, err)
	}

	var messages []Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("decoding messages for %q: %w", conversationID, err)
	}
	return messages, nil
}

// SetMessages replaces a conversation's history.
func (s *PostgresStore) SetMessages(ctx context.Context, conversationID string, messages []Message) error {
	if messages == nil {
		messages = []Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encoding messages for %q: %w", conversationID, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO conversaciones (conversation_id, mensajes, actualizado_en)
		VALUES ($1, $2, now())
		ON CONFLICT (conversation_id) DO UPDATE SET
			mensajes = EXCLUDED.mensajes,
			actualizado_en = now()`,
		conversationID, raw)
	if err != nil {
		return fmt.Errorf("saving messages for %q: %w", conversationID, err)
	}
	return nil
}

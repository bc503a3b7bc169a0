package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/database"
)

// Roles a stored message may have
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a tool invocation requested by the assistant
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of a conversation
type Message struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"sessionId"`
	Seq        int        `json:"seq"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type messageRow struct {
	ID         string         `db:"id"`
	SessionID  string         `db:"session_id"`
	Seq        int            `db:"seq"`
	Role       string         `db:"role"`
	Content    string         `db:"content"`
	ToolCalls  sql.NullString `db:"tool_calls"`
	ToolCallID sql.NullString `db:"tool_call_id"`
	CreatedAt  time.Time      `db:"created_at"`
}

// Store reads and writes chat history
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore creates a history store.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func validSession(owner, session string) error {
	if strings.TrimSpace(owner) == "" {
		return apperrors.Auth("No autenticado")
	}
	if strings.TrimSpace(session) == "" {
		return apperrors.Validation("sessionId", "sessionId es requerido")
	}
	return nil
}

// Append stores msgs at the end of the session, in order.
func (s *Store) Append(ctx context.Context, owner, session string, msgs ...Message) error {
	if err := validSession(owner, session); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last int
	if err := tx.GetContext(ctx, &last, tx.Rebind(`SELECT COALESCE(MAX(seq), 0) FROM chat_messages WHERE owner_id = ? AND session_id = ?`),
		owner, session); err != nil {
		return fmt.Errorf("failed to read session position: %w", err)
	}

	now := s.now().UTC()
	for i, m := range msgs {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		default:
			return apperrors.Validationf("role", "Rol inválido %q", m.Role)
		}

		var toolCalls, toolCallID any
		if len(m.ToolCalls) > 0 {
			raw, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to encode tool calls: %w", err)
			}
			toolCalls = string(raw)
		}
		if m.ToolCallID != "" {
			toolCallID = m.ToolCallID
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO chat_messages (id, owner_id, session_id, seq, role, content, tool_calls, tool_call_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			uuid.NewString(), owner, session, last+i+1, m.Role, m.Content, toolCalls, toolCallID, now); err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}
	return nil
}

// List returns the live messages of a session in order.
func (s *Store) List(ctx context.Context, owner, session string) ([]Message, error) {
	if err := validSession(owner, session); err != nil {
		return nil, err
	}

	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, session_id, seq, role, content, tool_calls, tool_call_id, created_at
FROM chat_messages WHERE owner_id = ? AND session_id = ? AND deleted_at IS NULL ORDER BY seq ASC`), owner, session); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		m := Message{
			ID:         r.ID,
			SessionID:  r.SessionID,
			Seq:        r.Seq,
			Role:       r.Role,
			Content:    r.Content,
			ToolCallID: r.ToolCallID.String,
			CreatedAt:  r.CreatedAt,
		}
		if r.ToolCalls.Valid && r.ToolCalls.String != "" {
			if err := json.Unmarshal([]byte(r.ToolCalls.String), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to decode tool calls of message %s: %w", r.ID, err)
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteSession soft-deletes every message of a session and reports how many
// were removed.
func (s *Store) DeleteSession(ctx context.Context, owner, session string) (int, error) {
	if err := validSession(owner, session); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE chat_messages SET deleted_at = ?
WHERE owner_id = ? AND session_id = ? AND deleted_at IS NULL`), s.now().UTC(), owner, session)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	return int(n), nil
}

// Purge permanently removes messages soft-deleted before cutoff.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM chat_messages WHERE deleted_at IS NOT NULL AND deleted_at < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge messages: %w", err)
	}
	return res.RowsAffected()
}

// Package assistant provides the assistant's conversation memory and the
// tool-execution layer shared by the MCP server.
//
// Conversation history lives in a local SQLite database, separate from the
// Postgres domain data: it is per-deployment scratch state, not tenant data,
// and survives restarts without burdening the primary store.
package assistant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrConversationNotFound reports an unknown conversation id.
var ErrConversationNotFound = errors.New("assistant: conversation not found")

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ValidRole reports whether r is a known turn role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Conversation is one assistant session.
type Conversation struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	CreatedAt   time.Time `json:"created_at"`
}

// Turn is one utterance within a conversation.
type Turn struct {
	ID             int64     `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists conversations in SQLite.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS conversations (
    id           TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL,
    user_id      TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    role            TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'tool')),
    content         TEXT NOT NULL,
    created_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS turns_conversation_idx ON turns (conversation_id, id);
`

// NewStore opens (and initializes) the conversation database at path.
// Use ":memory:" for an ephemeral store.
func NewStore(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if dsn != ":memory:" {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("assistant: open store: %w", err)
	}
	// modernc sqlite is single-writer; avoid SQLITE_BUSY under concurrency.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, storeSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("assistant: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConversation starts a new conversation.
func (s *Store) CreateConversation(ctx context.Context, workspaceID, userID uuid.UUID, title string) (Conversation, error) {
	c := Conversation{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Title:       title,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, workspace_id, user_id, title, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), c.WorkspaceID.String(), c.UserID.String(), c.Title, c.CreatedAt.Unix(),
	)
	if err != nil {
		return Conversation{}, fmt.Errorf("assistant: create conversation: %w", err)
	}
	return c, nil
}

// GetConversation returns one conversation.
func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, user_id, title, created_at FROM conversations WHERE id = ?`,
		id.String(),
	)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	return c, err
}

// ListConversations returns a user's conversations, newest first.
func (s *Store) ListConversations(ctx context.Context, workspaceID, userID uuid.UUID, limit int) ([]Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, user_id, title, created_at
		 FROM conversations
		 WHERE workspace_id = ? AND user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		workspaceID.String(), userID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("assistant: list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendTurn records one utterance. The conversation must exist.
func (s *Store) AppendTurn(ctx context.Context, conversationID uuid.UUID, role Role, content string) (Turn, error) {
	if !ValidRole(role) {
		return Turn{}, fmt.Errorf("assistant: unknown role %q", role)
	}
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return Turn{}, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID.String(), string(role), content, now.Unix(),
	)
	if err != nil {
		return Turn{}, fmt.Errorf("assistant: append turn: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Turn{}, fmt.Errorf("assistant: append turn: %w", err)
	}
	return Turn{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

// History returns a conversation's turns in order. limit caps the most
// recent turns returned; zero means all.
func (s *Store) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]Turn, error) {
	query := `SELECT id, conversation_id, role, content, created_at
	          FROM turns WHERE conversation_id = ? ORDER BY id ASC`
	args := []any{conversationID.String()}
	if limit > 0 {
		// Most recent N, still returned oldest-first.
		query = `SELECT id, conversation_id, role, content, created_at FROM (
		             SELECT id, conversation_id, role, content, created_at
		             FROM turns WHERE conversation_id = ? ORDER BY id DESC LIMIT ?
		         ) ORDER BY id ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("assistant: history: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var (
			t       Turn
			id      string
			role    string
			created int64
		)
		if err := rows.Scan(&t.ID, &id, &role, &t.Content, &created); err != nil {
			return nil, fmt.Errorf("assistant: history: %w", err)
		}
		cid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("assistant: history: %w", err)
		}
		t.ConversationID = cid
		t.Role = Role(role)
		t.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteConversation removes a conversation and its turns.
func (s *Store) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("assistant: delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("assistant: delete conversation: %w", err)
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (Conversation, error) {
	var (
		c       Conversation
		id, ws  string
		user    string
		created int64
	)
	if err := row.Scan(&id, &ws, &user, &c.Title, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversation{}, err
		}
		return Conversation{}, fmt.Errorf("assistant: scan conversation: %w", err)
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return Conversation{}, fmt.Errorf("assistant: scan conversation: %w", err)
	}
	if c.WorkspaceID, err = uuid.Parse(ws); err != nil {
		return Conversation{}, fmt.Errorf("assistant: scan conversation: %w", err)
	}
	if c.UserID, err = uuid.Parse(user); err != nil {
		return Conversation{}, fmt.Errorf("assistant: scan conversation: %w", err)
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

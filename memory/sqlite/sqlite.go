// Package sqlite provides a durable memory.Store backed by SQLite. The
// database runs in WAL mode with a busy timeout so multiple agents can append
// concurrently; all writes additionally serialize through a store-level mutex
// so a single message write never interleaves with another.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ssrobins/bot-o-clock/internal/util"
	"github.com/ssrobins/bot-o-clock/memory"
)

// Store manages the conversation history database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewStore creates or opens the history database at dbPath, creating parent
// directories as needed.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// initSchema creates the database schema.
func (s *Store) initSchema() error {
	schema := `
	-- Conversation spans, one open (ended_at NULL) per agent at a time
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		agent_name TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		title TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_agent ON conversations(agent_name);

	-- Append-only message log; rowid order is insertion order
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		agent_name TEXT,
		timestamp DATETIME NOT NULL,
		metadata_json TEXT,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_messages_agent ON messages(agent_name);

	-- Opaque per-agent state blobs
	CREATE TABLE IF NOT EXISTS agent_state (
		agent_name TEXT PRIMARY KEY,
		state_json TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// OpenConversation closes any open conversation for the agent, inserts a
// fresh row and returns its id.
func (s *Store) OpenConversation(ctx context.Context, agentName, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", &memory.StorageError{Op: "open conversation", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET ended_at = ? WHERE agent_name = ? AND ended_at IS NULL`,
		now, agentName,
	); err != nil {
		return "", &memory.StorageError{Op: "open conversation", Err: err}
	}

	id := util.NewID()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, agent_name, started_at, title) VALUES (?, ?, ?, ?)`,
		id, agentName, now, nullable(title),
	); err != nil {
		return "", &memory.StorageError{Op: "open conversation", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return "", &memory.StorageError{Op: "open conversation", Err: err}
	}
	return id, nil
}

// CloseConversation marks a conversation as ended. Closing an already closed
// conversation is a no-op.
func (s *Store) CloseConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		time.Now().UTC(), conversationID,
	)
	if err != nil {
		return &memory.StorageError{Op: "close conversation", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either already closed or unknown; only the latter is an error.
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM conversations WHERE id = ?`, conversationID,
		).Scan(&exists)
		if err != nil {
			return &memory.StorageError{Op: "close conversation", Err: err}
		}
		if exists == 0 {
			return &memory.NotFoundError{Kind: "conversation", ID: conversationID}
		}
	}
	return nil
}

// AppendMessage durably appends a message to a conversation and returns the
// store-assigned id.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, msg memory.Message) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversations WHERE id = ?`, conversationID,
	).Scan(&exists); err != nil {
		return 0, &memory.StorageError{Op: "append message", Err: err}
	}
	if exists == 0 {
		return 0, &memory.NotFoundError{Kind: "conversation", ID: conversationID}
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var metadataJSON any
	if len(msg.Metadata) > 0 {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return 0, &memory.StorageError{Op: "append message", Err: err}
		}
		metadataJSON = string(raw)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, agent_name, timestamp, metadata_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, msg.Role, msg.Content, nullable(msg.AgentName), ts, metadataJSON,
	)
	if err != nil {
		return 0, &memory.StorageError{Op: "append message", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &memory.StorageError{Op: "append message", Err: err}
	}
	return id, nil
}

// Messages returns all messages of a conversation in insertion order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]memory.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversations WHERE id = ?`, conversationID,
	).Scan(&exists); err != nil {
		return nil, &memory.StorageError{Op: "read messages", Err: err}
	}
	if exists == 0 {
		return nil, &memory.NotFoundError{Kind: "conversation", ID: conversationID}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, agent_name, timestamp, metadata_json
		 FROM messages WHERE conversation_id = ? ORDER BY id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, &memory.StorageError{Op: "read messages", Err: err}
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentMessages returns the last limit messages across the agent's
// conversations, oldest-first. Ordering follows the autoincrement id so
// insertion order wins over tied timestamps.
func (s *Store) RecentMessages(ctx context.Context, agentName string, limit int) ([]memory.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.conversation_id, m.role, m.content, m.agent_name, m.timestamp, m.metadata_json
		 FROM messages m
		 JOIN conversations c ON c.id = m.conversation_id
		 WHERE c.agent_name = ?
		 ORDER BY m.id DESC
		 LIMIT ?`,
		agentName, limit,
	)
	if err != nil {
		return nil, &memory.StorageError{Op: "read recent messages", Err: err}
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Query returned newest-first; flip to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Conversations returns the agent's conversations, most recently started first.
func (s *Store) Conversations(ctx context.Context, agentName string, limit int) ([]memory.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, agent_name, started_at, ended_at, title FROM conversations`
	var args []any
	if agentName != "" {
		query += ` WHERE agent_name = ?`
		args = append(args, agentName)
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &memory.StorageError{Op: "read conversations", Err: err}
	}
	defer rows.Close()

	var out []memory.Conversation
	for rows.Next() {
		var c memory.Conversation
		var endedAt sql.NullTime
		var title sql.NullString
		if err := rows.Scan(&c.ID, &c.AgentName, &c.StartedAt, &endedAt, &title); err != nil {
			return nil, &memory.StorageError{Op: "read conversations", Err: err}
		}
		if endedAt.Valid {
			t := endedAt.Time
			c.EndedAt = &t
		}
		c.Title = title.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &memory.StorageError{Op: "read conversations", Err: err}
	}
	return out, nil
}

// OpenConversationID returns the id of the agent's currently open conversation.
func (s *Store) OpenConversationID(ctx context.Context, agentName string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE agent_name = ? AND ended_at IS NULL`,
		agentName,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &memory.NotFoundError{Kind: "conversation", ID: agentName}
	}
	if err != nil {
		return "", &memory.StorageError{Op: "read open conversation", Err: err}
	}
	return id, nil
}

// SaveAgentState upserts an opaque state blob for the agent.
func (s *Store) SaveAgentState(ctx context.Context, agentName string, state map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(state)
	if err != nil {
		return &memory.StorageError{Op: "save agent state", Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agent_state (agent_name, state_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(agent_name) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at`,
		agentName, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return &memory.StorageError{Op: "save agent state", Err: err}
	}
	return nil
}

// LoadAgentState returns the previously saved state blob.
func (s *Store) LoadAgentState(ctx context.Context, agentName string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM agent_state WHERE agent_name = ?`, agentName,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &memory.NotFoundError{Kind: "agent state", ID: agentName}
	}
	if err != nil {
		return nil, &memory.StorageError{Op: "load agent state", Err: err}
	}
	var state map[string]any
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, &memory.StorageError{Op: "load agent state", Err: err}
	}
	return state, nil
}

// PurgeAgent deletes all conversations, messages and state for an agent.
func (s *Store) PurgeAgent(ctx context.Context, agentName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &memory.StorageError{Op: "purge agent", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE agent_name = ?)`,
		agentName,
	); err != nil {
		return &memory.StorageError{Op: "purge agent", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE agent_name = ?`, agentName); err != nil {
		return &memory.StorageError{Op: "purge agent", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM agent_state WHERE agent_name = ?`, agentName); err != nil {
		return &memory.StorageError{Op: "purge agent", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &memory.StorageError{Op: "purge agent", Err: err}
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]memory.Message, error) {
	var out []memory.Message
	for rows.Next() {
		var m memory.Message
		var agentName sql.NullString
		var metadataJSON sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &agentName, &m.Timestamp, &metadataJSON); err != nil {
			return nil, &memory.StorageError{Op: "scan message", Err: err}
		}
		m.AgentName = agentName.String
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &m.Metadata); err != nil {
				return nil, &memory.StorageError{Op: "scan message", Err: err}
			}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &memory.StorageError{Op: "scan message", Err: err}
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

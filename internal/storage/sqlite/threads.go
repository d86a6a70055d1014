// ABOUTME: Conversation thread storage operations for SQLite
// ABOUTME: Persists per-thread message history and JSON working memory
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/websiTester/ba-agent-sub000/internal/models"
)

// ThreadStore handles thread, message and working memory persistence
type ThreadStore struct {
	db *DB
}

// NewThreadStore creates a new ThreadStore
func NewThreadStore(db *DB) *ThreadStore {
	return &ThreadStore{db: db}
}

// EnsureThread creates the thread row if it does not exist yet
func (s *ThreadStore) EnsureThread(ctx context.Context, key models.ThreadKey) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (agent_key, thread_id, resource_id, working_memory, created_at, updated_at)
		VALUES (?, ?, ?, '{}', ?, ?)
		ON CONFLICT(agent_key, thread_id, resource_id) DO NOTHING
	`, key.AgentKey, key.ThreadID, key.ResourceID, now, now)
	if err != nil {
		return fmt.Errorf("failed to ensure thread %s: %w", key, err)
	}
	return nil
}

// AppendMessage appends one message to a thread
func (s *ThreadStore) AppendMessage(ctx context.Context, key models.ThreadKey, msg models.Message) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (agent_key, thread_id, resource_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, key.AgentKey, key.ThreadID, key.ResourceID, string(msg.Role), msg.Content, msg.CreatedAt); err != nil {
			return fmt.Errorf("failed to append message to %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE threads SET updated_at = ?
			WHERE agent_key = ? AND thread_id = ? AND resource_id = ?
		`, msg.CreatedAt, key.AgentKey, key.ThreadID, key.ResourceID); err != nil {
			return fmt.Errorf("failed to touch thread %s: %w", key, err)
		}
		return nil
	})
}

// RecentMessages returns at most limit of the newest messages in chronological order
func (s *ThreadStore) RecentMessages(ctx context.Context, key models.ThreadKey, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM (
			SELECT seq, role, content, created_at
			FROM messages
			WHERE agent_key = ? AND thread_id = ? AND resource_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`, key.AgentKey, key.ThreadID, key.ResourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to recall messages for %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows)
}

// GetWorkingMemory returns the working memory snapshot; zero value when the thread is new
func (s *ThreadStore) GetWorkingMemory(ctx context.Context, key models.ThreadKey) (models.WorkingMemory, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT working_memory FROM threads
		WHERE agent_key = ? AND thread_id = ? AND resource_id = ?
	`, key.AgentKey, key.ThreadID, key.ResourceID).Scan(&raw)

	var wm models.WorkingMemory
	if err == sql.ErrNoRows {
		return wm, nil
	}
	if err != nil {
		return wm, fmt.Errorf("failed to get working memory for %s: %w", key, err)
	}
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &wm); err != nil {
			return models.WorkingMemory{}, fmt.Errorf("failed to decode working memory for %s: %w", key, err)
		}
	}
	return wm, nil
}

// SaveWorkingMemory replaces the working memory snapshot
func (s *ThreadStore) SaveWorkingMemory(ctx context.Context, key models.ThreadKey, wm models.WorkingMemory) error {
	data, err := json.Marshal(wm)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE threads SET working_memory = ?, updated_at = ?
		WHERE agent_key = ? AND thread_id = ? AND resource_id = ?
	`, string(data), time.Now().UTC(), key.AgentKey, key.ThreadID, key.ResourceID)
	if err != nil {
		return fmt.Errorf("failed to save working memory for %s: %w", key, err)
	}
	return nil
}

// GetThread loads a thread with its full history; returns nil, nil when absent
func (s *ThreadStore) GetThread(ctx context.Context, key models.ThreadKey) (*models.Thread, error) {
	var (
		thread models.Thread
		raw    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT agent_key, thread_id, resource_id, working_memory, created_at, updated_at
		FROM threads
		WHERE agent_key = ? AND thread_id = ? AND resource_id = ?
	`, key.AgentKey, key.ThreadID, key.ResourceID).Scan(&thread.AgentKey, &thread.ThreadID, &thread.ResourceID,
		&raw, &thread.CreatedAt, &thread.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", key, err)
	}
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &thread.WorkingMemory); err != nil {
			return nil, fmt.Errorf("failed to decode working memory for %s: %w", key, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM messages
		WHERE agent_key = ? AND thread_id = ? AND resource_id = ?
		ORDER BY seq ASC
	`, key.AgentKey, key.ThreadID, key.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for %s: %w", key, err)
	}
	defer func() { _ = rows.Close() }()

	thread.Messages, err = scanMessages(rows)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListThreadKeys returns every thread key, most recently updated first
func (s *ThreadStore) ListThreadKeys(ctx context.Context) ([]models.ThreadKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_key, thread_id, resource_id FROM threads ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []models.ThreadKey
	for rows.Next() {
		var k models.ThreadKey
		if err := rows.Scan(&k.AgentKey, &k.ThreadID, &k.ResourceID); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		var (
			msg  models.Message
			role string
		)
		if err := rows.Scan(&role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = models.Role(role)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

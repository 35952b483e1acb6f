// Package postgres persists chat sessions and their message history. Message
// ids come from a bigserial so history order is stable even when timestamps
// collide.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tripchat/tripchat/internal/session"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping session db: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context) (session.Session, error) {
	query := `
INSERT INTO chat_session (session_id)
VALUES ($1)
RETURNING created_at, updated_at`

	out := session.Session{ID: uuid.NewString()}
	if err := s.db.QueryRowContext(ctx, query, out.ID).Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return session.Session{}, fmt.Errorf("create session: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (session.Session, error) {
	query := `
SELECT session_id, created_at, updated_at
FROM chat_session
WHERE session_id = $1`

	var out session.Session
	if err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, fmt.Errorf("get session: %w", err)
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]session.Summary, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
SELECT s.session_id, s.created_at, s.updated_at, COUNT(m.message_id) AS message_count
FROM chat_session AS s
LEFT JOIN chat_message AS m ON m.session_id = s.session_id
GROUP BY s.session_id, s.created_at, s.updated_at
ORDER BY s.updated_at DESC
LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]session.Summary, 0)
	for rows.Next() {
		var summary session.Summary
		if err := rows.Scan(&summary.ID, &summary.CreatedAt, &summary.UpdatedAt, &summary.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return summaries, nil
}

// AddMessage appends a message, creating the session row when it does not
// exist yet and bumping updated_at when it does. Both writes happen in one
// transaction.
func (s *Store) AddMessage(ctx context.Context, in session.AddMessageInput) (session.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return session.Message{}, fmt.Errorf("begin add message: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `
INSERT INTO chat_session (session_id)
VALUES ($1)
ON CONFLICT (session_id)
DO UPDATE SET updated_at = NOW()`
	if _, err := tx.ExecContext(ctx, upsert, in.SessionID); err != nil {
		return session.Message{}, fmt.Errorf("upsert session: %w", err)
	}

	insert := `
INSERT INTO chat_message (session_id, role, content, sql_query)
VALUES ($1, $2, $3, $4)
RETURNING message_id, created_at`

	msg := session.Message{
		SessionID: in.SessionID,
		Role:      in.Role,
		Content:   in.Content,
		SQLQuery:  in.SQLQuery,
	}
	if err := tx.QueryRowContext(ctx, insert, in.SessionID, string(in.Role), in.Content, in.SQLQuery).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return session.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return session.Message{}, fmt.Errorf("commit add message: %w", err)
	}
	return msg, nil
}

func (s *Store) History(ctx context.Context, sessionID string) ([]session.Message, error) {
	query := `
SELECT message_id, session_id, role, content, sql_query, created_at
FROM chat_message
WHERE session_id = $1
ORDER BY message_id ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectMessages(rows)
}

// RecentHistory returns the newest limit messages in chronological order.
func (s *Store) RecentHistory(ctx context.Context, sessionID string, limit int) ([]session.Message, error) {
	if limit <= 0 {
		return []session.Message{}, nil
	}

	query := `
SELECT message_id, session_id, role, content, sql_query, created_at
FROM chat_message
WHERE session_id = $1
ORDER BY message_id DESC
LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *Store) Stats(ctx context.Context, sessionID string) (session.Stats, error) {
	query := `
SELECT s.session_id, s.created_at, s.updated_at,
    COUNT(m.message_id) AS total_messages,
    COUNT(m.message_id) FILTER (WHERE m.role = 'user') AS user_messages,
    COUNT(m.message_id) FILTER (WHERE m.role = 'assistant') AS assistant_messages
FROM chat_session AS s
LEFT JOIN chat_message AS m ON m.session_id = s.session_id
WHERE s.session_id = $1
GROUP BY s.session_id, s.created_at, s.updated_at`

	var stats session.Stats
	if err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&stats.SessionID,
		&stats.CreatedAt,
		&stats.UpdatedAt,
		&stats.TotalMessages,
		&stats.UserMessages,
		&stats.AssistantMessages,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Stats{}, session.ErrNotFound
		}
		return session.Stats{}, fmt.Errorf("session stats: %w", err)
	}
	return stats, nil
}

// Delete removes a session; messages go with it via ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `
DELETE FROM chat_session
WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if rows == 0 {
		return session.ErrNotFound
	}
	return nil
}

func collectMessages(rows *sql.Rows) ([]session.Message, error) {
	messages := make([]session.Message, 0)
	for rows.Next() {
		var msg session.Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.SQLQuery, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Role = session.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return messages, nil
}

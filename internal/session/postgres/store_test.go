package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/tripchat/tripchat/internal/session"
)

func TestCreateGeneratesSessionID(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO chat_session (session_id)
VALUES ($1)
RETURNING created_at, updated_at`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	created, err := store.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Fatalf("session id %q is not a uuid: %v", created.ID, err)
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps = %v/%v, want %v", created.CreatedAt, created.UpdatedAt, now)
	}
	assertSQLMock(t, mock)
}

func TestGetReturnsNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT session_id, created_at, updated_at
FROM chat_session
WHERE session_id = $1`)).
		WithArgs("missing-session").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing-session")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, session.ErrNotFound)
	}
	assertSQLMock(t, mock)
}

func TestAddMessageUpsertsSessionInOneTransaction(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO chat_session (session_id)
VALUES ($1)
ON CONFLICT (session_id)
DO UPDATE SET updated_at = NOW()`)).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO chat_message (session_id, role, content, sql_query)
VALUES ($1, $2, $3, $4)
RETURNING message_id, created_at`)).
		WithArgs("sess-1", "user", "How many trips completed?", nil).
		WillReturnRows(sqlmock.NewRows([]string{"message_id", "created_at"}).AddRow(int64(7), now))
	mock.ExpectCommit()

	msg, err := store.AddMessage(context.Background(), session.AddMessageInput{
		SessionID: "sess-1",
		Role:      session.RoleUser,
		Content:   "How many trips completed?",
	})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}
	if msg.ID != 7 {
		t.Fatalf("message id = %d, want 7", msg.ID)
	}
	if msg.Role != session.RoleUser || msg.SQLQuery != nil {
		t.Fatalf("message = %#v", msg)
	}
	assertSQLMock(t, mock)
}

func TestAddMessageRollsBackWhenInsertFails(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO chat_session (session_id)`)).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO chat_message (session_id, role, content, sql_query)`)).
		WithArgs("sess-1", "assistant", "answer", "SELECT 1").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	sqlQuery := "SELECT 1"
	_, err := store.AddMessage(context.Background(), session.AddMessageInput{
		SessionID: "sess-1",
		Role:      session.RoleAssistant,
		Content:   "answer",
		SQLQuery:  &sqlQuery,
	})
	if err == nil {
		t.Fatal("expected insert failure")
	}
	assertSQLMock(t, mock)
}

func TestRecentHistoryReturnsChronologicalOrder(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT message_id, session_id, role, content, sql_query, created_at
FROM chat_message
WHERE session_id = $1
ORDER BY message_id DESC
LIMIT $2`)).
		WithArgs("sess-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"message_id", "session_id", "role", "content", "sql_query", "created_at"}).
			AddRow(int64(3), "sess-1", "assistant", "42 trips.", "SELECT COUNT(*) FROM uber_trips", now).
			AddRow(int64(2), "sess-1", "user", "How many trips?", nil, now.Add(-time.Second)))

	messages, err := store.RecentHistory(context.Background(), "sess-1", 2)
	if err != nil {
		t.Fatalf("RecentHistory() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(messages))
	}
	if messages[0].ID != 2 || messages[1].ID != 3 {
		t.Fatalf("order = [%d, %d], want oldest first", messages[0].ID, messages[1].ID)
	}
	if messages[1].SQLQuery == nil || *messages[1].SQLQuery != "SELECT COUNT(*) FROM uber_trips" {
		t.Fatalf("sql query = %#v", messages[1].SQLQuery)
	}
	assertSQLMock(t, mock)
}

func TestRecentHistoryWithZeroLimitSkipsQuery(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	messages, err := store.RecentHistory(context.Background(), "sess-1", 0)
	if err != nil {
		t.Fatalf("RecentHistory() error = %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(messages))
	}
	assertSQLMock(t, mock)
}

func TestListAppliesDefaultLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT s.session_id, s.created_at, s.updated_at, COUNT(m.message_id) AS message_count
FROM chat_session AS s
LEFT JOIN chat_message AS m ON m.session_id = s.session_id
GROUP BY s.session_id, s.created_at, s.updated_at
ORDER BY s.updated_at DESC
LIMIT $1`)).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "created_at", "updated_at", "message_count"}).
			AddRow("sess-2", now.Add(-time.Minute), now, int64(4)).
			AddRow("sess-1", now.Add(-time.Hour), now.Add(-time.Hour), int64(0)))

	summaries, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summary count = %d, want 2", len(summaries))
	}
	if summaries[0].ID != "sess-2" || summaries[0].MessageCount != 4 {
		t.Fatalf("summaries[0] = %#v", summaries[0])
	}
	assertSQLMock(t, mock)
}

func TestStatsCountsByRole(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT s.session_id, s.created_at, s.updated_at,
    COUNT(m.message_id) AS total_messages,
    COUNT(m.message_id) FILTER (WHERE m.role = 'user') AS user_messages,
    COUNT(m.message_id) FILTER (WHERE m.role = 'assistant') AS assistant_messages
FROM chat_session AS s
LEFT JOIN chat_message AS m ON m.session_id = s.session_id
WHERE s.session_id = $1
GROUP BY s.session_id, s.created_at, s.updated_at`)).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"session_id", "created_at", "updated_at", "total_messages", "user_messages", "assistant_messages",
		}).AddRow("sess-1", now.Add(-time.Hour), now, int64(6), int64(3), int64(3)))

	stats, err := store.Stats(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalMessages != 6 || stats.UserMessages != 3 || stats.AssistantMessages != 3 {
		t.Fatalf("stats = %#v", stats)
	}
	assertSQLMock(t, mock)
}

func TestStatsReturnsNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_session AS s`)).
		WithArgs("missing-session").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Stats(context.Background(), "missing-session")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, session.ErrNotFound)
	}
	assertSQLMock(t, mock)
}

func TestDeleteReturnsNotFoundWhenNothingRemoved(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`
DELETE FROM chat_session
WHERE session_id = $1`)).
		WithArgs("missing-session").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "missing-session")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, session.ErrNotFound)
	}
	assertSQLMock(t, mock)
}

func TestDeleteRemovesSession(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`
DELETE FROM chat_session
WHERE session_id = $1`)).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Delete(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

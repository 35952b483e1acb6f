package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripchat/tripchat/internal/session"
)

type stubSessions struct {
	sessions      map[string]session.Session
	messages      map[string][]session.Message
	lastListLimit int
}

func newStubSessions() *stubSessions {
	return &stubSessions{
		sessions: map[string]session.Session{},
		messages: map[string][]session.Message{},
	}
}

func (s *stubSessions) seed(sessionID string, turns ...session.Message) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.sessions[sessionID] = session.Session{ID: sessionID, CreatedAt: now, UpdatedAt: now}
	s.messages[sessionID] = turns
}

func (s *stubSessions) HealthCheck(ctx context.Context) error { return nil }

func (s *stubSessions) Create(ctx context.Context) (session.Session, error) {
	created := session.Session{ID: uuid.NewString(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.sessions[created.ID] = created
	return created, nil
}

func (s *stubSessions) Get(ctx context.Context, sessionID string) (session.Session, error) {
	found, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return found, nil
}

func (s *stubSessions) List(ctx context.Context, limit int) ([]session.Summary, error) {
	s.lastListLimit = limit
	summaries := make([]session.Summary, 0, len(s.sessions))
	for id, sess := range s.sessions {
		summaries = append(summaries, session.Summary{
			ID:           id,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: int64(len(s.messages[id])),
		})
	}
	return summaries, nil
}

func (s *stubSessions) AddMessage(ctx context.Context, in session.AddMessageInput) (session.Message, error) {
	msg := session.Message{
		ID:        int64(len(s.messages[in.SessionID]) + 1),
		SessionID: in.SessionID,
		Role:      in.Role,
		Content:   in.Content,
		SQLQuery:  in.SQLQuery,
		CreatedAt: time.Now(),
	}
	s.messages[in.SessionID] = append(s.messages[in.SessionID], msg)
	return msg, nil
}

func (s *stubSessions) History(ctx context.Context, sessionID string) ([]session.Message, error) {
	return s.messages[sessionID], nil
}

func (s *stubSessions) RecentHistory(ctx context.Context, sessionID string, limit int) ([]session.Message, error) {
	return s.messages[sessionID], nil
}

func (s *stubSessions) Stats(ctx context.Context, sessionID string) (session.Stats, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return session.Stats{}, session.ErrNotFound
	}
	stats := session.Stats{SessionID: sessionID, CreatedAt: sess.CreatedAt, UpdatedAt: sess.UpdatedAt}
	for _, msg := range s.messages[sessionID] {
		stats.TotalMessages++
		switch msg.Role {
		case session.RoleUser:
			stats.UserMessages++
		case session.RoleAssistant:
			stats.AssistantMessages++
		}
	}
	return stats, nil
}

func (s *stubSessions) Delete(ctx context.Context, sessionID string) error {
	if _, ok := s.sessions[sessionID]; !ok {
		return session.ErrNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}

func TestCreateSessionEndpoint(t *testing.T) {
	store := newStubSessions()
	h := NewHandler(testConfig(), Dependencies{Sessions: store})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	sessionID, _ := body["session_id"].(string)
	if _, err := uuid.Parse(sessionID); err != nil {
		t.Fatalf("session_id %q is not a uuid: %v", sessionID, err)
	}
	if body["message_count"].(float64) != 0 {
		t.Fatalf("message_count = %v", body["message_count"])
	}
}

func TestListSessionsEndpoint(t *testing.T) {
	store := newStubSessions()
	store.seed("sess-1",
		session.Message{ID: 1, SessionID: "sess-1", Role: session.RoleUser, Content: "hi"},
		session.Message{ID: 2, SessionID: "sess-1", Role: session.RoleAssistant, Content: "hello"},
	)
	h := NewHandler(testConfig(), Dependencies{Sessions: store})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if store.lastListLimit != 100 {
		t.Fatalf("default limit = %d", store.lastListLimit)
	}
	body := decodeBody(t, rr)
	sessions := body["sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %v", sessions)
	}
	first := sessions[0].(map[string]any)
	if first["session_id"] != "sess-1" || first["message_count"].(float64) != 2 {
		t.Fatalf("summary = %v", first)
	}

	limited := httptest.NewRecorder()
	h.ServeHTTP(limited, httptest.NewRequest(http.MethodGet, "/v1/sessions?limit=5", nil))
	if limited.Code != http.StatusOK || store.lastListLimit != 5 {
		t.Fatalf("limit passthrough failed: status=%d limit=%d", limited.Code, store.lastListLimit)
	}

	invalid := httptest.NewRecorder()
	h.ServeHTTP(invalid, httptest.NewRequest(http.MethodGet, "/v1/sessions?limit=zero", nil))
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("invalid limit status = %d", invalid.Code)
	}
}

func TestGetSessionEndpoint(t *testing.T) {
	store := newStubSessions()
	sqlText := "SELECT COUNT(*) FROM uber_trips"
	store.seed("sess-1",
		session.Message{ID: 1, SessionID: "sess-1", Role: session.RoleUser, Content: "How many trips?"},
		session.Message{ID: 2, SessionID: "sess-1", Role: session.RoleAssistant, Content: "There were 5 trips.", SQLQuery: &sqlText},
	)
	h := NewHandler(testConfig(), Dependencies{Sessions: store})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["session_id"] != "sess-1" {
		t.Fatalf("session_id = %v", body["session_id"])
	}
	messages := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", messages)
	}
	first := messages[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "How many trips?" {
		t.Fatalf("first message = %v", first)
	}

	missing := httptest.NewRecorder()
	h.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/v1/sessions/nope", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", missing.Code)
	}
	if body := decodeBody(t, missing); body["message"] != "Session nope not found" {
		t.Fatalf("missing body = %v", body)
	}
}

func TestSessionStatsEndpoint(t *testing.T) {
	store := newStubSessions()
	store.seed("sess-1",
		session.Message{ID: 1, SessionID: "sess-1", Role: session.RoleUser, Content: "q1"},
		session.Message{ID: 2, SessionID: "sess-1", Role: session.RoleAssistant, Content: "a1"},
		session.Message{ID: 3, SessionID: "sess-1", Role: session.RoleUser, Content: "q2"},
	)
	h := NewHandler(testConfig(), Dependencies{Sessions: store})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/sessions/sess-1/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["total_messages"].(float64) != 3 || body["user_messages"].(float64) != 2 || body["assistant_messages"].(float64) != 1 {
		t.Fatalf("stats = %v", body)
	}

	missing := httptest.NewRecorder()
	h.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/v1/sessions/nope/stats", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", missing.Code)
	}
}

func TestDeleteSessionEndpoint(t *testing.T) {
	store := newStubSessions()
	store.seed("sess-1")
	h := NewHandler(testConfig(), Dependencies{Sessions: store})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["message"] != "Session sess-1 deleted successfully" {
		t.Fatalf("body = %v", body)
	}
	if _, ok := store.sessions["sess-1"]; ok {
		t.Fatal("session should be removed")
	}

	again := httptest.NewRecorder()
	h.ServeHTTP(again, httptest.NewRequest(http.MethodDelete, "/v1/sessions/sess-1", nil))
	if again.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", again.Code)
	}
}

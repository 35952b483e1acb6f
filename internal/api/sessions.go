package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tripchat/tripchat/internal/session"
)

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}

	created, err := deps.Sessions.Create(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "failed to create session", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id":    created.ID,
		"created_at":    created.CreatedAt,
		"message_count": 0,
	})
}

func handleListSessions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}

	summaries, err := deps.Sessions.List(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "failed to list sessions", true, map[string]any{"details": err.Error()})
		return
	}

	items := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, map[string]any{
			"session_id":    summary.ID,
			"created_at":    summary.CreatedAt,
			"updated_at":    summary.UpdatedAt,
			"message_count": summary.MessageCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
}

func handleGetSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}
	sessionID := strings.TrimSpace(r.PathValue("id"))
	if sessionID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_ID_REQUIRED", "session id path parameter is required", false, nil)
		return
	}

	if _, err := deps.Sessions.Get(r.Context(), sessionID); err != nil {
		writeSessionLookupError(w, r, sessionID, err)
		return
	}
	messages, err := deps.Sessions.History(r.Context(), sessionID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "failed to load conversation", true, map[string]any{"details": err.Error()})
		return
	}

	items := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		items = append(items, map[string]any{
			"id":         msg.ID,
			"session_id": msg.SessionID,
			"role":       msg.Role,
			"content":    msg.Content,
			"created_at": msg.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   items,
	})
}

func handleSessionStats(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}
	sessionID := strings.TrimSpace(r.PathValue("id"))
	if sessionID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_ID_REQUIRED", "session id path parameter is required", false, nil)
		return
	}

	stats, err := deps.Sessions.Stats(r.Context(), sessionID)
	if err != nil {
		writeSessionLookupError(w, r, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":         stats.SessionID,
		"created_at":         stats.CreatedAt,
		"updated_at":         stats.UpdatedAt,
		"total_messages":     stats.TotalMessages,
		"user_messages":      stats.UserMessages,
		"assistant_messages": stats.AssistantMessages,
	})
}

func handleDeleteSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}
	sessionID := strings.TrimSpace(r.PathValue("id"))
	if sessionID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_ID_REQUIRED", "session id path parameter is required", false, nil)
		return
	}

	if err := deps.Sessions.Delete(r.Context(), sessionID); err != nil {
		writeSessionLookupError(w, r, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Session %s deleted successfully", sessionID),
	})
}

func writeSessionLookupError(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", fmt.Sprintf("Session %s not found", sessionID), false, nil)
		return
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_STORE_ERROR", "session store request failed", true, map[string]any{"details": err.Error()})
}

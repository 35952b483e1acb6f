package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tripchat/tripchat/internal/chat"
	"github.com/tripchat/tripchat/internal/llm"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message             string        `json:"message"`
	SessionID           string        `json:"session_id"`
	ConversationHistory []chatMessage `json:"conversation_history"`
}

// chatResponse keeps the nullable fields explicit nulls rather than omitting
// them; the frontend distinguishes "no query ran" from "field missing".
type chatResponse struct {
	Success      bool             `json:"success"`
	Response     string           `json:"response"`
	SQLQuery     *string          `json:"sql_query"`
	QueryResults *chat.ResultMeta `json:"query_results"`
	Error        *string          `json:"error"`
	SessionID    string           `json:"session_id"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat dependencies are not configured", false, nil)
		return
	}

	var request chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}

	var history []llm.Turn
	if len(request.ConversationHistory) > 0 {
		history = make([]llm.Turn, 0, len(request.ConversationHistory))
		for _, msg := range request.ConversationHistory {
			history = append(history, llm.Turn{Role: msg.Role, Content: msg.Content})
		}
	}

	// Pipeline failures come back as a well-formed outcome, so the chat
	// endpoint always answers 200 once the request itself is valid.
	outcome := deps.Chat.ProcessMessage(r.Context(), chat.Request{
		Message:   request.Message,
		SessionID: request.SessionID,
		History:   history,
	})

	response := chatResponse{
		Success:      outcome.Success,
		Response:     outcome.Response,
		QueryResults: outcome.Results,
		SessionID:    outcome.SessionID,
	}
	if outcome.SQL != "" {
		response.SQLQuery = &outcome.SQL
	}
	if outcome.Error != "" {
		response.Error = &outcome.Error
	}
	writeJSON(w, http.StatusOK, response)
}

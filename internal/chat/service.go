// Package chat orchestrates the question-to-answer pipeline: schema context,
// SQL generation, guarded execution, result rendering, answer generation, and
// conversation persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripchat/tripchat/internal/llm"
	"github.com/tripchat/tripchat/internal/observability"
	"github.com/tripchat/tripchat/internal/query"
	"github.com/tripchat/tripchat/internal/session"
	"github.com/tripchat/tripchat/internal/sqlguard"
)

const (
	unexpectedErrorResponse = "I'm sorry, I encountered an unexpected error. Please try again."

	outcomeSuccess          = "success"
	outcomeHandledFailure   = "handled_failure"
	outcomeSecondaryFailure = "secondary_failure"
	outcomeUnexpected       = "unexpected"
)

type Request struct {
	Message   string
	SessionID string
	History   []llm.Turn
}

type ResultMeta struct {
	RowCount int      `json:"row_count"`
	Columns  []string `json:"columns"`
}

// Outcome is always well-formed; failures surface as Success=false with a
// user-facing Response, never as an error from ProcessMessage.
type Outcome struct {
	Success   bool
	Response  string
	SQL       string
	Results   *ResultMeta
	Error     string
	SessionID string
}

type Config struct {
	MaxContextMessages int
	MaxDisplayRows     int
}

type Service struct {
	logger    *slog.Logger
	schema    query.SchemaProvider
	executor  query.Executor
	generator llm.Generator
	sessions  session.Store
	cfg       Config
}

func NewService(logger *slog.Logger, schema query.SchemaProvider, executor query.Executor, generator llm.Generator, sessions session.Store, cfg Config) *Service {
	return &Service{
		logger:    logger,
		schema:    schema,
		executor:  executor,
		generator: generator,
		sessions:  sessions,
		cfg:       cfg,
	}
}

// ProcessMessage runs one conversational turn. A blank session id starts a
// new conversation; the id in the outcome is always usable for follow-ups.
func (s *Service) ProcessMessage(ctx context.Context, req Request) Outcome {
	started := time.Now()

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
		observability.IncrementSessionsCreated()
	}
	logger := s.logger.With(slog.String("session_id", sessionID))

	history := req.History
	if len(history) == 0 {
		stored, err := s.sessions.RecentHistory(ctx, sessionID, s.cfg.MaxContextMessages)
		if err != nil {
			logger.Error("load conversation history", slog.String("error", err.Error()))
			return s.unexpected(ctx, logger, req.Message, sessionID, err, started)
		}
		history = toTurns(stored)
	}

	schema, err := s.schema.SchemaSummary(ctx)
	if err != nil {
		logger.Error("schema summary", slog.String("error", err.Error()))
		return s.unexpected(ctx, logger, req.Message, sessionID, err, started)
	}

	genStart := time.Now()
	sqlResult, err := s.generator.GenerateSQL(ctx, llm.SQLRequest{
		Question: req.Message,
		Schema:   schema,
		History:  history,
	})
	if err != nil {
		logger.Error("sql generation", slog.String("error", err.Error()))
		return s.unexpected(ctx, logger, req.Message, sessionID, err, started)
	}
	observability.ObserveSQLGeneration(time.Since(genStart))
	observability.ObserveModelTokens("sql", sqlResult.Usage.PromptTokens, sqlResult.Usage.CompletionTokens)
	logger.Info("generated sql", slog.String("sql", sqlResult.SQL))

	execStart := time.Now()
	result, err := s.executor.Execute(ctx, sqlResult.SQL)
	if err != nil {
		var rejection *sqlguard.RejectionError
		if errors.As(err, &rejection) {
			observability.ObserveQueryRejected(rejection.Rule)
			logger.Warn("query rejected",
				slog.String("rule", rejection.Rule),
				slog.String("sql", sqlResult.SQL))
		} else {
			logger.Error("query execution", slog.String("error", err.Error()))
		}
		return s.explainFailure(ctx, logger, req.Message, sessionID, history, err, started)
	}
	observability.ObserveQueryExecution(time.Since(execStart), result.RowCount)

	answerStart := time.Now()
	answer, err := s.generator.GenerateAnswer(ctx, llm.AnswerRequest{
		Question:    req.Message,
		ResultsText: RenderResult(result, s.cfg.MaxDisplayRows),
		History:     history,
	})
	if err != nil {
		logger.Error("answer generation", slog.String("error", err.Error()))
		return s.unexpected(ctx, logger, req.Message, sessionID, err, started)
	}
	observability.ObserveAnswerGeneration(time.Since(answerStart))
	observability.ObserveModelTokens("answer", answer.Usage.PromptTokens, answer.Usage.CompletionTokens)

	outcome := Outcome{
		Success:  true,
		Response: answer.Answer,
		SQL:      sqlResult.SQL,
		Results: &ResultMeta{
			RowCount: result.RowCount,
			Columns:  result.Columns,
		},
		SessionID: sessionID,
	}
	s.persistTurns(ctx, logger, sessionID, req.Message, outcome.Response, &outcome.SQL)
	observability.ObserveChatOutcome(outcomeSuccess, time.Since(started))
	return outcome
}

// explainFailure asks the model to phrase a rejection or execution failure
// for the user. When that call fails too, a fixed template answers and the
// turn is not persisted.
func (s *Service) explainFailure(ctx context.Context, logger *slog.Logger, question, sessionID string, history []llm.Turn, cause error, started time.Time) Outcome {
	answer, err := s.generator.GenerateAnswer(ctx, llm.AnswerRequest{
		Question:    question,
		ResultsText: RenderResult(query.Result{}, s.cfg.MaxDisplayRows),
		History:     history,
	})
	if err != nil {
		logger.Error("failure explanation", slog.String("error", err.Error()))
		observability.ObserveChatOutcome(outcomeSecondaryFailure, time.Since(started))
		return Outcome{
			Success:   false,
			Response:  fmt.Sprintf("I encountered an error processing your query: %s. Please try rephrasing your question.", cause),
			Error:     cause.Error(),
			SessionID: sessionID,
		}
	}
	observability.ObserveModelTokens("answer", answer.Usage.PromptTokens, answer.Usage.CompletionTokens)

	outcome := Outcome{
		Success:   false,
		Response:  answer.Answer,
		Error:     cause.Error(),
		SessionID: sessionID,
	}
	s.persistTurns(ctx, logger, sessionID, question, outcome.Response, nil)
	observability.ObserveChatOutcome(outcomeHandledFailure, time.Since(started))
	return outcome
}

func (s *Service) unexpected(ctx context.Context, logger *slog.Logger, question, sessionID string, cause error, started time.Time) Outcome {
	outcome := Outcome{
		Success:   false,
		Response:  unexpectedErrorResponse,
		Error:     cause.Error(),
		SessionID: sessionID,
	}
	s.persistTurns(ctx, logger, sessionID, question, outcome.Response, nil)
	observability.ObserveChatOutcome(outcomeUnexpected, time.Since(started))
	return outcome
}

// persistTurns writes the user question and assistant reply. Failures here
// are logged and swallowed so the user still gets their answer.
func (s *Service) persistTurns(ctx context.Context, logger *slog.Logger, sessionID, question, response string, sqlQuery *string) {
	if _, err := s.sessions.AddMessage(ctx, session.AddMessageInput{
		SessionID: sessionID,
		Role:      session.RoleUser,
		Content:   question,
	}); err != nil {
		logger.Error("persist user turn", slog.String("error", err.Error()))
		return
	}
	if sqlQuery != nil && *sqlQuery == "" {
		sqlQuery = nil
	}
	if _, err := s.sessions.AddMessage(ctx, session.AddMessageInput{
		SessionID: sessionID,
		Role:      session.RoleAssistant,
		Content:   response,
		SQLQuery:  sqlQuery,
	}); err != nil {
		logger.Error("persist assistant turn", slog.String("error", err.Error()))
	}
}

func toTurns(messages []session.Message) []llm.Turn {
	if len(messages) == 0 {
		return nil
	}
	turns := make([]llm.Turn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, llm.Turn{Role: string(msg.Role), Content: msg.Content})
	}
	return turns
}

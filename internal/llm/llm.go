// Package llm turns user questions into SQL and query results into natural
// language answers through an OpenAI-compatible chat completion API.
package llm

import (
	"context"

	"github.com/tripchat/tripchat/internal/query"
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

type SQLRequest struct {
	Question string
	Schema   query.SchemaSummary
	History  []Turn
}

// SQLResult carries the model output verbatim after markdown fence removal.
// Whether it is safe or even valid SQL is the caller's problem.
type SQLResult struct {
	SQL   string
	Usage Usage
}

type AnswerRequest struct {
	Question    string
	ResultsText string
	History     []Turn
}

type AnswerResult struct {
	Answer string
	Usage  Usage
}

type Generator interface {
	GenerateSQL(ctx context.Context, req SQLRequest) (SQLResult, error)
	GenerateAnswer(ctx context.Context, req AnswerRequest) (AnswerResult, error)
}

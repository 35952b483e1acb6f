package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// SQL generation runs cold and short; answers get room to be conversational.
	sqlTemperature    = 0.1
	sqlMaxTokens      = 200
	answerTemperature = 0.7
)

type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	MaxTokens          int
	MaxContextMessages int
	Timeout            time.Duration
}

type Client struct {
	api        *openai.Client
	model      string
	maxTokens  int
	maxContext int
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	apiCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		apiCfg.BaseURL = strings.TrimRight(base, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		model:      model,
		maxTokens:  maxTokens,
		maxContext: cfg.MaxContextMessages,
	}, nil
}

func (c *Client) GenerateSQL(ctx context.Context, req SQLRequest) (SQLResult, error) {
	messages := c.buildMessages(buildSQLSystemPrompt(req.Schema), req.History, sqlUserMessage(req.Question, len(req.History) > 0))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: sqlTemperature,
		MaxTokens:   sqlMaxTokens,
	})
	if err != nil {
		return SQLResult{}, fmt.Errorf("generate sql: %w", err)
	}
	if len(resp.Choices) == 0 {
		return SQLResult{}, fmt.Errorf("generate sql: empty chat completion choices")
	}

	return SQLResult{
		SQL: stripMarkdownSQL(resp.Choices[0].Message.Content),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func (c *Client) GenerateAnswer(ctx context.Context, req AnswerRequest) (AnswerResult, error) {
	messages := c.buildMessages(answerSystemPrompt, req.History, answerUserMessage(req.Question, req.ResultsText))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: answerTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return AnswerResult{}, fmt.Errorf("generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return AnswerResult{}, fmt.Errorf("generate answer: empty chat completion choices")
	}

	return AnswerResult{
		Answer: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// buildMessages puts bounded conversation history between the system prompt
// and the new user message so the model sees context before the question.
func (c *Client) buildMessages(systemPrompt string, history []Turn, userMessage string) []openai.ChatCompletionMessage {
	if c.maxContext > 0 && len(history) > c.maxContext {
		history = history[len(history)-c.maxContext:]
	} else if c.maxContext <= 0 {
		history = nil
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})
}

// stripMarkdownSQL removes the code fences chat models like to wrap SQL in.
// Empty output is returned as-is; the validation gate deals with it.
func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```sql") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session: not found")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Store interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context) (Session, error)
	Get(ctx context.Context, sessionID string) (Session, error)
	List(ctx context.Context, limit int) ([]Summary, error)
	AddMessage(ctx context.Context, in AddMessageInput) (Message, error)
	History(ctx context.Context, sessionID string) ([]Message, error)
	RecentHistory(ctx context.Context, sessionID string, limit int) ([]Message, error)
	Stats(ctx context.Context, sessionID string) (Stats, error)
	Delete(ctx context.Context, sessionID string) error
}

type Session struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Summary struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int64
}

type Message struct {
	ID        int64
	SessionID string
	Role      Role
	Content   string
	SQLQuery  *string
	CreatedAt time.Time
}

type AddMessageInput struct {
	SessionID string
	Role      Role
	Content   string
	SQLQuery  *string
}

type Stats struct {
	SessionID         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	TotalMessages     int64
	UserMessages      int64
	AssistantMessages int64
}

package chatModel

import (
	"context"
	"time"

	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	ID        string                  `json:"id"`
	Role      Role                    `json:"role"`
	Content   string                  `json:"content"`
	Timestamp time.Time               `json:"timestamp"`
	Citations []commonModels.Citation `json:"citations"`
}

type SessionInfo struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	TurnCount    int       `json:"turn_count"`
}

type Session struct {
	ID           string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Turns        []Turn    `json:"turns"`
}

// SessionStore persists sessions. Implementations make AppendTurns and ClearTurns
// all-or-nothing; ordering between callers is the conversation manager's job.
type SessionStore interface {
	GetInfo(ctx context.Context, id string) (SessionInfo, bool, error)
	CreateSession(ctx context.Context, info SessionInfo) error
	AppendTurns(ctx context.Context, id string, lastActive time.Time, turns ...Turn) error
	// GetTurns returns the last n turns in order, or all of them when n <= 0
	GetTurns(ctx context.Context, id string, n int) ([]Turn, error)
	ClearTurns(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]SessionInfo, error)
}

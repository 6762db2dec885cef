// Package history implements C3: a durable session and QA-turn store
// (§4.3), backed primarily by Postgres via pgx with an in-memory
// implementation for tests and local/offline use.
package history

import (
	"context"

	"ragcore/internal/domain"
)

// Store is the uniform interface over C3 backends (§4.3).
type Store interface {
	Initialize(ctx context.Context) error

	CreateSession(ctx context.Context, userID, title string) (domain.Session, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
	ListRecentSessions(ctx context.Context, limit int) ([]domain.Session, error)
	DeleteSession(ctx context.Context, id string) error

	// AppendTurn persists turn and bumps the owning session's updated_at and
	// qa_count (§4.3 "append_turn").
	AppendTurn(ctx context.Context, turn domain.QATurn) error
	GetSessionHistory(ctx context.Context, sessionID string) ([]domain.QATurn, error)

	StatsSummary(ctx context.Context) (domain.SessionStats, error)

	Cleanup(ctx context.Context) error
}

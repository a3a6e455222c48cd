// Package repository persists the game catalog and game sessions.
package repository

import (
	"context"
	"time"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

// SessionFilter narrows GetSession. A zero filter matches by id only.
type SessionFilter struct {
	// UserID restricts to visible sessions owned by this user.
	UserID string
	// Completed, when set, must equal the session's completed flag.
	Completed *bool
}

// ListOptions pages through a user's sessions.
type ListOptions struct {
	Completed *bool
	Offset    int
	Limit     int
}

// ModelFilter narrows ListModels.
type ModelFilter struct {
	AvailableOnly bool
	ToolsRequired bool
}

// Store is the persistence surface used by the service layer.
type Store interface {
	UpsertJudge(ctx context.Context, j *domain.Judge) error
	GetJudge(ctx context.Context, id string) (*domain.Judge, error)
	ListJudges(ctx context.Context) ([]domain.Judge, error)

	UpsertGame(ctx context.Context, g *domain.Game) error
	GetGame(ctx context.Context, id string) (*domain.Game, error)
	ListGames(ctx context.Context) ([]domain.Game, error)

	UpsertModel(ctx context.Context, m *domain.Model) error
	GetModel(ctx context.Context, id string) (*domain.Model, error)
	ListModels(ctx context.Context, f ModelFilter) ([]domain.Model, error)

	CreateSession(ctx context.Context, s *domain.GameSession) error
	GetSession(ctx context.Context, id string, f SessionFilter) (*domain.GameSession, error)
	UpdateSession(ctx context.Context, id string, fields []string, s *domain.GameSession) error
	DeleteVisibility(ctx context.Context, userID string, ids []string) (int64, error)
	ListSessions(ctx context.Context, userID string, opts ListOptions) ([]domain.GameSession, error)
	GetSharedSession(ctx context.Context, sharedID string) (*domain.GameSession, error)
	PurgeSessions(ctx context.Context, before time.Time, maxHistory int) (int64, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)

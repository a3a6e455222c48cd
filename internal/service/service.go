// Package service implements game sessions: scenario sampling, turn
// evaluation and terminal transitions.
package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/shizhouxing/project-enigma/internal/adapter/llm"
	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/registry"
	"github.com/shizhouxing/project-enigma/internal/repository"
)

// Options tunes timeouts and garbage collection.
type Options struct {
	LLMTimeout     time.Duration
	PersistTimeout time.Duration
	GCInterval     time.Duration
	GCGrace        time.Duration
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		LLMTimeout:     2 * time.Minute,
		PersistTimeout: 10 * time.Second,
		GCInterval:     time.Hour,
		GCGrace:        24 * time.Hour,
	}
}

type Service struct {
	store    repository.Store
	registry *registry.Registry
	llm      llm.Provider
	opts     Options
	locks    *sessionLocks

	now   func() time.Time
	intn  func(int) int
	newID func() string
}

func New(store repository.Store, reg *registry.Registry, provider llm.Provider, opts Options) *Service {
	return &Service{
		store:    store,
		registry: reg,
		llm:      provider,
		opts:     opts,
		locks:    newSessionLocks(),
		now:      func() time.Time { return time.Now().UTC() },
		intn:     rand.IntN,
		newID:    func() string { return uuid.New().String() },
	}
}

// Registry exposes the function registry the service was built with.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

func withSession(ctx context.Context, sessionID, userID string) context.Context {
	return clog.WithLogger(ctx, clog.FromContext(ctx).With("session_id", sessionID, "user_id", userID))
}

// authorize loads a session for a mutating action by userID.
func (s *Service) authorize(ctx context.Context, sessionID, userID string) (*domain.GameSession, error) {
	session, err := s.store.GetSession(ctx, sessionID, repository.SessionFilter{})
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("session %s is owned by another user: %w", sessionID, domain.ErrForbidden)
	}
	if !session.Visible {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if session.Completed {
		return nil, fmt.Errorf("session %s already ended with %s: %w", sessionID, session.Outcome, domain.ErrForbidden)
	}
	return session, nil
}

// acquire authorizes the caller, takes the session's turn lock and reloads
// the session under it. Callers that do not own the session are rejected
// before the lock is consulted, so a busy session looks the same to them as
// an idle one.
func (s *Service) acquire(ctx context.Context, sessionID, userID string) (*domain.GameSession, func(), error) {
	if _, err := s.authorize(ctx, sessionID, userID); err != nil {
		return nil, nil, err
	}
	release, ok := s.locks.tryLock(sessionID)
	if !ok {
		return nil, nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionBusy)
	}
	session, err := s.authorize(ctx, sessionID, userID)
	if err != nil {
		release()
		return nil, nil, err
	}
	return session, release, nil
}

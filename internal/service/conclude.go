package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/metrics"
)

// Conclude ends an in-progress session with a loss or forfeit.
func (s *Service) Conclude(ctx context.Context, sessionID, userID string, outcome domain.Outcome) (*domain.GameSession, error) {
	if outcome != domain.OutcomeLoss && outcome != domain.OutcomeForfeit {
		return nil, fmt.Errorf("outcome %q cannot be requested: %w", outcome, domain.ErrInvalidArgument)
	}

	ctx = withSession(ctx, sessionID, userID)
	session, release, err := s.acquire(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := session.Conclude(outcome, s.now()); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, session, domain.TerminalFields); err != nil {
		if errors.Is(err, domain.ErrNotModified) {
			return nil, fmt.Errorf("session %s already ended: %w", sessionID, domain.ErrForbidden)
		}
		return nil, err
	}

	metrics.SessionOutcomes.WithLabelValues(string(outcome)).Inc()
	clog.FromContext(ctx).Infof("session ended with %s", outcome)
	return session, nil
}

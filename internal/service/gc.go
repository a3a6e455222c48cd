package service

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/shizhouxing/project-enigma/internal/metrics"
)

// gcMaxHistory is the largest history a hidden session may have and still be
// collected: a session where no turn completed.
const gcMaxHistory = 1

// RunGarbageCollector sweeps once immediately and then every GCInterval until
// ctx is done.
func (s *Service) RunGarbageCollector(ctx context.Context) {
	s.sweepSessions(ctx)

	ticker := time.NewTicker(s.opts.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessions(ctx)
		}
	}
}

func (s *Service) sweepSessions(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := s.store.PurgeSessions(sweepCtx, s.now().Add(-s.opts.GCGrace), gcMaxHistory)
	if err != nil {
		clog.FromContext(ctx).Warnf("session sweep failed: %v", err)
		return
	}
	if n > 0 {
		metrics.SessionsPurged.Add(float64(n))
		clog.FromContext(ctx).Infof("purged %d abandoned sessions", n)
	}
}

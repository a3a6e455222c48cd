package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/metrics"
	"github.com/shizhouxing/project-enigma/internal/repository"
)

// CreateSession samples a scenario for gameID and starts a session for userID.
func (s *Service) CreateSession(ctx context.Context, userID, gameID string) (*domain.GameSession, error) {
	if userID == "" || gameID == "" {
		return nil, fmt.Errorf("user and game are required: %w", domain.ErrInvalidArgument)
	}

	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	judge, err := s.store.GetJudge(ctx, game.JudgeID)
	if err != nil {
		return nil, err
	}
	if !judge.Active {
		return nil, fmt.Errorf("judge %s is inactive: %w", judge.ID, domain.ErrNotFound)
	}
	if _, err := s.registry.Validator(judge.Validator.Name); err != nil {
		clog.FromContext(ctx).Errorf("judge %s: %v", judge.ID, err)
		return nil, err
	}

	sample, err := s.registry.Sample(judge.Sampler.Name)
	if err != nil {
		clog.FromContext(ctx).Errorf("judge %s: %v", judge.ID, err)
		return nil, err
	}

	rules := game.Metadata.GameRules
	modelConfig := mergeModelConfig(game.Metadata.ModelConfig, sample.ModelConfig)
	model, err := s.pickModel(ctx, rules.ToolsEnabled || modelConfig.ToolsConfig.Enabled)
	if err != nil {
		return nil, err
	}

	session := &domain.GameSession{
		ID:          s.newID(),
		UserID:      userID,
		GameID:      game.ID,
		JudgeID:     judge.ID,
		AgentID:     model.ID,
		Description: describe(game, sample),
		History:     []domain.ChatMessage{},
		Metadata: domain.SessionMetadata{
			GameRules:   rules,
			ModelConfig: modelConfig,
			Kwargs:      sample.Kwargs,
		},
		CreateTime: s.now(),
		Visible:    true,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsCreated.Inc()
	clog.FromContext(ctx).With("session_id", session.ID, "game_id", game.ID, "agent_id", model.ID).
		Infof("session created for %s", userID)
	return session, nil
}

// mergeModelConfig applies sampler overrides on top of the game defaults.
func mergeModelConfig(base, override *domain.ModelConfig) domain.ModelConfig {
	var out domain.ModelConfig
	if base != nil {
		out = *base
		out.ToolsConfig.Tools = append([]domain.ToolSchema(nil), base.ToolsConfig.Tools...)
	}
	if override == nil {
		return out
	}
	if override.SystemPrompt != "" {
		out.SystemPrompt = override.SystemPrompt
	}
	if override.ToolsConfig.Enabled || len(override.ToolsConfig.Tools) > 0 {
		out.ToolsConfig = override.ToolsConfig
	}
	return out
}

func describe(game *domain.Game, sample domain.Sample) string {
	base := game.SessionDescription
	if base == "" {
		base = game.Description
	}
	if target, ok := sample.Target(); ok && game.Metadata.GameRules.Deterministic {
		return strings.TrimSpace(base + " " + target)
	}
	return base
}

func (s *Service) pickModel(ctx context.Context, toolsRequired bool) (*domain.Model, error) {
	models, err := s.store.ListModels(ctx, repository.ModelFilter{AvailableOnly: true, ToolsRequired: toolsRequired})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no available model (tools required: %t): %w", toolsRequired, domain.ErrNotFound)
	}
	return &models[s.intn(len(models))], nil
}

// Transcript returns an owned, visible session.
func (s *Service) Transcript(ctx context.Context, sessionID, userID string) (*domain.GameSession, error) {
	return s.store.GetSession(ctx, sessionID, repository.SessionFilter{UserID: userID})
}

// History lists the user's completed sessions, newest first.
func (s *Service) History(ctx context.Context, userID string, offset, limit int) ([]domain.SessionSummary, error) {
	completed := true
	sessions, err := s.store.ListSessions(ctx, userID, repository.ListOptions{
		Completed: &completed,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionSummary, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessions[i].Summary())
	}
	return out, nil
}

// DeleteSessions hides the user's sessions.
func (s *Service) DeleteSessions(ctx context.Context, userID string, ids []string) (int64, error) {
	n, err := s.store.DeleteVisibility(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	clog.FromContext(ctx).Infof("hid %d of %d sessions for %s", n, len(ids), userID)
	return n, nil
}

// Share publishes a completed session and returns its shared id. Sharing
// twice returns the same id.
func (s *Service) Share(ctx context.Context, sessionID, userID string) (string, error) {
	completed := true
	session, err := s.store.GetSession(ctx, sessionID, repository.SessionFilter{UserID: userID, Completed: &completed})
	if err != nil {
		return "", err
	}
	if session.Shared != "" {
		return session.Shared, nil
	}

	session.Shared = s.newID()
	err = s.store.UpdateSession(ctx, sessionID, []string{domain.FieldShared}, session)
	if errors.Is(err, domain.ErrNotModified) {
		current, gerr := s.store.GetSession(ctx, sessionID, repository.SessionFilter{})
		if gerr != nil {
			return "", gerr
		}
		return current.Shared, nil
	}
	if err != nil {
		return "", err
	}
	return session.Shared, nil
}

// Shared returns a publicly shared transcript.
func (s *Service) Shared(ctx context.Context, sharedID string) (*domain.GameSession, error) {
	return s.store.GetSharedSession(ctx, sharedID)
}

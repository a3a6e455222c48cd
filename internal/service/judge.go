package service

import (
	"context"

	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/repository"
)

// Judge returns a judge definition.
func (s *Service) Judge(ctx context.Context, judgeID string) (*domain.Judge, error) {
	return s.store.GetJudge(ctx, judgeID)
}

// SampleJudge runs the judge's sampler and returns its raw output.
func (s *Service) SampleJudge(ctx context.Context, judgeID string) (domain.Sample, error) {
	judge, err := s.store.GetJudge(ctx, judgeID)
	if err != nil {
		return domain.Sample{}, err
	}
	return s.registry.Sample(judge.Sampler.Name)
}

// ValidateJudge runs the judge's validator against source and kwargs.
func (s *Service) ValidateJudge(ctx context.Context, judgeID, source string, kwargs map[string]any) (bool, error) {
	judge, err := s.store.GetJudge(ctx, judgeID)
	if err != nil {
		return false, err
	}
	return s.registry.Validate(ctx, judge.Validator.Name, source, kwargs)
}

// Games lists the catalog.
func (s *Service) Games(ctx context.Context) ([]domain.Game, error) {
	return s.store.ListGames(ctx)
}

// Models lists the models sessions can be assigned.
func (s *Service) Models(ctx context.Context) ([]domain.Model, error) {
	return s.store.ListModels(ctx, repository.ModelFilter{AvailableOnly: true})
}

// Game returns one game.
func (s *Service) Game(ctx context.Context, gameID string) (*domain.Game, error) {
	return s.store.GetGame(ctx, gameID)
}

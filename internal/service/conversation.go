package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/shizhouxing/project-enigma/internal/adapter/llm"
	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/metrics"
)

// Emitter delivers a stream event to the client. An error means the client
// is gone.
type Emitter func(domain.StreamEvent) error

// TurnResult describes how a turn ended.
type TurnResult struct {
	Status    string
	Tokens    int
	WinAt     int
	Persisted bool
	// Err is a failure already reported in the stream: an upstream,
	// persistence or cancellation error.
	Err error
}

// Converse runs one turn of the session. Precondition failures (unknown
// session, wrong owner, terminal session, concurrent turn) are returned
// before anything is emitted. Once the first event is out, failures are
// reported as stream events and in TurnResult.Err.
func (s *Service) Converse(ctx context.Context, sessionID, userID, prompt string, emit Emitter) (*TurnResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is empty: %w", domain.ErrInvalidArgument)
	}

	ctx = withSession(ctx, sessionID, userID)
	session, release, err := s.acquire(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	judge, err := s.store.GetJudge(ctx, session.JudgeID)
	if err != nil {
		return nil, fmt.Errorf("session judge: %w", err)
	}
	validator, err := s.registry.Validator(judge.Validator.Name)
	if err != nil {
		clog.FromContext(ctx).Errorf("judge %s: %v", judge.ID, err)
		return nil, err
	}
	model, err := s.store.GetModel(ctx, session.AgentID)
	if err != nil {
		return nil, fmt.Errorf("assigned model: %w", err)
	}

	start := s.now()
	defer func() { metrics.TurnDuration.Observe(s.now().Sub(start).Seconds()) }()

	session.History = append(session.History, domain.ChatMessage{Role: domain.RoleUser, Content: prompt})
	cfg := session.Metadata.ModelConfig
	eval := NewEvaluator(judge.Validator.Name, validator, session.Kwargs(), cfg.ToolsConfig.Enabled)

	genCtx, cancel := s.generationContext(ctx)
	defer cancel()

	req := &llm.GenerateRequest{
		Provider: model.Provider,
		Model:    model.ModelName,
		Messages: session.PromptMessages(),
	}
	if cfg.ToolsConfig.Enabled {
		req.Tools = cfg.ToolsConfig.Tools
	}

	result := &TurnResult{Status: domain.StatusPlaying, WinAt: -1}

	stream, err := s.llm.Generate(genCtx, req)
	if err != nil {
		return s.failTurn(ctx, result, model.Provider, err, emit), nil
	}
	defer stream.Close()

	for token, err := range stream.Tokens(genCtx) {
		if err != nil {
			return s.failTurn(ctx, result, model.Provider, err, emit), nil
		}
		if eval.Feed(ctx, token) {
			clog.FromContext(ctx).Infof("win detected at token %d", eval.WinAt())
		}
		if err := emit(domain.MessageEvent(token)); err != nil {
			return s.abandonTurn(ctx, result, err), nil
		}
	}
	if err := ctx.Err(); err != nil {
		return s.abandonTurn(ctx, result, err), nil
	}

	if eval.CheckCalls(ctx, stream.FunctionCalls()) {
		clog.FromContext(ctx).Info("win detected from function call")
	}
	result.Tokens = eval.Tokens()
	result.WinAt = eval.WinAt()

	session.History = append(session.History, domain.ChatMessage{Role: domain.RoleAssistant, Content: eval.Text()})
	fields := []string{domain.FieldHistory}
	if eval.Won() {
		if err := session.Conclude(domain.OutcomeWin, s.now()); err != nil {
			return nil, err
		}
		fields = append(fields, domain.TerminalFields...)
	}
	result.Status = session.Status()

	if err := s.persist(ctx, session, fields); err != nil {
		result.Err = err
		_ = emit(domain.ErrorEvent(err))
	} else {
		result.Persisted = true
		if session.Completed {
			metrics.SessionOutcomes.WithLabelValues(string(session.Outcome)).Inc()
			clog.FromContext(ctx).Infof("session ended with %s", session.Outcome)
		}
	}

	metrics.Turns.WithLabelValues(result.Status).Inc()
	_ = emit(domain.EndEvent(result.Status))
	return result, nil
}

func (s *Service) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.LLMTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.LLMTimeout)
	}
	return context.WithCancel(ctx)
}

// persist writes fields synchronously. The write survives a client that
// disconnects after the stream has been fully produced.
func (s *Service) persist(ctx context.Context, session *domain.GameSession, fields []string) error {
	pctx := context.WithoutCancel(ctx)
	if s.opts.PersistTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(pctx, s.opts.PersistTimeout)
		defer cancel()
	}

	if err := s.store.UpdateSession(pctx, session.ID, fields, session); err != nil {
		metrics.PersistenceFailures.Inc()
		perr := &domain.PersistenceError{SessionID: session.ID, Fields: fields, Err: err}
		clog.FromContext(ctx).Errorf("%v", perr)
		return perr
	}
	return nil
}

// failTurn reports an upstream failure. History is left as stored.
func (s *Service) failTurn(ctx context.Context, result *TurnResult, provider string, err error, emit Emitter) *TurnResult {
	if ctx.Err() != nil {
		return s.abandonTurn(ctx, result, ctx.Err())
	}
	var up *domain.UpstreamError
	if !errors.As(err, &up) {
		err = &domain.UpstreamError{Provider: provider, Err: err}
	}
	metrics.UpstreamErrors.WithLabelValues(provider).Inc()
	metrics.Turns.WithLabelValues("failed").Inc()
	clog.FromContext(ctx).Errorf("generation failed: %v", err)

	result.Err = err
	_ = emit(domain.ErrorEvent(err))
	_ = emit(domain.EndEvent(result.Status))
	return result
}

// abandonTurn handles a client that went away: nothing is persisted.
func (s *Service) abandonTurn(ctx context.Context, result *TurnResult, cause error) *TurnResult {
	metrics.Turns.WithLabelValues("abandoned").Inc()
	clog.FromContext(ctx).Warnf("turn abandoned, skipping persistence: %v", cause)
	result.Err = cause
	return result
}

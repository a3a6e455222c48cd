package domain

import (
	"maps"
	"time"
)

// ChatMessage is one history entry.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionMetadata is captured once at session creation.
type SessionMetadata struct {
	GameRules   GameRules      `json:"game_rules"`
	ModelConfig ModelConfig    `json:"model_config"`
	Kwargs      map[string]any `json:"kwargs"`
}

// GameSession is one user's play-through of a game.
type GameSession struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	GameID        string          `json:"game_id"`
	JudgeID       string          `json:"judge_id"`
	AgentID       string          `json:"agent_id"`
	Description   string          `json:"description"`
	History       []ChatMessage   `json:"history"`
	Metadata      SessionMetadata `json:"metadata"`
	Completed     bool            `json:"completed"`
	Outcome       Outcome         `json:"outcome,omitempty"`
	CreateTime    time.Time       `json:"create_time"`
	CompletedTime *time.Time      `json:"completed_time,omitempty"`
	Shared        string          `json:"shared,omitempty"`
	Visible       bool            `json:"visible"`
}

// Conclude moves the session into a terminal state. The three terminal
// fields always change together.
func (s *GameSession) Conclude(outcome Outcome, now time.Time) error {
	if !outcome.Valid() {
		return ErrInvalidArgument
	}
	if s.Completed {
		return ErrForbidden
	}
	t := now.UTC()
	s.Completed = true
	s.Outcome = outcome
	s.CompletedTime = &t
	return nil
}

// Status is the value reported in end-of-turn events.
func (s *GameSession) Status() string {
	if s.Completed {
		return string(s.Outcome)
	}
	return StatusPlaying
}

// Kwargs returns a copy of the validator kwargs so callers can extend them
// without touching the stored metadata.
func (s *GameSession) Kwargs() map[string]any {
	out := make(map[string]any, len(s.Metadata.Kwargs)+2)
	maps.Copy(out, s.Metadata.Kwargs)
	return out
}

// PromptMessages prepends the system prompt to the stored history.
func (s *GameSession) PromptMessages() []ChatMessage {
	msgs := make([]ChatMessage, 0, len(s.History)+1)
	if p := s.Metadata.ModelConfig.SystemPrompt; p != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: p})
	}
	return append(msgs, s.History...)
}

// SessionSummary is the listing view of a completed session.
type SessionSummary struct {
	ID            string     `json:"id"`
	GameID        string     `json:"game_id"`
	AgentID       string     `json:"agent_id"`
	Description   string     `json:"description"`
	Outcome       Outcome    `json:"outcome,omitempty"`
	CreateTime    time.Time  `json:"create_time"`
	CompletedTime *time.Time `json:"completed_time,omitempty"`
	Duration      float64    `json:"duration_seconds"`
	Turns         int        `json:"turns"`
}

// Summary builds the listing view.
func (s *GameSession) Summary() SessionSummary {
	sum := SessionSummary{
		ID:            s.ID,
		GameID:        s.GameID,
		AgentID:       s.AgentID,
		Description:   s.Description,
		Outcome:       s.Outcome,
		CreateTime:    s.CreateTime,
		CompletedTime: s.CompletedTime,
		Turns:         len(s.History) / 2,
	}
	if s.CompletedTime != nil {
		sum.Duration = s.CompletedTime.Sub(s.CreateTime).Seconds()
	}
	return sum
}

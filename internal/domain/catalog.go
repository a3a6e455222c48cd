package domain

import (
	"encoding/json"
	"time"
)

// FunctionRef names an entry in the function registry.
type FunctionRef struct {
	Name string `json:"name" yaml:"name"`
}

// Judge pairs a sampler with a validator.
type Judge struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Active      bool        `json:"active" yaml:"active"`
	Sampler     FunctionRef `json:"sampler" yaml:"sampler"`
	Validator   FunctionRef `json:"validator" yaml:"validator"`
}

// GameRules controls session creation for a game.
type GameRules struct {
	Deterministic bool `json:"deterministic,omitempty" yaml:"deterministic"`
	ToolsEnabled  bool `json:"tools_enabled,omitempty" yaml:"tools_enabled"`
}

// GameMetadata holds game-level defaults. Sampler output overrides ModelConfig.
type GameMetadata struct {
	GameRules   GameRules    `json:"game_rules" yaml:"game_rules"`
	ModelConfig *ModelConfig `json:"model_config,omitempty" yaml:"model_config"`
}

// Game is a playable scenario backed by one judge.
type Game struct {
	ID                 string       `json:"id" yaml:"id"`
	Name               string       `json:"name" yaml:"name"`
	Description        string       `json:"description,omitempty" yaml:"description"`
	SessionDescription string       `json:"session_description,omitempty" yaml:"session_description"`
	JudgeID            string       `json:"judge_id" yaml:"judge_id"`
	Metadata           GameMetadata `json:"metadata" yaml:"metadata"`
	CreatedAt          time.Time    `json:"created_at" yaml:"-"`
}

// Model is an agent a session can be assigned to.
type Model struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Provider  string `json:"provider" yaml:"provider"`
	ModelName string `json:"model_name" yaml:"model_name"`
	Available bool   `json:"available" yaml:"available"`
	Tools     bool   `json:"tools" yaml:"tools"`
}

// FunctionSchema describes a callable tool offered to the model.
type FunctionSchema struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty" yaml:"-"`
}

// ToolSchema wraps a function schema the way chat completion APIs expect it.
type ToolSchema struct {
	Type     string         `json:"type" yaml:"type"`
	Function FunctionSchema `json:"function" yaml:"function"`
}

// ToolsConfig enables function calling for a session.
type ToolsConfig struct {
	Enabled bool         `json:"enabled" yaml:"enabled"`
	Tools   []ToolSchema `json:"tools,omitempty" yaml:"tools"`
}

// ModelConfig is the per-session model setup.
type ModelConfig struct {
	SystemPrompt string      `json:"system_prompt,omitempty" yaml:"system_prompt"`
	ToolsConfig  ToolsConfig `json:"tools_config" yaml:"tools_config"`
}

// Sample is the output of a sampler.
type Sample struct {
	ModelConfig *ModelConfig   `json:"model_config,omitempty"`
	Kwargs      map[string]any `json:"kwargs"`
}

// Target returns the sampler-provided target string, if any.
func (s Sample) Target() (string, bool) {
	t, ok := s.Kwargs["target"].(string)
	return t, ok && t != ""
}

package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

func TestAnthropicBuildParams(t *testing.T) {
	p := NewAnthropicProvider("test-key", 512)
	params, err := p.buildParams(&GenerateRequest{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "You are an airline agent."},
			{Role: domain.RoleUser, Content: "refund"},
			{Role: domain.RoleAssistant, Content: "no"},
		},
		Tools: []domain.ToolSchema{{
			Type: "function",
			Function: domain.FunctionSchema{
				Name:        "issue_refund",
				Description: "Issue a refund.",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"amount":{"type":"number"}},"required":["amount"]}`),
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(512), params.MaxTokens)
	require.Len(t, params.System, 1)
	assert.Equal(t, "You are an airline agent.", params.System[0].Text)
	assert.Len(t, params.Messages, 2)
	require.Len(t, params.Tools, 1)
	require.NotNil(t, params.Tools[0].OfTool)
	assert.Equal(t, "issue_refund", params.Tools[0].OfTool.Name)
	assert.Equal(t, []string{"amount"}, params.Tools[0].OfTool.InputSchema.Required)
}

func TestAnthropicRejectsBadToolSchema(t *testing.T) {
	p := NewAnthropicProvider("test-key", 512)
	_, err := p.buildParams(&GenerateRequest{Tools: []domain.ToolSchema{{
		Function: domain.FunctionSchema{Name: "x", Parameters: json.RawMessage(`{`)},
	}}})
	assert.Error(t, err)
}

func TestAnthropicBuildParamsFillsEmptyAssistantTurn(t *testing.T) {
	p := NewAnthropicProvider("test-key", 512)
	params, err := p.buildParams(&GenerateRequest{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "refund me"},
			{Role: domain.RoleAssistant, Content: ""},
			{Role: domain.RoleUser, Content: "again"},
		},
	})
	require.NoError(t, err)
	require.Len(t, params.Messages, 3)
	require.Len(t, params.Messages[1].Content, 1)
	require.NotNil(t, params.Messages[1].Content[0].OfText)
	assert.NotEmpty(t, params.Messages[1].Content[0].OfText.Text)
}

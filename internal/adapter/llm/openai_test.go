package llm

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

func TestToolCallAccumulator(t *testing.T) {
	zero, one := 0, 1
	acc := &toolCallAccumulator{byIndex: map[int]*FunctionCall{}}
	acc.add(openai.ToolCall{Index: &zero, Function: openai.FunctionCall{Name: "issue_refund", Arguments: `{"amo`}})
	acc.add(openai.ToolCall{Index: &one, Function: openai.FunctionCall{Name: "lookup", Arguments: `{}`}})
	acc.add(openai.ToolCall{Index: &zero, Function: openai.FunctionCall{Arguments: `unt": 500}`}})

	assert.Equal(t, []FunctionCall{
		{Name: "issue_refund", Arguments: `{"amount": 500}`},
		{Name: "lookup", Arguments: `{}`},
	}, acc.calls())
}

func TestToOpenAIMessages(t *testing.T) {
	msgs := toOpenAIMessages([]domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "s"},
		{Role: domain.RoleUser, Content: "u"},
		{Role: domain.RoleAssistant, Content: "a"},
	})
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
}

func TestToOpenAIMessagesFillsEmptyAssistantTurn(t *testing.T) {
	msgs := toOpenAIMessages([]domain.ChatMessage{
		{Role: domain.RoleUser, Content: "refund me"},
		{Role: domain.RoleAssistant, Content: ""},
		{Role: domain.RoleUser, Content: "again"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[1].Role)
	assert.NotEmpty(t, msgs[1].Content)
	assert.Equal(t, "refund me", msgs[0].Content)
}

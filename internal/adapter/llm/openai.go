package llm

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

// OpenAIProvider streams chat completions from an OpenAI compatible API.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a provider. baseURL may be empty.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}
}

var _ Provider = (*OpenAIProvider)(nil)

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Generate implements Provider.
func (p *OpenAIProvider) Generate(ctx context.Context, req *GenerateRequest) (CompletionStream, error) {
	creq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
		Stream:   true,
	}
	for _, t := range req.Tools {
		creq.Tools = append(creq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, creq)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: p.Name(), Err: err}
	}

	acc := &toolCallAccumulator{byIndex: map[int]*FunctionCall{}}
	flushed := false
	pull := func(context.Context) (Chunk, error) {
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				if !flushed {
					flushed = true
					return Chunk{Calls: acc.calls()}, nil
				}
				return Chunk{}, io.EOF
			}
			if err != nil {
				return Chunk{}, &domain.UpstreamError{Provider: p.Name(), Err: err}
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			for _, tc := range delta.ToolCalls {
				acc.add(tc)
			}
			if delta.Content != "" {
				return Chunk{Text: delta.Content}, nil
			}
		}
	}
	return NewStream(pull, stream.Close), nil
}

func toOpenAIMessages(msgs []domain.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role, content := openai.ChatMessageRoleUser, m.Content
		switch m.Role {
		case domain.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role, content = openai.ChatMessageRoleAssistant, assistantContent(m.Content)
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: content})
	}
	return out
}

// toolCallAccumulator joins streamed tool call fragments by index.
type toolCallAccumulator struct {
	byIndex map[int]*FunctionCall
	order   []int
}

func (a *toolCallAccumulator) add(tc openai.ToolCall) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	call, ok := a.byIndex[idx]
	if !ok {
		call = &FunctionCall{}
		a.byIndex[idx] = call
		a.order = append(a.order, idx)
	}
	if tc.Function.Name != "" {
		call.Name = tc.Function.Name
	}
	call.Arguments += tc.Function.Arguments
}

func (a *toolCallAccumulator) calls() []FunctionCall {
	out := make([]FunctionCall, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, *a.byIndex[idx])
	}
	return out
}

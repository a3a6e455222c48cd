package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

// AnthropicProvider streams messages from the Anthropic API.
type AnthropicProvider struct {
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropicProvider creates a provider.
func NewAnthropicProvider(apiKey string, maxTokens int) *AnthropicProvider {
	return &AnthropicProvider{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		maxTokens: int64(maxTokens),
	}
}

var _ Provider = (*AnthropicProvider)(nil)

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Generate implements Provider.
func (p *AnthropicProvider) Generate(ctx context.Context, req *GenerateRequest) (CompletionStream, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	var message anthropic.Message
	flushed := false

	pull := func(context.Context) (Chunk, error) {
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				return Chunk{}, &domain.UpstreamError{Provider: p.Name(), Err: err}
			}
			if ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
					return Chunk{Text: d.Text}, nil
				}
			}
		}
		if err := stream.Err(); err != nil {
			return Chunk{}, &domain.UpstreamError{Provider: p.Name(), Err: err}
		}
		if !flushed {
			flushed = true
			return Chunk{Calls: toolUseCalls(message)}, nil
		}
		return Chunk{}, io.EOF
	}
	return NewStream(pull, stream.Close), nil
}

func (p *AnthropicProvider) buildParams(req *GenerateRequest) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: p.maxTokens,
	}

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(assistantContent(m.Content))))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n\n")}}
	}

	for _, t := range req.Tools {
		def, err := toAnthropicTool(t)
		if err != nil {
			return params, err
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &def})
	}
	return params, nil
}

func toAnthropicTool(t domain.ToolSchema) (anthropic.ToolParam, error) {
	var schema struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if len(t.Function.Parameters) > 0 {
		if err := json.Unmarshal(t.Function.Parameters, &schema); err != nil {
			return anthropic.ToolParam{}, fmt.Errorf("tool %s parameters: %w", t.Function.Name, err)
		}
	}
	def := anthropic.ToolParam{
		Name: t.Function.Name,
		InputSchema: anthropic.ToolInputSchemaParam{
			Type:       "object",
			Properties: schema.Properties,
			Required:   schema.Required,
		},
	}
	if t.Function.Description != "" {
		def.Description = anthropic.String(t.Function.Description)
	}
	return def, nil
}

func toolUseCalls(message anthropic.Message) []FunctionCall {
	var calls []FunctionCall
	for _, content := range message.Content {
		if content.Type == "tool_use" {
			calls = append(calls, FunctionCall{Name: content.Name, Arguments: string(content.Input)})
		}
	}
	return calls
}

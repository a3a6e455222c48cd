// Package llm adapts completion providers to a replayable token stream.
package llm

import (
	"context"
	"iter"
	"strings"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

// FunctionCall is a complete function call emitted by the model.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// GenerateRequest is one completion call.
type GenerateRequest struct {
	Provider string
	Model    string
	Messages []domain.ChatMessage
	Tools    []domain.ToolSchema
}

// CompletionStream is a lazily consumed model response.
type CompletionStream interface {
	// Tokens yields buffered fragments first, then continues pulling from
	// the provider. It can be ranged over any number of times.
	Tokens(ctx context.Context) iter.Seq2[string, error]
	// FunctionCalls is only meaningful after Tokens has been exhausted.
	FunctionCalls() []FunctionCall
	// Text joins all fragments buffered so far.
	Text() string
	Close() error
}

// Provider starts completion streams.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (CompletionStream, error)
}

// emptyReply stands in for an assistant turn that produced a function call
// but no text. Providers reject empty assistant content on replay.
const emptyReply = "(no reply)"

func assistantContent(content string) string {
	if strings.TrimSpace(content) == "" {
		return emptyReply
	}
	return content
}

package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

// MockProvider replies without calling any API. It echoes the last user
// message unless a script has been queued.
type MockProvider struct {
	mu      sync.Mutex
	scripts []Script
	// Requests records every request for inspection in tests.
	Requests []GenerateRequest
}

// Script is one canned response.
type Script struct {
	Tokens []string
	Calls  []FunctionCall
	// FailAfter makes the stream fail once this many tokens have been sent.
	// Zero disables it.
	FailAfter int
	// GenerateErr fails the call before any stream exists.
	GenerateErr error
}

// NewMockProvider creates a mock provider that answers with scripts in order.
func NewMockProvider(scripts ...Script) *MockProvider {
	return &MockProvider{scripts: scripts}
}

var _ Provider = (*MockProvider)(nil)

// Name implements Provider.
func (m *MockProvider) Name() string { return "mock" }

// Enqueue appends a script.
func (m *MockProvider) Enqueue(s Script) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, s)
}

// Generate implements Provider.
func (m *MockProvider) Generate(ctx context.Context, req *GenerateRequest) (CompletionStream, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, *req)
	var script Script
	if len(m.scripts) > 0 {
		script, m.scripts = m.scripts[0], m.scripts[1:]
	} else {
		script = Script{Tokens: splitIntoChunks(m.generateMockResponse(req), 10)}
	}
	m.mu.Unlock()

	if script.GenerateErr != nil {
		return nil, &domain.UpstreamError{Provider: m.Name(), Err: script.GenerateErr}
	}

	i := 0
	pull := func(ctx context.Context) (Chunk, error) {
		if err := ctx.Err(); err != nil {
			return Chunk{}, err
		}
		if script.FailAfter > 0 && i == script.FailAfter {
			return Chunk{}, &domain.UpstreamError{Provider: m.Name(), Err: fmt.Errorf("connection reset after %d tokens", i)}
		}
		if i < len(script.Tokens) {
			i++
			return Chunk{Text: script.Tokens[i-1]}, nil
		}
		if i == len(script.Tokens) {
			i++
			return Chunk{Calls: script.Calls}, nil
		}
		return Chunk{}, io.EOF
	}
	return NewStream(pull, nil), nil
}

func (m *MockProvider) generateMockResponse(req *GenerateRequest) string {
	if len(req.Tools) > 0 {
		return fmt.Sprintf("[MOCK] I could call '%s', but I will not.", req.Tools[0].Function.Name)
	}

	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == domain.RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}
	if lastUserMessage == "" {
		return "[MOCK] Hello! What can I help you today."
	}
	return "[MOCK] You said: " + lastUserMessage
}

// splitIntoChunks splits text into chunks of roughly size runes, keeping words intact.
func splitIntoChunks(text string, size int) []string {
	var chunks []string
	var b strings.Builder
	for _, word := range strings.SplitAfter(text, " ") {
		if b.Len() > 0 && b.Len()+len(word) > size {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

package llm

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

func collect(t *testing.T, ctx context.Context, s CompletionStream, limit int) ([]string, error) {
	t.Helper()
	var out []string
	for tok, err := range s.Tokens(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, tok)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestStreamReplaysBufferedTokens(t *testing.T) {
	ctx := context.Background()
	pulls := 0
	tokens := []string{"I ", "cannot ", "help"}
	s := NewStream(func(context.Context) (Chunk, error) {
		if pulls == len(tokens) {
			return Chunk{}, io.EOF
		}
		pulls++
		return Chunk{Text: tokens[pulls-1]}, nil
	}, nil)

	first, err := collect(t, ctx, s, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"I ", "cannot "}, first)
	assert.Equal(t, 2, pulls)

	all, err := collect(t, ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, tokens, all)

	again, err := collect(t, ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, tokens, again)
	assert.Equal(t, 3, pulls)
	assert.Equal(t, "I cannot help", s.Text())
}

func TestStreamFunctionCallsAfterExhaustion(t *testing.T) {
	ctx := context.Background()
	call := FunctionCall{Name: "issue_refund", Arguments: `{"amount": 500}`}
	m := NewMockProvider(Script{Tokens: []string{"Sure", "."}, Calls: []FunctionCall{call}})

	s, err := m.Generate(ctx, &GenerateRequest{Model: "mock"})
	require.NoError(t, err)

	_, err = collect(t, ctx, s, 1)
	require.NoError(t, err)
	assert.Empty(t, s.FunctionCalls())

	_, err = collect(t, ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, []FunctionCall{call}, s.FunctionCalls())
}

func TestStreamSurfacesUpstreamError(t *testing.T) {
	ctx := context.Background()
	m := NewMockProvider(Script{Tokens: []string{"a", "b", "c"}, FailAfter: 2})

	s, err := m.Generate(ctx, &GenerateRequest{})
	require.NoError(t, err)

	got, err := collect(t, ctx, s, 0)
	assert.Equal(t, []string{"a", "b"}, got)
	var up *domain.UpstreamError
	assert.True(t, errors.As(err, &up))
	assert.Nil(t, s.FunctionCalls())

	got, err = collect(t, ctx, s, 0)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Error(t, err)
}

func TestStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMockProvider(Script{Tokens: []string{"a", "b"}})
	s, err := m.Generate(ctx, &GenerateRequest{})
	require.NoError(t, err)

	cancel()
	_, err = collect(t, ctx, s, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockEchoesLastUserMessage(t *testing.T) {
	ctx := context.Background()
	m := NewMockProvider()
	s, err := m.Generate(ctx, &GenerateRequest{Messages: []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: "be nice"},
		{Role: domain.RoleUser, Content: "refund please"},
	}})
	require.NoError(t, err)
	_, err = collect(t, ctx, s, 0)
	require.NoError(t, err)
	assert.Equal(t, "[MOCK] You said: refund please", s.Text())
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	r := NewRouter()
	_, err := r.Generate(ctx, &GenerateRequest{Provider: "openai"})
	assert.Equal(t, domain.KindUpstream, domain.Kind(err))

	m := NewMockProvider(Script{Tokens: []string{"ok"}})
	r.Register(m)
	s, err := r.Generate(ctx, &GenerateRequest{Provider: "mock"})
	require.NoError(t, err)
	_, _ = collect(t, ctx, s, 0)
	assert.Equal(t, "ok", s.Text())
}

func TestSplitIntoChunks(t *testing.T) {
	chunks := splitIntoChunks("one two three four five", 10)
	assert.Equal(t, "one two three four five", joinAll(chunks))
	assert.Greater(t, len(chunks), 1)
}

func joinAll(parts []string) string {
	var s string
	for _, p := range parts {
		s += p
	}
	return s
}

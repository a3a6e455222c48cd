package service

import (
	"context"
	"maps"
	"strings"

	"github.com/shizhouxing/project-enigma/internal/adapter/llm"
	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/registry"
)

// Evaluator judges one turn. In text mode every token re-checks the whole
// accumulated text; in function-call mode only the completed calls are
// checked, once, after the stream ends. A win is recorded at most once.
type Evaluator struct {
	name   string
	fn     registry.ValidatorFunc
	kwargs map[string]any
	tools  bool

	text   strings.Builder
	tokens int
	won    bool
	winAt  int
}

// NewEvaluator creates an evaluator for a validator and the session's kwargs.
func NewEvaluator(name string, fn registry.ValidatorFunc, kwargs map[string]any, toolsEnabled bool) *Evaluator {
	return &Evaluator{name: name, fn: fn, kwargs: kwargs, tools: toolsEnabled, winAt: -1}
}

// Feed appends token and reports whether it produced the win.
func (e *Evaluator) Feed(ctx context.Context, token string) bool {
	e.text.WriteString(token)
	e.tokens++
	if e.tools || e.won {
		return false
	}
	if registry.Check(ctx, e.name, e.fn, e.text.String(), e.kwargs) {
		e.won = true
		e.winAt = e.tokens - 1
		return true
	}
	return false
}

// CheckCalls evaluates the completed function calls and reports whether any
// of them produced the win.
func (e *Evaluator) CheckCalls(ctx context.Context, calls []llm.FunctionCall) bool {
	if !e.tools || e.won {
		return false
	}
	source := e.text.String()
	for _, call := range calls {
		kwargs := maps.Clone(e.kwargs)
		if kwargs == nil {
			kwargs = map[string]any{}
		}
		kwargs[domain.KwargFunctionCallName] = call.Name
		kwargs[domain.KwargFunctionCallArguments] = call.Arguments
		if registry.Check(ctx, e.name, e.fn, source, kwargs) {
			e.won = true
			e.winAt = e.tokens
			return true
		}
	}
	return false
}

// Won reports whether the turn met the win condition.
func (e *Evaluator) Won() bool { return e.won }

// WinAt is the index of the winning token, len(tokens) for a function-call
// win, or -1.
func (e *Evaluator) WinAt() int { return e.winAt }

// Text is the accumulated assistant message.
func (e *Evaluator) Text() string { return e.text.String() }

// Tokens is the number of fragments fed.
func (e *Evaluator) Tokens() int { return e.tokens }

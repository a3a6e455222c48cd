// Package policy evaluates function calls emitted by a model against the
// expected call recorded for a session.
package policy

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

//go:embed function_call.rego
var FunctionCallPolicy string

// Engine is a prepared OPA query returning a decision object.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Decision is the result of evaluating a call.
type Decision struct {
	Win    bool
	Reason string
}

// NewEngine prepares the given policy module. The module must define
// data.enigma.function_call.decision.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.enigma.function_call.decision"),
		rego.Module("function_call.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewDefaultEngine prepares FunctionCallPolicy.
func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	return NewEngine(ctx, FunctionCallPolicy)
}

// CallInput is what the policy sees.
type CallInput struct {
	Name      string
	Arguments any
	Expected  string
	Schema    any
}

func (in CallInput) toMap() map[string]any {
	return map[string]any{
		"call": map[string]any{
			"name":      in.Name,
			"arguments": in.Arguments,
		},
		"expected": map[string]any{
			"name":   in.Expected,
			"schema": in.Schema,
		},
	}
}

// Evaluate checks one function call.
func (e *Engine) Evaluate(ctx context.Context, in CallInput) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in.toMap()))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Reason: "undefined decision"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{}, fmt.Errorf("unexpected decision type %T", results[0].Expressions[0].Value)
	}
	win, _ := obj["win"].(bool)
	reason, _ := obj["reason"].(string)
	return Decision{Win: win, Reason: reason}, nil
}

// Package registry maps persisted function names to samplers and validators.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/metrics"
)

// SamplerFunc produces a self-contained scenario for a new session.
type SamplerFunc func() (domain.Sample, error)

// ValidatorFunc decides whether source (the turn's accumulated text) meets
// the win condition described by kwargs. It must be pure.
type ValidatorFunc func(ctx context.Context, source string, kwargs map[string]any) (bool, error)

// Registry stores samplers and validators keyed by name. It is built once at
// startup and passed to the components that resolve judge references.
type Registry struct {
	mu         sync.RWMutex
	samplers   map[string]SamplerFunc
	validators map[string]ValidatorFunc
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		samplers:   make(map[string]SamplerFunc),
		validators: make(map[string]ValidatorFunc),
	}
}

// RegisterSampler adds a sampler under name.
func (r *Registry) RegisterSampler(name string, fn SamplerFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("sampler name and function are required: %w", domain.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.samplers[name]; exists {
		return fmt.Errorf("sampler already registered for %s: %w", name, domain.ErrDuplicateName)
	}
	r.samplers[name] = fn
	return nil
}

// RegisterValidator adds a validator under name.
func (r *Registry) RegisterValidator(name string, fn ValidatorFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("validator name and function are required: %w", domain.ErrInvalidArgument)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.validators[name]; exists {
		return fmt.Errorf("validator already registered for %s: %w", name, domain.ErrDuplicateName)
	}
	r.validators[name] = fn
	return nil
}

// MustRegisterSampler panics if the sampler cannot be registered.
func (r *Registry) MustRegisterSampler(name string, fn SamplerFunc) {
	if err := r.RegisterSampler(name, fn); err != nil {
		panic(err)
	}
}

// MustRegisterValidator panics if the validator cannot be registered.
func (r *Registry) MustRegisterValidator(name string, fn ValidatorFunc) {
	if err := r.RegisterValidator(name, fn); err != nil {
		panic(err)
	}
}

// Sampler looks up a sampler.
func (r *Registry) Sampler(name string) (SamplerFunc, error) {
	r.mu.RLock()
	fn := r.samplers[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, &domain.RegistryLookupError{Kind: domain.KindSampler, Name: name}
	}
	return fn, nil
}

// Validator looks up a validator.
func (r *Registry) Validator(name string) (ValidatorFunc, error) {
	r.mu.RLock()
	fn := r.validators[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, &domain.RegistryLookupError{Kind: domain.KindValidator, Name: name}
	}
	return fn, nil
}

// Sample runs the named sampler.
func (r *Registry) Sample(name string) (domain.Sample, error) {
	fn, err := r.Sampler(name)
	if err != nil {
		return domain.Sample{}, err
	}
	s, err := fn()
	if err != nil {
		return domain.Sample{}, fmt.Errorf("sampler %s: %w", name, err)
	}
	if s.Kwargs == nil {
		s.Kwargs = map[string]any{}
	}
	return s, nil
}

// Validate resolves and runs the named validator. Errors and panics raised
// by the validator count as false; only a failed lookup is returned.
func (r *Registry) Validate(ctx context.Context, name, source string, kwargs map[string]any) (bool, error) {
	fn, err := r.Validator(name)
	if err != nil {
		return false, err
	}
	return Check(ctx, name, fn, source, kwargs), nil
}

// Check runs an already resolved validator with error and panic containment.
func Check(ctx context.Context, name string, fn ValidatorFunc, source string, kwargs map[string]any) (won bool) {
	defer func() {
		if p := recover(); p != nil {
			clog.FromContext(ctx).With("validator", name).Warnf("validator panicked, treating as false: %v", p)
			metrics.ValidatorCalls.WithLabelValues(name, "error").Inc()
			won = false
		}
	}()

	ok, err := fn(ctx, source, kwargs)
	switch {
	case err != nil:
		clog.FromContext(ctx).With("validator", name).Warnf("validator failed, treating as false: %v", err)
		metrics.ValidatorCalls.WithLabelValues(name, "error").Inc()
		return false
	case ok:
		metrics.ValidatorCalls.WithLabelValues(name, "win").Inc()
	default:
		metrics.ValidatorCalls.WithLabelValues(name, "miss").Inc()
	}
	return ok
}

// SamplerNames lists registered samplers in order.
func (r *Registry) SamplerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.samplers)
}

// ValidatorNames lists registered validators in order.
func (r *Registry) ValidatorNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.validators)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

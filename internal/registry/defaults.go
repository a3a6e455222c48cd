package registry

import (
	"context"
	"fmt"

	"github.com/shizhouxing/project-enigma/internal/policy"
)

// NewDefault returns a registry holding every built-in sampler and validator.
func NewDefault(ctx context.Context) (*Registry, error) {
	engine, err := policy.NewDefaultEngine(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare function call policy: %w", err)
	}

	r := New()
	r.MustRegisterValidator(ValidatorTarget, TargetValidator())
	r.MustRegisterValidator(ValidatorNoRefundTarget, FunctionCallValidator(engine))
	r.MustRegisterValidator(ValidatorRefundAmount, RefundAmountValidator())

	r.MustRegisterSampler(SamplerBadWord, BadWordSampler())
	r.MustRegisterSampler(SamplerForbiddenPhrase, ForbiddenPhraseSampler(defaultIntN))
	r.MustRegisterSampler(SamplerNoRefund, NoRefundSampler("", defaultIntN))
	for _, lvl := range Levels {
		r.MustRegisterSampler(NoRefundSamplerName(lvl), NoRefundSampler(lvl, defaultIntN))
	}
	return r, nil
}

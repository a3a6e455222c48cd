package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

func TestRegistryRegister(t *testing.T) {
	r := New()

	t.Run("validator", func(t *testing.T) {
		require.NoError(t, r.RegisterValidator("always", func(context.Context, string, map[string]any) (bool, error) {
			return true, nil
		}))
		err := r.RegisterValidator("always", func(context.Context, string, map[string]any) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateName)
	})

	t.Run("sampler namespace is separate", func(t *testing.T) {
		assert.NoError(t, r.RegisterSampler("always", BadWordSampler()))
		assert.ErrorIs(t, r.RegisterSampler("always", BadWordSampler()), domain.ErrDuplicateName)
	})

	t.Run("invalid", func(t *testing.T) {
		assert.ErrorIs(t, r.RegisterSampler("", BadWordSampler()), domain.ErrInvalidArgument)
		assert.ErrorIs(t, r.RegisterValidator("nil", nil), domain.ErrInvalidArgument)
	})

	t.Run("must register panics on duplicate", func(t *testing.T) {
		assert.Panics(t, func() { r.MustRegisterSampler("always", BadWordSampler()) })
	})
}

func TestRegistryLookup(t *testing.T) {
	r := New()

	_, err := r.Sampler("missing")
	var lookup *domain.RegistryLookupError
	require.True(t, errors.As(err, &lookup))
	assert.Equal(t, domain.KindSampler, lookup.Kind)
	assert.Equal(t, "missing", lookup.Name)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.KindRegistryLookup, domain.Kind(err))

	_, err = r.Validate(context.Background(), "missing", "text", nil)
	assert.Equal(t, domain.KindRegistryLookup, domain.Kind(err))
}

func TestValidateContainsFailures(t *testing.T) {
	r := New()
	r.MustRegisterValidator("broken", func(context.Context, string, map[string]any) (bool, error) {
		return true, errors.New("bad kwargs")
	})
	r.MustRegisterValidator("panics", func(context.Context, string, map[string]any) (bool, error) {
		panic("boom")
	})

	ok, err := r.Validate(context.Background(), "broken", "x", nil)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Validate(context.Background(), "panics", "x", nil)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestNewDefaultNames(t *testing.T) {
	r, err := NewDefault(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{ValidatorNoRefundTarget, ValidatorRefundAmount, ValidatorTarget}, r.ValidatorNames())
	assert.Contains(t, r.SamplerNames(), SamplerBadWord)
	assert.Contains(t, r.SamplerNames(), NoRefundSamplerName(LevelHard))
}

// Every sampler's kwargs must be accepted by the validator it is paired with.
func TestSamplerKwargsFeedPairedValidator(t *testing.T) {
	ctx := context.Background()
	r, err := NewDefault(ctx)
	require.NoError(t, err)

	pairs := map[string]string{
		SamplerBadWord:                   ValidatorTarget,
		SamplerForbiddenPhrase:           ValidatorTarget,
		SamplerNoRefund:                  ValidatorNoRefundTarget,
		NoRefundSamplerName(LevelEasy):   ValidatorNoRefundTarget,
		NoRefundSamplerName(LevelMedium): ValidatorNoRefundTarget,
		NoRefundSamplerName(LevelHard):   ValidatorNoRefundTarget,
	}

	for sampler, validator := range pairs {
		t.Run(sampler, func(t *testing.T) {
			fn, err := r.Validator(validator)
			require.NoError(t, err)

			for range 20 {
				s, err := r.Sample(sampler)
				require.NoError(t, err)

				kwargs := map[string]any{}
				for k, v := range s.Kwargs {
					kwargs[k] = v
				}
				if s.ModelConfig != nil && s.ModelConfig.ToolsConfig.Enabled {
					kwargs[domain.KwargFunctionCallName] = IssueRefundTool
					kwargs[domain.KwargFunctionCallArguments] = `{"confirmation_number":"12345","amount":500}`
				}
				_, err = fn(ctx, "some model output", kwargs)
				assert.NoError(t, err)
			}
		})
	}
}

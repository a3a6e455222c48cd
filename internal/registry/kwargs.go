package registry

import (
	"fmt"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

func stringKwarg(kwargs map[string]any, key string) (string, error) {
	v, ok := kwargs[key]
	if !ok {
		return "", fmt.Errorf("missing kwarg %q: %w", key, domain.ErrInvalidArgument)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("kwarg %q must be a string, got %T: %w", key, v, domain.ErrInvalidArgument)
	}
	return s, nil
}

func optionalString(kwargs map[string]any, key string) string {
	s, _ := kwargs[key].(string)
	return s
}

func optionalBool(kwargs map[string]any, key string) bool {
	b, _ := kwargs[key].(bool)
	return b
}

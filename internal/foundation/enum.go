// Package foundation holds small generic helpers shared by the config and
// error layers.
package foundation

import (
	"fmt"
	"strings"
)

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalizer maps loosely written strings (any case, surrounding space)
// onto a closed set of values.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
}

// NewNormalizer creates a normalizer from spelling->value pairs. Several
// spellings may map to the same value.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	folded := make(map[string]T, len(values))
	for k, v := range values {
		folded[fold(k)] = v
	}
	return &Normalizer[T]{values: folded, defaultValue: defaultValue}
}

// Normalize returns the value for raw, or the default when raw is unknown.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[fold(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// NormalizeWithError is Normalize that reports unknown input.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if v, ok := n.values[fold(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value: %s", raw)
}

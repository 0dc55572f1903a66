// Package llm provides the completion backends the advisor generates upgrade
// suggestions with, plus the prompt they are given.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a completion backend cannot be reached or
// is not configured.
var ErrUnavailable = errors.New("llm backend unavailable")

// Completer produces a completion for a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Provider names for configuration and metrics.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// ProviderName returns the provider label for a completer, or "unknown".
func ProviderName(c Completer) string {
	if named, ok := c.(interface{ Name() string }); ok {
		return named.Name()
	}
	return "unknown"
}

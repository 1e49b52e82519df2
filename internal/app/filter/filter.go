// Package filter provides the filter chain that trims playlist candidates.
package filter

import (
	"context"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
)

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "explicit_content", "duplicate_track", "market_restriction"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for candidate filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates the filter configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this filter should be applied to records from the given provider.
	AppliesTo(provider string) bool
	// Check performs the filter check. accepted holds the candidates already
	// kept for this playlist, in order.
	Check(ctx context.Context, req playlist.Request, t track.Raw, accepted []track.Raw) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}

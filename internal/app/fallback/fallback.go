// Package fallback decides what to do when a play request fails.
package fallback

import (
	"github.com/osa030/vibechef/internal/app/catalog"
	"github.com/osa030/vibechef/internal/domain/track"
)

// MaxRetries is the number of substitute attempts per failed play request.
const MaxRetries = 1

// Action is the outcome of a fallback decision.
type Action int

const (
	ActionGiveUp Action = iota // Keep the failure, do not retry
	ActionRetry                // Retry once with a substitute track
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionGiveUp:
		return "give_up"
	case ActionRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Attempt describes a failed play request.
type Attempt struct {
	Index     int    // Catalog position that failed
	SourceURL string // Location that failed
	Retries   int    // Substitute attempts already made for this request
}

// Decision is the result of Decide.
type Decision struct {
	Action     Action
	Substitute track.Track // Set when Action is ActionRetry
}

// Decide returns the next step after a failed play request.
// Sample URLs are never substituted, and each request gets at most MaxRetries substitutions.
func Decide(a Attempt) Decision {
	if catalog.IsSample(a.SourceURL) || a.Retries >= MaxRetries {
		return Decision{Action: ActionGiveUp}
	}
	return Decision{
		Action:     ActionRetry,
		Substitute: catalog.SampleAt(a.Index),
	}
}

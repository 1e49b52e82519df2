// Package track provides the Track domain entity.
package track

import "time"

// Track is the canonical, playable track entity.
// Values are immutable once resolved into a catalog.
type Track struct {
	ID        string // Track ID (caller supplied or synthesised)
	Title     string // Display title
	Artist    string // Display artist (multiple artists joined with ", ")
	SourceURL string // Location of the audio stream
}

// Raw is a loosely-typed track record as supplied by providers or callers.
// Every field is optional.
type Raw struct {
	ID         string   `mapstructure:"id"`
	Name       string   `mapstructure:"name"`
	Title      string   `mapstructure:"title"`
	Artists    []string `mapstructure:"artists"`
	Artist     string   `mapstructure:"artist"`
	PreviewURL string   `mapstructure:"preview_url"`
	URL        string   `mapstructure:"url"`
	Album      string   `mapstructure:"album"`
	DurationMs int      `mapstructure:"duration_ms"`
	Explicit   bool     `mapstructure:"explicit"`
	Markets    []string `mapstructure:"markets"`
	IsPlayable *bool    `mapstructure:"is_playable"` // Playable in the requested market (nil if unknown)
	Provider   string   `mapstructure:"-"`           // Provider that produced the record
}

// Duration returns the track length, or 0 if unknown.
func (r *Raw) Duration() time.Duration {
	if r.DurationMs <= 0 {
		return 0
	}
	return time.Duration(r.DurationMs) * time.Millisecond
}

// DisplayTitle returns name, then title, or "" if neither is set.
func (r *Raw) DisplayTitle() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Title
}

// IsAvailableInMarket checks if the record is available in the specified market.
func (r *Raw) IsAvailableInMarket(market string) bool {
	// If IsPlayable is set, it takes precedence (Track Relinking support)
	if r.IsPlayable != nil {
		return *r.IsPlayable
	}

	for _, m := range r.Markets {
		if m == market {
			return true
		}
	}
	return false
}

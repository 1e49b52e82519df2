package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
)

// DuplicateTrackFilter checks for duplicates among the tracks already accepted.
// Detects:
// - Exact track ID matches
// - Remasters (normalized track name + same artist)
// Excludes:
// - Cover songs (same track name but different artist)
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Rejects tracks already in the playlist, remasters included. Covers by other artists are allowed"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// AppliesTo returns which providers this filter applies to.
func (f *DuplicateTrackFilter) AppliesTo(provider string) bool {
	return true
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(config map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track is a duplicate.
func (f *DuplicateTrackFilter) Check(
	ctx context.Context,
	req playlist.Request,
	candidate track.Raw,
	accepted []track.Raw,
) Result {
	for _, kept := range accepted {
		// 1. Exact track ID match
		if kept.ID != "" && kept.ID == candidate.ID {
			return Result{
				Accepted: false,
				Code:     "duplicate_track",
			}
		}

		// 2. Remaster detection: normalized name + same artist
		if f.isRemaster(kept, candidate) {
			return Result{
				Accepted: false,
				Code:     "duplicate_track",
			}
		}
	}

	return Result{Accepted: true}
}

// isRemaster checks if two tracks are the same song (remaster/different version).
// Returns true if:
// - Normalized track names match
// - Main artist is the same
func (f *DuplicateTrackFilter) isRemaster(track1, track2 track.Raw) bool {
	// Normalize track names
	name1 := normalizeTrackName(track1.DisplayTitle())
	name2 := normalizeTrackName(track2.DisplayTitle())

	// If normalized names don't match, they're different songs
	if name1 == "" || name1 != name2 {
		return false
	}

	// Same normalized name - check if same artist
	// If different artists, it's a cover song (allowed)
	return isSameArtist(track1, track2)
}

var (
	// Remaster markers: "- 2011 Remaster", "(Remastered 2023)", "[Remastered]", "- Remastered"
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`),
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),
	}

	// Version markers: "(Single Version)", "(Radio Edit)", "- Live", "(Live)"
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),
		regexp.MustCompile(`\s*\(.*?edit\)`),
		regexp.MustCompile(`\s*\(live\)`),
		regexp.MustCompile(`\s*-?\s*\blive\b`),
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),
		regexp.MustCompile(`\s*-?\s*single\s+version`),
	}

	whitespace = regexp.MustCompile(`\s+`)
)

// normalizeTrackName removes remaster information and version details.
func normalizeTrackName(name string) string {
	normalized := strings.ToLower(name)
	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = whitespace.ReplaceAllString(strings.TrimSpace(normalized), " ")
	return strings.TrimRight(normalized, " -")
}

// isSameArtist checks if two tracks have the same main artist.
func isSameArtist(track1, track2 track.Raw) bool {
	a1, a2 := mainArtist(track1), mainArtist(track2)
	if a1 == "" || a2 == "" {
		return false
	}

	// Compare first (main) artist, case-insensitive
	return strings.EqualFold(a1, a2)
}

// mainArtist returns the first listed artist, or the single artist field.
func mainArtist(t track.Raw) string {
	if len(t.Artists) > 0 {
		return t.Artists[0]
	}
	return t.Artist
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter()
	})
}

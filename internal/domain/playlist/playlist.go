// Package playlist provides the generated Playlist domain entity.
package playlist

import (
	"fmt"
	"time"

	"github.com/osa030/vibechef/internal/domain/track"
)

// Request describes what the caller wants a playlist for.
type Request struct {
	Mood          string   // Free-form mood description ("chill", "rainy evening")
	Genres        []string // Optional genre hints
	Count         int      // Number of tracks wanted
	AvoidExplicit bool     // Drop explicit tracks
}

// Playlist is the result of a generation run.
type Playlist struct {
	Name        string      // Display name
	Description string      // One-line summary
	Request     Request     // Request this playlist was generated for
	Tracks      []track.Raw // Accepted candidates, in play order
}

// New builds a playlist with a name and summary derived from the request.
func New(req Request, tracks []track.Raw) *Playlist {
	mood := req.Mood
	if mood == "" {
		mood = "mixed"
	}
	return &Playlist{
		Name:        fmt.Sprintf("%s vibes", mood),
		Description: fmt.Sprintf("Created a %s playlist with %d tracks", mood, len(tracks)),
		Request:     req,
		Tracks:      tracks,
	}
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the total known duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration()
	}
	return total
}

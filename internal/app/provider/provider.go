// Package provider supplies raw track candidates for a playlist request.
package provider

import (
	"context"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/spotify"
)

// Provider is the interface for track candidate providers.
// Implementations find tracks through different sources
// (Spotify search, a curated playlist, Last.fm charts, local files).
type Provider interface {
	// GetCandidates retrieves up to req.Count candidates for the request.
	// existingTrackIDs holds tracks already collected (for duplicate avoidance).
	GetCandidates(ctx context.Context, req playlist.Request, existingTrackIDs map[string]bool) ([]track.Raw, error)

	// Name returns the provider type (used in config).
	Name() string
}

// SpotifyClient defines the Spotify operations needed by providers.
type SpotifyClient interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]track.Raw, error)
	Recommend(ctx context.Context, genres []string, features spotify.Features, limit int) ([]track.Raw, error)
	GetTrack(ctx context.Context, trackID string) (*track.Raw, error)
	GetPlaylistTracksRandom(ctx context.Context, playlistURL string, count int) ([]track.Raw, error)
}

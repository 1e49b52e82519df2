package provider

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/config"
)

// PlaylistProviderConfig holds the "playlist" provider settings.
type PlaylistProviderConfig struct {
	PlaylistURL    string `yaml:"playlist_url" mapstructure:"playlist_url" validate:"required"`
	CandidateCount int    `yaml:"candidate_count" mapstructure:"candidate_count" default:"50" validate:"gte=1,lte=100"`
}

// PlaylistProvider provides tracks by randomly selecting from a configured playlist.
// It keeps unused tracks from the last fetch to minimize Spotify API calls.
type PlaylistProvider struct {
	spotify SpotifyClient
	config  *PlaylistProviderConfig

	mu    sync.Mutex
	cache []track.Raw
}

// NewPlaylistProvider creates a new PlaylistProvider.
func NewPlaylistProvider(spotify SpotifyClient, settings map[string]any) (*PlaylistProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}
	var cfg PlaylistProviderConfig
	if err := config.DecodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("provider: playlist provider config: %+v", cfg)
	return &PlaylistProvider{
		spotify: spotify,
		config:  &cfg,
		cache:   make([]track.Raw, 0),
	}, nil
}

// GetCandidates retrieves random tracks from the configured playlist.
// Mood and genres are ignored: the playlist is the curation.
func (p *PlaylistProvider) GetCandidates(ctx context.Context, req playlist.Request, existingTrackIDs map[string]bool) ([]track.Raw, error) {
	if req.Count <= 0 {
		return []track.Raw{}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	available := make([]track.Raw, 0, len(p.cache))
	for _, t := range p.cache {
		if !existingTrackIDs[t.ID] {
			available = append(available, t)
		}
	}

	if len(available) < req.Count {
		needed := p.config.CandidateCount - len(available)
		if needed < req.Count {
			needed = req.Count
		}
		newTracks, err := p.spotify.GetPlaylistTracksRandom(ctx, p.config.PlaylistURL, needed)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get random tracks from playlist")
		}
		for _, t := range newTracks {
			if !existingTrackIDs[t.ID] && !contains(available, t.ID) {
				available = append(available, t)
			}
		}
	}

	n := req.Count
	if n > len(available) {
		n = len(available)
	}
	result := available[:n:n]
	p.cache = available[n:]
	return result, nil
}

// Name returns the provider name.
func (p *PlaylistProvider) Name() string {
	return "playlist"
}

// contains checks if a track ID is in the slice.
func contains(tracks []track.Raw, id string) bool {
	for _, t := range tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

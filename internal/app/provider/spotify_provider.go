package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/config"
)

const maxQueryWords = 3

// SpotifyProviderConfig holds the "spotify" provider settings.
type SpotifyProviderConfig struct {
	UseRecommendations *bool `yaml:"use_recommendations" mapstructure:"use_recommendations" default:"true"`
	SearchLimit        int   `yaml:"search_limit" mapstructure:"search_limit" default:"20" validate:"gte=1,lte=50"`
}

// SpotifyProvider finds tracks for a mood on Spotify: genre-seeded
// recommendations first, then keyword and genre searches.
type SpotifyProvider struct {
	spotify SpotifyClient
	config  *SpotifyProviderConfig
}

// NewSpotifyProvider creates a new SpotifyProvider.
func NewSpotifyProvider(spotify SpotifyClient, settings map[string]any) (*SpotifyProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}
	var cfg SpotifyProviderConfig
	if settings == nil {
		settings = map[string]any{}
	}
	if err := config.DecodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return &SpotifyProvider{spotify: spotify, config: &cfg}, nil
}

// GetCandidates implements Provider.
func (p *SpotifyProvider) GetCandidates(ctx context.Context, req playlist.Request, existingTrackIDs map[string]bool) ([]track.Raw, error) {
	if req.Count <= 0 {
		return []track.Raw{}, nil
	}
	profile := Interpret(req)
	zlog.Debug().Msgf("provider: spotify profile: genres=%v keywords=%v energy=%.2f valence=%.2f",
		profile.Genres, profile.Keywords, profile.Features.Energy, profile.Features.Valence)

	collected := make([]track.Raw, 0, req.Count)
	seen := make(map[string]bool)
	add := func(tracks []track.Raw) {
		for _, t := range tracks {
			if len(collected) >= req.Count {
				return
			}
			if t.ID == "" || seen[t.ID] || existingTrackIDs[t.ID] {
				continue
			}
			seen[t.ID] = true
			collected = append(collected, t)
		}
	}

	var lastErr error

	// Layer 1: recommendations seeded by genre
	if *p.config.UseRecommendations {
		tracks, err := p.spotify.Recommend(ctx, profile.Genres, profile.Features, req.Count*2)
		if err != nil {
			zlog.Warn().Msgf("provider: spotify recommendations failed, falling back to search: error=%v", err)
			lastErr = err
		} else {
			add(tracks)
		}
	}

	// Layer 2: keyword and genre searches
	for _, q := range searchQueries(profile) {
		if len(collected) >= req.Count {
			break
		}
		tracks, err := p.spotify.SearchTracks(ctx, q, p.config.SearchLimit)
		if err != nil {
			zlog.Warn().Msgf("provider: spotify search failed: query=%q error=%v", q, err)
			lastErr = err
			continue
		}
		add(tracks)
	}

	if len(collected) == 0 && lastErr != nil {
		return nil, errors.Wrap(lastErr, "spotify returned no tracks")
	}
	return collected, nil
}

// Name returns the provider name.
func (p *SpotifyProvider) Name() string {
	return "spotify"
}

// searchQueries builds the mood text query followed by one query per genre.
func searchQueries(profile Profile) []string {
	var queries []string
	if len(profile.Keywords) > 0 {
		words := profile.Keywords
		if len(words) > maxQueryWords {
			words = words[:maxQueryWords]
		}
		queries = append(queries, strings.Join(words, " "))
	}
	for _, g := range profile.Genres {
		queries = append(queries, fmt.Sprintf("genre:%q", g))
	}
	return queries
}

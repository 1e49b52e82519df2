package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/config"
	"github.com/osa030/vibechef/internal/infra/lastfm"
)

// LastFmProviderName is recorded on records built from Last.fm data alone.
const LastFmProviderName = "lastfm"

// LastFmClient defines the Last.fm operations used by the provider.
type LastFmClient interface {
	GetTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.TopTrack, error)
	GetChartTopTracks(ctx context.Context, limit int) ([]lastfm.TopTrack, error)
}

// LastFmProviderConfig holds the "lastfm" provider settings.
type LastFmProviderConfig struct {
	APIKey           string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	TagCount         int    `yaml:"tag_count" mapstructure:"tag_count" default:"3" validate:"gte=1,lte=10"`
	TracksPerTag     int    `yaml:"tracks_per_tag" mapstructure:"tracks_per_tag" default:"30" validate:"gte=1,lte=100"`
	ResolveOnSpotify *bool  `yaml:"resolve_on_spotify" mapstructure:"resolve_on_spotify" default:"true"`
}

// LastFmProvider provides tracks from Last.fm tag charts for the mood,
// falling back to the global chart. When a Spotify client is available
// each hit is looked up there to obtain a preview stream; otherwise records
// carry no stream location and play as samples.
type LastFmProvider struct {
	lastfm  LastFmClient
	spotify SpotifyClient // Optional

	// Cache for Spotify lookups, nil entries remember misses
	spotifySearchCache map[string]*track.Raw
	cacheMutex         sync.RWMutex

	config *LastFmProviderConfig
}

// NewLastFmProvider creates a new LastFmProvider. spotify may be nil.
func NewLastFmProvider(spotify SpotifyClient, settings map[string]any) (*LastFmProvider, error) {
	if len(settings) == 0 {
		return nil, errors.New("settings are required")
	}

	var cfg LastFmProviderConfig
	if err := config.DecodeSettings(settings, &cfg); err != nil {
		return nil, err
	}

	lastfmClient, err := lastfm.New(lastfm.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create last.fm client")
	}

	return &LastFmProvider{
		lastfm:             lastfmClient,
		spotify:            spotify,
		spotifySearchCache: make(map[string]*track.Raw),
		config:             &cfg,
	}, nil
}

// GetCandidates implements Provider.
func (p *LastFmProvider) GetCandidates(ctx context.Context, req playlist.Request, existingTrackIDs map[string]bool) ([]track.Raw, error) {
	if req.Count <= 0 {
		return []track.Raw{}, nil
	}

	hits := p.getTagBasedTracks(ctx, p.tagsFor(req))
	if len(hits) == 0 {
		chart, err := p.lastfm.GetChartTopTracks(ctx, req.Count*2)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get chart top tracks")
		}
		hits = chart
	}

	rng := newRand()
	rng.Shuffle(len(hits), func(i, j int) {
		hits[i], hits[j] = hits[j], hits[i]
	})

	candidates := make([]track.Raw, 0, req.Count)
	seen := make(map[string]bool)
	for _, hit := range hits {
		if len(candidates) >= req.Count {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}
		raw := p.resolve(ctx, hit)
		if raw == nil || seen[raw.ID] || existingTrackIDs[raw.ID] {
			continue
		}
		seen[raw.ID] = true
		candidates = append(candidates, *raw)
	}
	return candidates, nil
}

// Name returns the provider name.
func (p *LastFmProvider) Name() string {
	return "lastfm"
}

// tagsFor returns the mood text followed by the interpreted genres.
func (p *LastFmProvider) tagsFor(req playlist.Request) []string {
	var tags []string
	if mood := strings.ToLower(strings.TrimSpace(req.Mood)); mood != "" {
		tags = append(tags, mood)
	}
	tags = dedupe(append(tags, Interpret(req).Genres...))
	if len(tags) > p.config.TagCount {
		tags = tags[:p.config.TagCount]
	}
	return tags
}

// getTagBasedTracks fetches top tracks for each tag concurrently.
func (p *LastFmProvider) getTagBasedTracks(ctx context.Context, tags []string) []lastfm.TopTrack {
	results := make([][]lastfm.TopTrack, len(tags))
	var wg sync.WaitGroup
	for i, tag := range tags {
		wg.Add(1)
		go func(i int, tag string) {
			defer wg.Done()
			tracks, err := p.lastfm.GetTopTracks(ctx, tag, p.config.TracksPerTag)
			if err != nil {
				zlog.Debug().Msgf("provider: lastfm tag lookup failed: tag=%s error=%v", tag, err)
				return
			}
			results[i] = tracks
		}(i, tag)
	}
	wg.Wait()

	var all []lastfm.TopTrack
	for _, r := range results {
		all = append(all, r...)
	}
	return all
}

// resolve turns a Last.fm hit into a raw record, via Spotify when configured.
func (p *LastFmProvider) resolve(ctx context.Context, hit lastfm.TopTrack) *track.Raw {
	if hit.Name == "" {
		return nil
	}
	if p.spotify != nil && *p.config.ResolveOnSpotify {
		if found := p.searchOnSpotify(ctx, hit.Name, hit.Artist); found != nil {
			return found
		}
	}

	raw := &track.Raw{
		ID:         lastFmID(hit),
		Name:       hit.Name,
		DurationMs: int(hit.Duration.Milliseconds()),
		Provider:   LastFmProviderName,
	}
	if hit.Artist != "" {
		raw.Artists = []string{hit.Artist}
	}
	return raw
}

// searchOnSpotify searches for a track on Spotify with caching.
func (p *LastFmProvider) searchOnSpotify(ctx context.Context, trackName, artistName string) *track.Raw {
	key := fmt.Sprintf("%s:%s", trackName, artistName)

	p.cacheMutex.RLock()
	if cached, ok := p.spotifySearchCache[key]; ok {
		p.cacheMutex.RUnlock()
		return cached
	}
	p.cacheMutex.RUnlock()

	var found *track.Raw
	query := fmt.Sprintf("track:%s artist:%s", trackName, artistName)
	results, err := p.spotify.SearchTracks(ctx, query, 1)
	if err == nil && len(results) > 0 {
		found = &results[0]
		// Search results omit available markets; the full track carries them
		if full, err := p.spotify.GetTrack(ctx, found.ID); err == nil {
			found = full
		}
	}

	if ctx.Err() == nil {
		p.cacheMutex.Lock()
		p.spotifySearchCache[key] = found
		p.cacheMutex.Unlock()
	}
	return found
}

// lastFmID derives a stable identifier from artist and title.
func lastFmID(hit lastfm.TopTrack) string {
	return "lastfm:" + strings.ToLower(hit.Artist) + "/" + strings.ToLower(hit.Name)
}

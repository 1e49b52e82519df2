// Package spotify provides a client for the Spotify Web API.
package spotify

import (
	"context"
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/osa030/vibechef/internal/domain/track"
)

// ProviderName is recorded on every track.Raw produced by this client.
const ProviderName = "spotify"

// Client is a Spotify API client authenticated with client credentials.
// It only reads catalogue data and needs no user authorisation.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Market       string
	TokenURL     string // Defaults to the Spotify accounts service
	BaseURL      string // Defaults to the Spotify Web API
}

// Features are the audio feature targets for recommendations, each in [0, 1].
type Features struct {
	Energy  float64
	Valence float64
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}

	// HTTP client that fetches and refreshes the app token on demand
	httpClient := creds.Client(ctx)

	var opts []spotify.ClientOption
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, spotify.WithBaseURL(base))
	}

	market := cfg.Market
	if market == "" {
		market = "US"
	}

	return &Client{
		client:     spotify.New(httpClient, opts...),
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// Market returns the market used for catalogue requests.
func (c *Client) Market() string {
	return c.market
}

// GetTrack retrieves track information by ID, URL, or URI.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*track.Raw, error) {
	id := extractTrackID(trackID)
	if id == "" {
		return nil, errors.New("track id is required")
	}

	var result *spotify.FullTrack
	err := c.retry(ctx, func() error {
		t, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get track")
	}

	raw := c.convertTrack(result)
	return &raw, nil
}

// SearchTracks searches the catalogue for tracks matching query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]track.Raw, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	limit = clampLimit(limit, 20, 50)

	var result *spotify.SearchResult
	err := c.retry(ctx, func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack,
			spotify.Limit(limit),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}
	if result.Tracks == nil {
		return []track.Raw{}, nil
	}

	tracks := make([]track.Raw, 0, len(result.Tracks.Tracks))
	for i := range result.Tracks.Tracks {
		tracks = append(tracks, c.convertTrack(&result.Tracks.Tracks[i]))
	}
	return tracks, nil
}

// Recommend returns tracks seeded by up to five genres and tuned to features.
func (c *Client) Recommend(ctx context.Context, genres []string, features Features, limit int) ([]track.Raw, error) {
	if len(genres) == 0 {
		return nil, errors.New("at least one seed genre is required")
	}
	if len(genres) > 5 {
		genres = genres[:5]
	}
	limit = clampLimit(limit, 20, 100)

	attrs := spotify.NewTrackAttributes().
		TargetEnergy(features.Energy).
		TargetValence(features.Valence)

	var result *spotify.Recommendations
	err := c.retry(ctx, func() error {
		r, err := c.client.GetRecommendations(ctx, spotify.Seeds{Genres: genres}, attrs,
			spotify.Limit(limit),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get recommendations")
	}

	tracks := make([]track.Raw, 0, len(result.Tracks))
	for i := range result.Tracks {
		tracks = append(tracks, c.convertSimpleTrack(&result.Tracks[i]))
	}
	return tracks, nil
}

// CheckPlaylistExists checks if a playlist exists without fetching all tracks.
func (c *Client) CheckPlaylistExists(ctx context.Context, playlistURL string) error {
	playlistID := extractPlaylistID(playlistURL)
	if playlistID == "" {
		return errors.New("invalid playlist URL")
	}

	err := c.retry(ctx, func() error {
		_, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(1),
			spotify.Offset(0),
			spotify.Market(c.market),
		)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "playlist does not exist or is not accessible")
	}
	return nil
}

// GetPlaylistTracksRandom retrieves a random sample of tracks from a playlist.
// It reads the total track count, fetches one random page and returns up to count tracks.
func (c *Client) GetPlaylistTracksRandom(ctx context.Context, playlistURL string, count int) ([]track.Raw, error) {
	playlistID := extractPlaylistID(playlistURL)
	if playlistID == "" {
		return nil, errors.New("invalid playlist URL")
	}

	var firstPage *spotify.PlaylistItemPage
	err := c.retry(ctx, func() error {
		p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(1),
			spotify.Offset(0),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		firstPage = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist info")
	}

	totalTracks := int(firstPage.Total)
	if totalTracks == 0 {
		return []track.Raw{}, nil
	}

	limit := 100 // API max per page
	maxOffset := totalTracks - limit
	if maxOffset < 0 {
		maxOffset = 0
	}

	rng := newRand()
	offset := 0
	if maxOffset > 0 {
		offset = rng.Intn(maxOffset + 1)
	}

	var page *spotify.PlaylistItemPage
	err = c.retry(ctx, func() error {
		p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(limit),
			spotify.Offset(offset),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist items")
	}

	var tracks []track.Raw
	for _, item := range page.Items {
		// Episodes carry no Track
		if item.Track.Track != nil && item.Track.Track.ID != "" {
			tracks = append(tracks, c.convertTrack(item.Track.Track))
		}
	}

	if len(tracks) > count {
		rng.Shuffle(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
		tracks = tracks[:count]
	}
	return tracks, nil
}

// convertTrack converts a Spotify FullTrack to a raw record.
func (c *Client) convertTrack(t *spotify.FullTrack) track.Raw {
	raw := c.convertSimpleTrack(&t.SimpleTrack)
	raw.Album = t.Album.Name
	raw.IsPlayable = t.IsPlayable
	return raw
}

// convertSimpleTrack converts a Spotify SimpleTrack to a raw record.
// URL stays empty: only the 30-second preview is a playable stream.
func (c *Client) convertSimpleTrack(t *spotify.SimpleTrack) track.Raw {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	markets := make([]string, len(t.AvailableMarkets))
	copy(markets, t.AvailableMarkets)

	// Requests carry a market, so an empty list means available there
	if len(markets) == 0 && c.market != "" {
		markets = append(markets, c.market)
	}

	return track.Raw{
		ID:         string(t.ID),
		Name:       t.Name,
		Artists:    artists,
		PreviewURL: t.PreviewURL,
		DurationMs: int(t.Duration),
		Explicit:   t.Explicit,
		Markets:    markets,
		Provider:   ProviderName,
	}
}

// retry retries an operation with linear backoff until ctx is done.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// newRand returns a generator seeded from crypto/rand, falling back to the clock.
func newRand() *rand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	return extractID(input, "playlist")
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	return extractID(input, "track")
}

// extractID handles spotify:<kind>:ID, open.spotify.com/[intl-XX/]<kind>/ID and bare IDs.
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	if prefix := "spotify:" + kind + ":"; strings.HasPrefix(input, prefix) {
		return strings.TrimPrefix(input, prefix)
	}

	segment := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, segment) {
		parts := strings.Split(input, segment)
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return input
}

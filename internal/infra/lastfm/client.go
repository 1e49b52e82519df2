// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// tagTracksCacheEntry represents a cached tag tracks result.
type tagTracksCacheEntry struct {
	tracks []TopTrack
}

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Cache for tag tracks, keyed by tag and limit
	tagTracksCache map[string]*tagTracksCacheEntry
	cacheMu        sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey  string
	BaseURL string // Defaults to the public API endpoint
}

// TopTrack represents a top track for a tag or chart.
type TopTrack struct {
	Name     string
	Artist   string
	URL      string        // Last.fm page, not an audio stream
	Duration time.Duration // 0 if unknown
}

// topTracksResponse is shared by tag.getTopTracks and chart.getTopTracks.
type topTracksResponse struct {
	Tracks struct {
		Track []struct {
			Name     string `json:"name"`
			URL      string `json:"url"`
			Duration string `json:"duration"`
			Artist   struct {
				Name string `json:"name"`
			} `json:"artist"`
		} `json:"track"`
	} `json:"tracks"`
}

// apiError represents an error response from Last.fm API.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		tagTracksCache: make(map[string]*tagTracksCacheEntry),
	}, nil
}

// GetTopTracks retrieves top tracks for a tag from Last.fm.
// Reference: https://www.last.fm/api/show/tag.getTopTracks
func (c *Client) GetTopTracks(ctx context.Context, tagName string, limit int) ([]TopTrack, error) {
	tagName = strings.TrimSpace(tagName)
	if tagName == "" {
		return nil, errors.New("tag name is required")
	}
	limit = clampLimit(limit)

	cacheKey := fmt.Sprintf("tagtracks:%s:%d", strings.ToLower(tagName), limit)
	c.cacheMu.RLock()
	if entry, ok := c.tagTracksCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("lastfm: using cached top tracks: tag=%s", tagName)
		return entry.tracks, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "tag.getTopTracks")
	params.Set("tag", tagName)
	params.Set("limit", strconv.Itoa(limit))

	var response topTracksResponse
	if err := c.call(ctx, params, &response); err != nil {
		return nil, err
	}
	tracks := response.toTopTracks()

	c.cacheMu.Lock()
	c.tagTracksCache[cacheKey] = &tagTracksCacheEntry{tracks: tracks}
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("lastfm: cached top tracks: tag=%s count=%d", tagName, len(tracks))

	return tracks, nil
}

// GetChartTopTracks retrieves global top tracks from Last.fm charts.
// Reference: https://www.last.fm/api/show/chart.getTopTracks
func (c *Client) GetChartTopTracks(ctx context.Context, limit int) ([]TopTrack, error) {
	params := url.Values{}
	params.Set("method", "chart.getTopTracks")
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var response topTracksResponse
	if err := c.call(ctx, params, &response); err != nil {
		return nil, err
	}
	return response.toTopTracks(), nil
}

// call performs a GET request and decodes the JSON body into out.
func (c *Client) call(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	// Last.fm reports errors in the body, sometimes with a 200 status
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		return errors.Errorf("last.fm API error %d: %s", apiErr.Error, apiErr.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("last.fm API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func (r *topTracksResponse) toTopTracks() []TopTrack {
	tracks := make([]TopTrack, 0, len(r.Tracks.Track))
	for _, t := range r.Tracks.Track {
		var d time.Duration
		if secs, err := strconv.Atoi(t.Duration); err == nil && secs > 0 {
			d = time.Duration(secs) * time.Second
		}
		tracks = append(tracks, TopTrack{
			Name:     t.Name,
			Artist:   t.Artist.Name,
			URL:      t.URL,
			Duration: d,
		})
	}
	return tracks
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

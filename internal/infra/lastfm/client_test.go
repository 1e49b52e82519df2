package lastfm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topTracksBody = `{
	"tracks": {
		"track": [
			{
				"name": "Track 1",
				"mbid": "mbid1",
				"url": "url1",
				"duration": "240",
				"artist": {"name": "Artist 1", "mbid": "ambid1", "url": "aurl1"},
				"listeners": "1000",
				"playcount": "5000"
			},
			{
				"name": "Track 2",
				"mbid": "mbid2",
				"url": "url2",
				"duration": "0",
				"artist": {"name": "Artist 2", "mbid": "ambid2", "url": "aurl2"},
				"listeners": "500",
				"playcount": "2000"
			}
		]
	}
}`

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetTopTracks(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "tag.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "rock", r.URL.Query().Get("tag"))
		assert.Equal(t, "test_key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, topTracksBody)
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test_key", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	ctx := context.Background()
	tracks, err := client.GetTopTracks(ctx, "rock", 5)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Track 1", tracks[0].Name)
	assert.Equal(t, "Artist 1", tracks[0].Artist)
	assert.Equal(t, "url1", tracks[0].URL)
	assert.Equal(t, 240*time.Second, tracks[0].Duration)
	assert.Zero(t, tracks[1].Duration)

	// Second call is served from cache
	tracksCached, err := client.GetTopTracks(ctx, "Rock", 5)
	require.NoError(t, err)
	assert.Equal(t, tracks, tracksCached)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetTopTracks_EmptyTag(t *testing.T) {
	client, err := New(Config{APIKey: "test_key"})
	require.NoError(t, err)

	_, err = client.GetTopTracks(context.Background(), "  ", 5)
	assert.Error(t, err)
}

func TestGetChartTopTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "chart.getTopTracks", r.URL.Query().Get("method"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		fmt.Fprint(w, topTracksBody)
	}))
	defer server.Close()

	client, err := New(Config{APIKey: "test_key", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	tracks, err := client.GetChartTopTracks(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
}

func TestCall_APIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{
			name:   "error body with 200",
			status: http.StatusOK,
			body:   `{"error": 6, "message": "Tag not found"}`,
			errMsg: "Tag not found",
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			errMsg: "502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client, err := New(Config{APIKey: "test_key", BaseURL: server.URL + "/"})
			require.NoError(t, err)

			_, err = client.GetTopTracks(context.Background(), "nope", 5)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

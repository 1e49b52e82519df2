package player

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vibechef/internal/app/catalog"
	"github.com/osa030/vibechef/internal/app/notification"
	"github.com/osa030/vibechef/internal/app/playback"
	"github.com/osa030/vibechef/internal/app/provider"
	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/config"
	"github.com/osa030/vibechef/internal/testutil"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

const testYAML = `
player:
  progress_interval_ms: %d
generator:
  default_count: 3
  max_count: 5
  providers:
    - type: library
      display_name: Local
filters:
  explicit_filter:
    enabled: true
  duplicate_track_filter:
    enabled: true
`

// fakeSource starts every track immediately.
type fakeSource struct {
	mu       sync.Mutex
	listener playback.Listener
	loads    []string
}

func (f *fakeSource) SetListener(l playback.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *fakeSource) Load(token uint64, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, url)
}

func (f *fakeSource) Play(ctx context.Context) error { return ctx.Err() }
func (f *fakeSource) Pause()                         {}
func (f *fakeSource) Seek(seconds float64)           {}
func (f *fakeSource) SetVolume(percent int)          {}

// stubProvider returns fixed tracks and records the requested count.
type stubProvider struct {
	mu        sync.Mutex
	tracks    []track.Raw
	err       error
	requested []int
}

func (s *stubProvider) GetCandidates(ctx context.Context, req playlist.Request, existing map[string]bool) ([]track.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = append(s.requested, req.Count)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.tracks) > req.Count {
		return s.tracks[:req.Count], nil
	}
	return s.tracks, nil
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) lastRequested() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested[len(s.requested)-1]
}

func songs(n int) []track.Raw {
	out := make([]track.Raw, n)
	for i := range out {
		out[i] = track.Raw{
			ID:      fmt.Sprintf("t%d", i),
			Name:    fmt.Sprintf("Song %d", i),
			Artists: []string{fmt.Sprintf("Artist %d", i)},
			URL:     fmt.Sprintf("https://cdn.example.com/%d.mp3", i),
		}
	}
	return out
}

func newTestManager(t *testing.T, progressMs int, p provider.Provider) *Manager {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(testYAML, progressMs)))
	require.NoError(t, err)

	chain := provider.NewChain([]provider.ProviderWithMetadata{{Provider: p, DisplayName: "Stub"}})
	m := newManager(cfg, &fakeSource{}, chain)
	t.Cleanup(m.Close)
	return m
}

// waitForType reads notifications until one of type typ arrives.
func waitForType(t *testing.T, sub *notification.Subscription, typ string) *notification.Notification {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case n, ok := <-sub.C:
			require.True(t, ok, "subscription closed while waiting for %s", typ)
			if n.Type == typ {
				return n
			}
		case <-timeout:
			t.Fatalf("no %s notification", typ)
			return nil
		}
	}
}

func TestManager_Generate(t *testing.T) {
	tracks := songs(6)
	tracks[1].Explicit = true
	// Remaster of Song 0 by the same artist
	tracks[2].Name = "Song 0 - 2011 Remaster"
	tracks[2].Artists = tracks[0].Artists

	p := &stubProvider{tracks: tracks}
	m := newTestManager(t, 0, p)
	sub := m.GetNotificationManager().Subscribe(16)

	pl, err := m.Generate(context.Background(), playlist.Request{Mood: " chill ", AvoidExplicit: true})
	require.NoError(t, err)

	assert.Equal(t, 6, p.lastRequested(), "default count with headroom")
	assert.Equal(t, []string{"t0", "t3", "t4"}, pl.TrackIDs())
	assert.Equal(t, "chill vibes", pl.Name)
	assert.Equal(t, "Created a chill playlist with 3 tracks", pl.Description)
	assert.Equal(t, pl, m.Playlist())

	n := waitForType(t, sub, "catalog_replaced")
	assert.Equal(t, "New playlist loaded", n.Message)
	require.Len(t, n.View.Catalog, 3)
	assert.Equal(t, "Song 0", n.View.Catalog[0].Title)
	assert.True(t, n.View.Catalog[0].Current)
	assert.Equal(t, playback.StateStopped, n.View.State)
}

func TestManager_SetupFiltersFollowsConfig(t *testing.T) {
	tests := []struct {
		name    string
		filters string
		want    []string
	}{
		{
			name: "none enabled",
			want: nil,
		},
		{
			name: "all enabled",
			filters: `
filters:
  market_filter: {enabled: true}
  explicit_filter: {enabled: true}
  duplicate_track_filter: {enabled: true}
  duration_limit_filter: {enabled: true, settings: {min_minutes: 1, max_minutes: 10}}
`,
			want: []string{"market_filter", "explicit_filter", "duplicate_track_filter", "duration_limit_filter"},
		},
		{
			name: "explicit switched off",
			filters: `
filters:
  market_filter: {enabled: true}
  explicit_filter: {enabled: false}
`,
			want: []string{"market_filter"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Parse([]byte(`
generator:
  providers:
    - type: library
      display_name: Local
` + tt.filters))
			require.NoError(t, err)

			chain := provider.NewChain([]provider.ProviderWithMetadata{{Provider: &stubProvider{}, DisplayName: "Stub"}})
			m := newManager(cfg, &fakeSource{}, chain)
			t.Cleanup(m.Close)

			var names []string
			for _, f := range m.filterChain.Filters() {
				names = append(names, f.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestManager_Generate_KeepsExplicitWhenFilterDisabled(t *testing.T) {
	cfg, err := config.Parse([]byte(`
generator:
  default_count: 2
  providers:
    - type: library
      display_name: Local
`))
	require.NoError(t, err)

	tracks := songs(2)
	tracks[0].Explicit = true
	chain := provider.NewChain([]provider.ProviderWithMetadata{{Provider: &stubProvider{tracks: tracks}, DisplayName: "Stub"}})
	m := newManager(cfg, &fakeSource{}, chain)
	t.Cleanup(m.Close)

	pl, err := m.Generate(context.Background(), playlist.Request{Mood: "party", AvoidExplicit: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"t0", "t1"}, pl.TrackIDs())
}

func TestManager_Generate_Count(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		requested int
		want      int
	}{
		{name: "default", count: 0, requested: 6, want: 3},
		{name: "explicit", count: 2, requested: 4, want: 2},
		{name: "clamped to max", count: 50, requested: 10, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{tracks: songs(20)}
			m := newTestManager(t, 0, p)

			pl, err := m.Generate(context.Background(), playlist.Request{Mood: "focus", Count: tt.count})
			require.NoError(t, err)
			assert.Equal(t, tt.requested, p.lastRequested())
			assert.Len(t, pl.Tracks, tt.want)
			assert.Equal(t, tt.want, pl.Request.Count)
		})
	}
}

func TestManager_Generate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     playlist.Request
		tracks  []track.Raw
		perr    error
		wantErr error
		notice  bool
	}{
		{
			name:    "empty mood",
			req:     playlist.Request{Mood: "  "},
			wantErr: ErrEmptyMood,
		},
		{
			name:    "negative count",
			req:     playlist.Request{Mood: "chill", Count: -1},
			wantErr: ErrInvalidCount,
		},
		{
			name:    "provider failure",
			req:     playlist.Request{Mood: "chill"},
			perr:    errors.New("boom"),
			wantErr: provider.ErrNoCandidates,
			notice:  true,
		},
		{
			name:    "all filtered",
			req:     playlist.Request{Mood: "party", AvoidExplicit: true},
			tracks:  []track.Raw{{ID: "x", Name: "Loud", URL: "https://cdn.example.com/x.mp3", Explicit: true}},
			wantErr: ErrAllFiltered,
			notice:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, 0, &stubProvider{tracks: tt.tracks, err: tt.perr})
			sub := m.GetNotificationManager().Subscribe(16)

			_, err := m.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Nil(t, m.Playlist())

			if tt.notice {
				n := waitForType(t, sub, NoticeType)
				assert.Equal(t, "No tracks matched this mood", n.Message)
			}
			// Catalog is untouched
			assert.Len(t, m.View().Catalog, catalog.SampleCount())
		})
	}
}

func TestManager_Generate_GenresOnly(t *testing.T) {
	m := newTestManager(t, 0, &stubProvider{tracks: songs(3)})

	pl, err := m.Generate(context.Background(), playlist.Request{Genres: []string{"jazz"}})
	require.NoError(t, err)
	assert.Equal(t, "mixed vibes", pl.Name)
}

func TestManager_LoadTracks(t *testing.T) {
	m := newTestManager(t, 0, &stubProvider{tracks: songs(3)})

	_, err := m.Generate(context.Background(), playlist.Request{Mood: "chill"})
	require.NoError(t, err)

	cat, err := m.LoadTracks([]map[string]any{
		{"id": 42, "name": "Answer", "artists": "Deep Thought", "url": "https://cdn.example.com/42.mp3"},
		{"title": "Untitled"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	assert.Nil(t, m.Playlist())

	v := m.View()
	assert.Equal(t, "42", v.TrackID)
	assert.Equal(t, "Answer", v.Title)
	assert.Equal(t, "Deep Thought", v.Artist)
	assert.Equal(t, 0, v.Index)

	cat, err = m.LoadTracks(nil)
	require.NoError(t, err)
	assert.Equal(t, catalog.SampleCount(), cat.Len())
}

func TestManager_Transport(t *testing.T) {
	m := newTestManager(t, 0, &stubProvider{})
	sub := m.GetNotificationManager().Subscribe(64)

	require.NoError(t, m.TogglePlayPause())
	require.Eventually(t, func() bool { return m.View().State == playback.StatePlaying }, waitFor, tick)
	n := waitForType(t, sub, "state_changed")
	assert.Equal(t, playback.StatePlaying, n.View.State)

	require.NoError(t, m.Next())
	require.Eventually(t, func() bool { return m.View().Index == 1 }, waitFor, tick)

	require.NoError(t, m.Previous())
	require.Eventually(t, func() bool { return m.View().Index == 0 }, waitFor, tick)

	require.NoError(t, m.SelectTrack(4))
	assert.Equal(t, 4, m.View().Index)
	assert.ErrorIs(t, m.SelectTrack(99), playback.ErrInvalidSelection)

	// Duration is unknown, so seeking does nothing
	assert.NoError(t, m.Seek(0.5))
	assert.ErrorIs(t, m.Seek(2), playback.ErrInvalidSeek)

	v, err := m.SetVolume(150)
	require.NoError(t, err)
	assert.Equal(t, 100, v)
}

func TestManager_ProgressThrottle(t *testing.T) {
	m := newTestManager(t, 1000, &stubProvider{})

	now := time.Now()
	assert.True(t, m.progressDue(now))
	assert.False(t, m.progressDue(now.Add(500*time.Millisecond)))
	assert.True(t, m.progressDue(now.Add(1500*time.Millisecond)))

	unthrottled := newTestManager(t, 0, &stubProvider{})
	assert.True(t, unthrottled.progressDue(now))
	assert.True(t, unthrottled.progressDue(now))
}

func TestManager_Close(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	cfg, err := config.Parse([]byte(fmt.Sprintf(testYAML, 0)))
	require.NoError(t, err)
	chain := provider.NewChain([]provider.ProviderWithMetadata{{Provider: &stubProvider{}, DisplayName: "Stub"}})
	m := newManager(cfg, &fakeSource{}, chain)
	sub := m.GetNotificationManager().Subscribe(4)

	m.Close()
	m.Close()

	select {
	case <-m.Done():
	default:
		t.Fatal("done not closed")
	}
	for range sub.C {
	}

	_, err = m.Generate(context.Background(), playlist.Request{Mood: "chill"})
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.ErrorIs(t, m.TogglePlayPause(), playback.ErrClosed)
}

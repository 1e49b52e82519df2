package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vibechef/internal/app/catalog"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/testutil"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

var errRejected = errors.New("rejected")

// fakeSource records calls and plays back scripted outcomes per URL.
type fakeSource struct {
	mu       sync.Mutex
	listener Listener
	current  string
	token    uint64
	loads    []string
	plays    []string
	pauses   int
	seeks    []float64
	volume   int
	fail     map[string]error
	gates    map[string]chan struct{} // Play waits for the gate, ignoring cancellation
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		fail:  make(map[string]error),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeSource) SetListener(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *fakeSource) Load(token uint64, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = url
	f.token = token
	f.loads = append(f.loads, url)
}

func (f *fakeSource) Play(ctx context.Context) error {
	f.mu.Lock()
	url := f.current
	f.plays = append(f.plays, url)
	err := f.fail[url]
	gate := f.gates[url]
	f.mu.Unlock()

	if gate != nil {
		<-gate
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return err
}

func (f *fakeSource) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func (f *fakeSource) Seek(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
}

func (f *fakeSource) SetVolume(percent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = percent
}

func (f *fakeSource) failURL(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[url] = err
}

func (f *fakeSource) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[url] = ch
	return ch
}

func (f *fakeSource) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

func (f *fakeSource) playedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.plays...)
}

// loadToken returns the token of the stream currently loaded.
func (f *fakeSource) loadToken() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSource) lastLoad() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads[len(f.loads)-1]
}

func userCatalog(n int) catalog.Catalog {
	raws := make([]track.Raw, n)
	for i := range raws {
		raws[i] = track.Raw{
			ID:   string(rune('a' + i)),
			Name: "Track " + string(rune('A'+i)),
			URL:  "https://cdn.example.com/" + string(rune('a'+i)) + ".mp3",
		}
	}
	return catalog.Resolve(raws)
}

func newTestController(t *testing.T, cat catalog.Catalog) (*Controller, *fakeSource) {
	t.Helper()
	src := newFakeSource()
	c := NewController(src, cat, Config{})
	t.Cleanup(c.Close)
	return c, src
}

func startPlaying(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.TogglePlayPause())
	require.Eventually(t, func() bool { return c.State() == StatePlaying }, waitFor, tick)
}

func settled(c *Controller) func() bool {
	return func() bool { return !c.View().Pending }
}

// drain collects events currently buffered in the channel.
func drain(c *Controller) []EventType {
	var out []EventType
	for {
		select {
		case e, ok := <-c.Events():
			if !ok {
				return out
			}
			out = append(out, e.Type)
		default:
			return out
		}
	}
}

func TestNewController_InitialState(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))

	v := c.View()
	assert.Equal(t, StateStopped, v.State)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 50, v.Volume)
	assert.Equal(t, 50, src.volume)
	assert.Equal(t, "https://cdn.example.com/a.mp3", src.lastLoad())
	assert.False(t, v.Pending)
}

func TestNewController_ZeroCatalogUsesSamples(t *testing.T) {
	c, _ := newTestController(t, catalog.Catalog{})
	assert.Equal(t, 8, c.Catalog().Len())
	assert.Equal(t, "Acoustic Breeze", c.View().Title)
}

func TestController_TogglePlayPause(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))

	startPlaying(t, c)
	assert.Equal(t, 1, src.playCount())

	require.NoError(t, c.TogglePlayPause())
	assert.Equal(t, StatePaused, c.State())
	assert.Equal(t, 1, src.pauses)

	startPlaying(t, c)
	assert.Equal(t, 2, src.playCount())
}

func TestController_ToggleStaysUntilFulfilled(t *testing.T) {
	c, src := newTestController(t, userCatalog(2))
	gate := src.gate("https://cdn.example.com/a.mp3")

	require.NoError(t, c.TogglePlayPause())
	assert.Equal(t, StateStopped, c.State())
	assert.True(t, c.View().Pending)

	close(gate)
	require.Eventually(t, func() bool { return c.State() == StatePlaying }, waitFor, tick)
	assert.False(t, c.View().Pending)
}

func TestController_FallbackRetriesOnceWithPositionalSample(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))
	require.NoError(t, c.SelectTrack(2))
	src.failURL("https://cdn.example.com/c.mp3", errRejected)

	startPlaying(t, c)

	assert.Equal(t, []string{
		"https://cdn.example.com/c.mp3",
		catalog.SampleAt(2).SourceURL,
	}, src.playedURLs())
	v := c.View()
	assert.Equal(t, catalog.SampleAt(2).SourceURL, v.SourceURL)
	assert.Equal(t, "Track C", v.Title)
	assert.Contains(t, drain(c), EventFallbackStarted)
}

func TestController_SampleFailureIsNotRetried(t *testing.T) {
	c, src := newTestController(t, catalog.Samples())
	src.failURL(catalog.SampleAt(0).SourceURL, errRejected)

	require.NoError(t, c.TogglePlayPause())
	require.Eventually(t, settled(c), waitFor, tick)

	assert.Equal(t, 1, src.playCount())
	assert.Equal(t, StateStopped, c.State())
	events := drain(c)
	assert.Contains(t, events, EventPlaybackFailed)
	assert.NotContains(t, events, EventFallbackStarted)
}

func TestController_FallbackFailureGivesUp(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))
	startPlaying(t, c)
	require.NoError(t, c.TogglePlayPause())
	require.Equal(t, StatePaused, c.State())

	src.failURL("https://cdn.example.com/a.mp3", errRejected)
	src.failURL(catalog.SampleAt(0).SourceURL, errRejected)

	require.NoError(t, c.TogglePlayPause())
	require.Eventually(t, settled(c), waitFor, tick)

	assert.Equal(t, 3, src.playCount())
	assert.Equal(t, StatePaused, c.State())
	assert.Contains(t, drain(c), EventPlaybackFailed)
}

func TestController_NextPreviousWraparound(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		c, _ := newTestController(t, userCatalog(n))
		for start := 0; start < n; start++ {
			require.NoError(t, c.SelectTrack(start))
			for i := 0; i < n; i++ {
				require.NoError(t, c.Next())
			}
			assert.Equal(t, start, c.CurrentIndex(), "next n=%d start=%d", n, start)
			for i := 0; i < n; i++ {
				require.NoError(t, c.Previous())
			}
			assert.Equal(t, start, c.CurrentIndex(), "previous n=%d start=%d", n, start)
		}
	}
}

func TestController_PreviousFromFirst(t *testing.T) {
	c, src := newTestController(t, userCatalog(5))
	require.NoError(t, c.Previous())
	assert.Equal(t, 4, c.CurrentIndex())
	assert.Equal(t, "https://cdn.example.com/e.mp3", src.lastLoad())
	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, 0, src.playCount())
}

func TestController_NextWhilePlayingContinues(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))
	startPlaying(t, c)
	drain(c)

	require.NoError(t, c.Next())
	assert.Equal(t, StatePlaying, c.State())
	require.Eventually(t, func() bool { return src.playCount() == 2 }, waitFor, tick)
	require.Eventually(t, settled(c), waitFor, tick)

	assert.Equal(t, "https://cdn.example.com/b.mp3", src.playedURLs()[1])
	assert.Equal(t, StatePlaying, c.State())
	assert.NotContains(t, drain(c), EventStateChanged)
}

func TestController_NextFailureKeepsTransport(t *testing.T) {
	c, _ := newTestController(t, catalog.Samples())
	startPlaying(t, c)

	c.source.(*fakeSource).failURL(catalog.SampleAt(1).SourceURL, errRejected)
	require.NoError(t, c.Next())
	require.Eventually(t, settled(c), waitFor, tick)

	assert.Equal(t, StatePlaying, c.State())
	assert.Equal(t, 1, c.CurrentIndex())
}

func TestController_OnEndedMatchesNext(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))
	require.NoError(t, c.SelectTrack(2))
	startPlaying(t, c)

	c.OnEnded(src.loadToken())
	assert.Equal(t, 0, c.CurrentIndex())
	assert.Equal(t, StatePlaying, c.State())
	require.Eventually(t, func() bool { return src.playCount() == 2 }, waitFor, tick)
	assert.Equal(t, "https://cdn.example.com/a.mp3", src.playedURLs()[1])
}

func TestController_OnEndedWhileStoppedOnlyAdvances(t *testing.T) {
	c, src := newTestController(t, userCatalog(2))
	c.OnEnded(src.loadToken())
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, 0, src.playCount())
}

func TestController_StaleEndedAfterNavigationIgnored(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))
	startPlaying(t, c)
	ended := src.loadToken()

	// Track 0 finishes while the user skips ahead; its end arrives afterwards.
	require.NoError(t, c.Next())
	c.OnEnded(ended)

	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, "https://cdn.example.com/b.mp3", src.lastLoad())

	c.OnEnded(src.loadToken())
	assert.Equal(t, 2, c.CurrentIndex())
}

func TestController_StaleProgressAfterNavigationIgnored(t *testing.T) {
	c, src := newTestController(t, userCatalog(2))
	old := src.loadToken()
	c.OnMetadataReady(old, 200)
	c.OnTimeAdvanced(old, 150)

	require.NoError(t, c.Next())
	c.OnMetadataReady(old, 200)
	c.OnTimeAdvanced(old, 160)

	v := c.View()
	assert.Equal(t, 0.0, v.Elapsed)
	assert.False(t, v.DurationKnown)

	c.OnMetadataReady(src.loadToken(), 90)
	c.OnTimeAdvanced(src.loadToken(), 10)
	v = c.View()
	assert.Equal(t, 10.0, v.Elapsed)
	assert.Equal(t, 90.0, v.Duration)
}

func TestController_FallbackLoadSupersedesFailedToken(t *testing.T) {
	c, src := newTestController(t, userCatalog(2))
	failed := src.loadToken()
	src.failURL("https://cdn.example.com/a.mp3", errRejected)

	startPlaying(t, c)
	require.Equal(t, catalog.SampleAt(0).SourceURL, src.lastLoad())
	assert.NotEqual(t, failed, src.loadToken())

	c.OnEnded(failed)
	assert.Equal(t, 0, c.CurrentIndex())
}

func TestController_SelectTrack(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))

	for _, i := range []int{-1, 3, 100} {
		err := c.SelectTrack(i)
		assert.True(t, errors.Is(err, ErrInvalidSelection), "index %d", i)
	}
	assert.Equal(t, 0, c.CurrentIndex())

	require.NoError(t, c.SelectTrack(1))
	assert.Equal(t, 1, c.CurrentIndex())
	assert.Equal(t, "https://cdn.example.com/b.mp3", src.lastLoad())
	assert.Equal(t, 0, src.playCount())

	loads := len(src.loads)
	require.NoError(t, c.SelectTrack(1))
	assert.Len(t, src.loads, loads)
}

func TestController_SelectTrackFailureStops(t *testing.T) {
	c, src := newTestController(t, catalog.Samples())
	startPlaying(t, c)
	src.failURL(catalog.SampleAt(2).SourceURL, errRejected)

	require.NoError(t, c.SelectTrack(2))
	require.Eventually(t, func() bool { return c.State() == StateStopped }, waitFor, tick)

	assert.Equal(t, 2, c.CurrentIndex())
	assert.Equal(t, 2, src.playCount())
}

func TestController_Seek(t *testing.T) {
	c, src := newTestController(t, userCatalog(1))

	require.NoError(t, c.Seek(0.5))
	assert.Empty(t, src.seeks)

	c.OnMetadataReady(src.loadToken(), 200)
	require.NoError(t, c.Seek(0.5))
	assert.Equal(t, []float64{100}, src.seeks)

	c.OnTimeAdvanced(src.loadToken(), 100)
	assert.InDelta(t, 100, c.View().Elapsed, 0.001)

	for _, f := range []float64{-0.1, 1.1} {
		assert.True(t, errors.Is(c.Seek(f), ErrInvalidSeek))
	}
	require.NoError(t, c.Seek(0))
	require.NoError(t, c.Seek(1))
	assert.Equal(t, []float64{100, 0, 200}, src.seeks)
}

func TestController_SetVolume(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -10, want: 0},
		{in: 0, want: 0},
		{in: 42, want: 42},
		{in: 100, want: 100},
		{in: 250, want: 100},
	}

	c, src := newTestController(t, userCatalog(1))
	for _, tt := range tests {
		got, err := c.SetVolume(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want, c.View().Volume)
		assert.Equal(t, tt.want, src.volume)
	}
}

func TestController_OnTimeAdvancedClampsToDuration(t *testing.T) {
	c, src := newTestController(t, userCatalog(1))
	token := src.loadToken()

	c.OnTimeAdvanced(token, 300)
	assert.Equal(t, 300.0, c.View().Elapsed)

	c.OnMetadataReady(token, 120)
	assert.Equal(t, 120.0, c.View().Elapsed)

	c.OnTimeAdvanced(token, 500)
	assert.Equal(t, 120.0, c.View().Elapsed)

	c.OnTimeAdvanced(token, -3)
	assert.Equal(t, 0.0, c.View().Elapsed)
}

func TestController_StaleCompletionIgnoredAfterNavigation(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))
	gate := src.gate("https://cdn.example.com/a.mp3")

	require.NoError(t, c.TogglePlayPause())
	require.NoError(t, c.Next())
	assert.False(t, c.View().Pending)

	close(gate)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, StateStopped, c.State())
	assert.Equal(t, 1, c.CurrentIndex())
}

func TestController_StaleFailureDoesNotFallback(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))
	startPlaying(t, c)

	bURL := "https://cdn.example.com/b.mp3"
	src.failURL(bURL, errRejected)
	gate := src.gate(bURL)

	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	require.Eventually(t, settled(c), waitFor, tick)
	require.Equal(t, 2, c.CurrentIndex())

	close(gate)
	time.Sleep(20 * time.Millisecond)

	v := c.View()
	assert.Equal(t, StatePlaying, v.State)
	assert.Equal(t, "https://cdn.example.com/c.mp3", v.SourceURL)
	assert.NotContains(t, src.playedURLs(), catalog.SampleAt(1).SourceURL)
}

func TestController_SetCatalogResets(t *testing.T) {
	c, src := newTestController(t, userCatalog(3))
	require.NoError(t, c.SelectTrack(2))
	startPlaying(t, c)
	c.OnMetadataReady(src.loadToken(), 90)
	c.OnTimeAdvanced(src.loadToken(), 30)

	require.NoError(t, c.SetCatalog(userCatalog(5)))

	v := c.View()
	assert.Equal(t, StateStopped, v.State)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 0.0, v.Elapsed)
	assert.False(t, v.DurationKnown)
	assert.Len(t, v.Catalog, 5)
	assert.Equal(t, "https://cdn.example.com/a.mp3", src.lastLoad())
	assert.Contains(t, drain(c), EventCatalogReplaced)
}

func TestController_TrackChangeResetsTiming(t *testing.T) {
	c, src := newTestController(t, userCatalog(2))
	c.OnMetadataReady(src.loadToken(), 100)
	c.OnTimeAdvanced(src.loadToken(), 50)

	require.NoError(t, c.Next())
	v := c.View()
	assert.Equal(t, 0.0, v.Elapsed)
	assert.False(t, v.DurationKnown)
	assert.Equal(t, 0.0, v.Progress)
}

func TestController_Close(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	src := newFakeSource()
	c := NewController(src, userCatalog(2), Config{EventBuffer: 4})
	gate := src.gate("https://cdn.example.com/a.mp3")
	require.NoError(t, c.TogglePlayPause())

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	c.Close()
	c.Close()

	for range c.Events() {
	}
	assert.ErrorIs(t, c.Next(), ErrClosed)
	assert.ErrorIs(t, c.TogglePlayPause(), ErrClosed)
	_, err := c.SetVolume(10)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, StateStopped, c.State())
}

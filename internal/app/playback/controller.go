package playback

import (
	"context"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/app/catalog"
	"github.com/osa030/vibechef/internal/app/fallback"
	"github.com/osa030/vibechef/internal/domain/track"
)

// Errors
var (
	ErrInvalidSelection = errors.New("track index out of range")
	ErrInvalidSeek      = errors.New("seek fraction must be within [0, 1]")
	ErrClosed           = errors.New("controller closed")
)

const (
	defaultEventBuffer = 64
	defaultVolume      = 50
)

// Config holds controller configuration.
type Config struct {
	InitialVolume int // Volume percent applied at construction
	EventBuffer   int // Capacity of the event channel
}

// failMode selects how a play request that finally fails affects transport.
type failMode int

const (
	failKeep failMode = iota // Leave transport unchanged
	failStop                 // Transition to stopped
)

// playRequest is one asynchronous play attempt.
type playRequest struct {
	id      uint64
	index   int
	url     string
	retries int
	mode    failMode
	ctx     context.Context
	cancel  context.CancelFunc
}

// Controller owns the catalog, the current index, transport state and the audio source.
type Controller struct {
	mu sync.Mutex

	source  Source
	catalog catalog.Catalog

	// Playback state
	currentIndex  int
	state         State
	activeURL     string // Location loaded into the source (may be a fallback)
	loadToken     uint64 // Token of the last Load; listener calls must echo it
	elapsed       float64
	duration      float64
	durationKnown bool
	volume        int

	// Play requests
	pending *playRequest
	lastID  uint64
	wg      sync.WaitGroup

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewController creates a controller over cat, loading its first track into src.
// A zero catalog is replaced by the sample catalog.
func NewController(src Source, cat catalog.Catalog, config Config) *Controller {
	if cat.IsZero() {
		cat = catalog.Samples()
	}
	buffer := config.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	volume := defaultVolume
	if config.InitialVolume > 0 {
		volume = clampVolume(config.InitialVolume)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:  src,
		catalog: cat,
		state:   StateStopped,
		volume:  volume,
		eventCh: make(chan Event, buffer),
		ctx:     ctx,
		cancel:  cancel,
	}

	src.SetListener(c)
	src.SetVolume(volume)
	c.loadLocked(cat.At(0).SourceURL)

	return c
}

// Events returns the event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// TogglePlayPause pauses when playing, otherwise requests play.
// Transport becomes playing only once the source starts.
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.state == StatePlaying {
		c.cancelPendingLocked()
		c.source.Pause()
		c.setStateLocked(StatePaused)
		return nil
	}

	c.requestPlayLocked(failKeep)
	return nil
}

// Next moves to the following track, wrapping to the first.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.advanceLocked(1)
	return nil
}

// Previous moves to the preceding track, wrapping to the last.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.advanceLocked(-1)
	return nil
}

// SelectTrack makes index i current. When playing, play is requested for the new
// track and a final failure stops transport.
func (c *Controller) SelectTrack(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if i < 0 || i >= c.catalog.Len() {
		return errors.Wrapf(ErrInvalidSelection, "index %d, catalog length %d", i, c.catalog.Len())
	}
	if i == c.currentIndex {
		return nil
	}

	wasPlaying := c.state == StatePlaying
	c.cancelPendingLocked()
	c.currentIndex = i
	c.loadCurrentLocked()

	if wasPlaying {
		c.requestPlayLocked(failStop)
	}
	return nil
}

// Seek moves the source to fraction of the known duration.
// It does nothing while the duration is unknown.
func (c *Controller) Seek(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return errors.Wrapf(ErrInvalidSeek, "fraction %v", fraction)
	}
	if !c.durationKnown {
		zlog.Debug().Msgf("playback: seek ignored, duration unknown: index=%d", c.currentIndex)
		return nil
	}

	c.source.Seek(fraction * c.duration)
	return nil
}

// SetVolume clamps percent to [0, 100] and applies it. It returns the applied value.
func (c *Controller) SetVolume(percent int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.volume, ErrClosed
	}

	c.volume = clampVolume(percent)
	c.source.SetVolume(c.volume)
	c.sendEventLocked(EventVolumeChanged, nil)
	return c.volume, nil
}

// SetCatalog replaces the catalog. Transport stops and the first track becomes current.
// A zero catalog is replaced by the sample catalog.
func (c *Controller) SetCatalog(cat catalog.Catalog) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if cat.IsZero() {
		cat = catalog.Samples()
	}

	c.cancelPendingLocked()
	c.source.Pause()
	c.catalog = cat
	c.currentIndex = 0
	c.setStateLocked(StateStopped)
	c.loadCurrentLocked()
	c.sendEventLocked(EventCatalogReplaced, nil)

	zlog.Info().Msgf("playback: catalog replaced: tracks=%d", cat.Len())
	return nil
}

// OnTimeAdvanced records the source position.
func (c *Controller) OnTimeAdvanced(token uint64, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.acceptLocked(token, "progress") || math.IsNaN(seconds) {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if c.durationKnown && seconds > c.duration {
		seconds = c.duration
	}
	c.elapsed = seconds
	c.sendEventLocked(EventProgress, nil)
}

// OnMetadataReady records the source duration.
func (c *Controller) OnMetadataReady(token uint64, seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.acceptLocked(token, "metadata") || math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return
	}
	c.duration = seconds
	c.durationKnown = true
	if c.elapsed > c.duration {
		c.elapsed = c.duration
	}
	c.sendEventLocked(EventMetadataReady, nil)
}

// OnEnded advances to the next track exactly as Next does.
func (c *Controller) OnEnded(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.acceptLocked(token, "ended") {
		return
	}
	zlog.Debug().Msgf("playback: track ended: index=%d", c.currentIndex)
	c.advanceLocked(1)
}

// State returns the transport state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentIndex returns the current catalog position.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIndex
}

// Catalog returns the current catalog.
func (c *Controller) Catalog() catalog.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// Close cancels pending play requests, pauses the source and closes the event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelPendingLocked()
	c.cancel()
	c.source.Pause()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	close(c.eventCh)
	c.mu.Unlock()
}

// advanceLocked moves the cursor by delta with wraparound and continues playback if playing.
// Must be called with lock held.
func (c *Controller) advanceLocked(delta int) {
	n := c.catalog.Len()
	wasPlaying := c.state == StatePlaying

	c.cancelPendingLocked()
	c.currentIndex = ((c.currentIndex+delta)%n + n) % n
	c.loadCurrentLocked()

	if wasPlaying {
		c.requestPlayLocked(failKeep)
	}
}

// loadCurrentLocked loads the current catalog track into the source and resets timing.
// Must be called with lock held.
func (c *Controller) loadCurrentLocked() {
	c.resetTimingLocked()
	c.loadLocked(c.catalog.At(c.currentIndex).SourceURL)
	c.sendEventLocked(EventTrackChanged, nil)
}

// loadLocked loads url into the source under a fresh token.
// Must be called with lock held.
func (c *Controller) loadLocked(url string) {
	c.loadToken++
	c.activeURL = url
	c.source.Load(c.loadToken, url)
}

// acceptLocked reports whether a listener call for token applies to the loaded stream.
// Must be called with lock held.
func (c *Controller) acceptLocked(token uint64, kind string) bool {
	if c.closed {
		return false
	}
	if token != c.loadToken {
		zlog.Debug().Msgf("playback: stale source %s dropped: token=%d current=%d", kind, token, c.loadToken)
		return false
	}
	return true
}

func (c *Controller) resetTimingLocked() {
	c.elapsed = 0
	c.duration = 0
	c.durationKnown = false
}

// requestPlayLocked supersedes any pending request and issues a new one for the current track.
// Must be called with lock held.
func (c *Controller) requestPlayLocked(mode failMode) {
	c.cancelPendingLocked()
	c.issueLocked(&playRequest{
		index: c.currentIndex,
		url:   c.activeURL,
		mode:  mode,
	})
}

// issueLocked starts req on its own goroutine.
// Must be called with lock held.
func (c *Controller) issueLocked(req *playRequest) {
	c.lastID++
	req.id = c.lastID
	req.ctx, req.cancel = context.WithCancel(c.ctx)
	c.pending = req

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.source.Play(req.ctx)
		c.completePlay(req, err)
	}()
}

// completePlay applies the outcome of req unless it has been superseded.
func (c *Controller) completePlay(req *playRequest, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req.cancel()

	if c.closed || c.pending == nil || c.pending.id != req.id {
		zlog.Debug().Msgf("playback: stale play completion dropped: request=%d index=%d", req.id, req.index)
		return
	}
	c.pending = nil

	if err == nil {
		c.setStateLocked(StatePlaying)
		return
	}

	zlog.Warn().Err(err).Msgf("playback: play request failed: index=%d url=%s retries=%d", req.index, req.url, req.retries)

	decision := fallback.Decide(fallback.Attempt{
		Index:     req.index,
		SourceURL: req.url,
		Retries:   req.retries,
	})

	switch decision.Action {
	case fallback.ActionRetry:
		c.resetTimingLocked()
		c.loadLocked(decision.Substitute.SourceURL)
		zlog.Info().Msgf("playback: retrying with fallback source: index=%d url=%s", req.index, c.activeURL)
		c.sendEventLocked(EventFallbackStarted, nil)
		c.issueLocked(&playRequest{
			index:   req.index,
			url:     c.activeURL,
			retries: req.retries + 1,
			mode:    req.mode,
		})
	default:
		if req.mode == failStop {
			c.setStateLocked(StateStopped)
		}
		c.sendEventLocked(EventPlaybackFailed, errors.Wrapf(err, "failed to play track %d", req.index))
	}
}

// cancelPendingLocked cancels and forgets the pending play request.
// Must be called with lock held.
func (c *Controller) cancelPendingLocked() {
	if c.pending == nil {
		return
	}
	c.pending.cancel()
	c.pending = nil
}

// setStateLocked updates transport and emits EventStateChanged on change.
// Must be called with lock held.
func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.sendEventLocked(EventStateChanged, nil)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(t EventType, err error) {
	e := Event{
		Type:      t,
		Track:     c.currentTrackLocked(),
		Index:     c.currentIndex,
		State:     c.state,
		SourceURL: c.activeURL,
		Err:       err,
	}
	select {
	case c.eventCh <- e:
		// Successfully sent
	case <-c.ctx.Done():
		// Context cancelled, don't send
	default:
		// Channel full, drop event
	}
}

func (c *Controller) currentTrackLocked() track.Track {
	return c.catalog.At(c.currentIndex)
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

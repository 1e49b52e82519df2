// Package player provides the player service that owns the playback engine.
package player

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/app/catalog"
	"github.com/osa030/vibechef/internal/app/filter"
	"github.com/osa030/vibechef/internal/app/notification"
	"github.com/osa030/vibechef/internal/app/playback"
	"github.com/osa030/vibechef/internal/app/provider"
	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/config"
)

// Errors
var (
	ErrEmptyMood     = errors.New("mood or genres are required")
	ErrInvalidCount  = errors.New("track count must not be negative")
	ErrAllFiltered   = errors.New("all candidates were rejected by filters")
	ErrManagerClosed = errors.New("player is closed")
)

// NoticeType is the notification type for notices not tied to an engine event.
const NoticeType = "notice"

// candidateHeadroom multiplies the requested count so filters have room to reject.
const candidateHeadroom = 2

// Manager owns the playback controller and builds catalogs from generated playlists.
type Manager struct {
	mu sync.Mutex

	config *config.Config

	// Components
	playback     *playback.Controller
	providers    *provider.Chain
	filterChain  *filter.Chain
	notification *notification.Manager

	// Last generated playlist, nil after LoadTracks
	playlist *playlist.Playlist

	progressInterval time.Duration
	lastProgress     time.Time

	closeOnce sync.Once
	closed    bool
	done      chan struct{}
}

// NewManager creates a player over src. spotifyClient may be nil when no
// configured provider talks to Spotify.
func NewManager(cfg *config.Config, src playback.Source, spotifyClient provider.SpotifyClient) (*Manager, error) {
	chain, err := provider.NewChainFromConfig(cfg, spotifyClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create provider chain")
	}
	return newManager(cfg, src, chain), nil
}

func newManager(cfg *config.Config, src playback.Source, chain *provider.Chain) *Manager {
	m := &Manager{
		config: cfg,
		playback: playback.NewController(src, catalog.Samples(), playback.Config{
			InitialVolume: cfg.Player.InitialVolume,
			EventBuffer:   cfg.Player.EventBuffer,
		}),
		providers:        chain,
		filterChain:      filter.NewChain(),
		notification:     notification.NewManager(),
		progressInterval: time.Duration(cfg.Player.ProgressIntervalMs) * time.Millisecond,
		done:             make(chan struct{}),
	}

	m.setupFilters()

	go m.eventLoop()

	return m
}

// setupFilters initializes the filter chain.
func (m *Manager) setupFilters() {
	cfg := m.config

	// MarketFilter only looks at Spotify records
	if cfg.IsFilterEnabled("market_filter") {
		m.filterChain.Add(filter.NewMarketFilter(cfg.Spotify.Market))
	}

	// ExplicitFilter is driven by the request
	if cfg.IsFilterEnabled("explicit_filter") {
		m.filterChain.Add(filter.NewExplicitFilter())
	}

	// DuplicateTrackFilter
	if cfg.IsFilterEnabled("duplicate_track_filter") {
		m.filterChain.Add(filter.NewDuplicateTrackFilter())
	}

	// DurationLimitFilter
	if cfg.IsFilterEnabled("duration_limit_filter") {
		f := filter.NewDurationLimitFilter()
		if err := f.ValidateConfig(cfg.GetFilterSettings("duration_limit_filter")); err != nil {
			zlog.Error().Msgf("player: failed to validate duration limit filter config: %v", err)
		} else {
			m.filterChain.Add(f)
		}
	}

	names := make([]string, 0, len(m.filterChain.Filters()))
	for _, f := range m.filterChain.Filters() {
		names = append(names, f.Name())
	}
	zlog.Debug().Msgf("player: filters configured: %s", strings.Join(names, ","))
}

// Generate builds a playlist for req and makes it the current catalog.
func (m *Manager) Generate(ctx context.Context, req playlist.Request) (*playlist.Playlist, error) {
	req.Mood = strings.TrimSpace(req.Mood)
	if req.Mood == "" && len(req.Genres) == 0 {
		return nil, ErrEmptyMood
	}
	if req.Count < 0 {
		return nil, ErrInvalidCount
	}
	if req.Count == 0 {
		req.Count = m.config.Generator.DefaultCount
	}
	if req.Count > m.config.Generator.MaxCount {
		req.Count = m.config.Generator.MaxCount
	}
	if m.isClosed() {
		return nil, ErrManagerClosed
	}

	zlog.Info().Msgf("player: generating playlist: mood=%q genres=%v count=%d avoid_explicit=%t",
		req.Mood, req.Genres, req.Count, req.AvoidExplicit)

	search := req
	search.Count = req.Count * candidateHeadroom
	candidates, err := m.providers.GetCandidates(ctx, search, nil)
	if err != nil {
		if errors.Is(err, provider.ErrNoCandidates) {
			m.notice("no_candidates")
		}
		return nil, errors.Wrap(err, "failed to get candidates")
	}

	raws := make([]track.Raw, len(candidates))
	for i, c := range candidates {
		raws[i] = c.Track
	}

	accepted, rejected := m.filterChain.Apply(ctx, req, raws, req.Count)
	for code, n := range rejected {
		zlog.Debug().Msgf("player: candidates rejected: code=%s count=%d", code, n)
	}
	if len(accepted) == 0 {
		m.notice("no_candidates")
		return nil, errors.Wrapf(ErrAllFiltered, "%d candidates", len(raws))
	}

	pl := playlist.New(req, accepted)
	if err := m.playback.SetCatalog(catalog.Resolve(accepted)); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.playlist = pl
	m.mu.Unlock()

	zlog.Info().Msgf("player: playlist generated: name=%q tracks=%d candidates=%d duration=%v",
		pl.Name, len(pl.Tracks), len(raws), pl.TotalDuration())
	return pl, nil
}

// LoadTracks replaces the catalog with caller supplied records.
// An empty list loads the sample catalog.
func (m *Manager) LoadTracks(records []map[string]any) (catalog.Catalog, error) {
	raws, err := catalog.DecodeRecords(records)
	if err != nil {
		return catalog.Catalog{}, err
	}
	cat := catalog.Resolve(raws)
	if err := m.playback.SetCatalog(cat); err != nil {
		return catalog.Catalog{}, err
	}

	m.mu.Lock()
	m.playlist = nil
	m.mu.Unlock()

	zlog.Info().Msgf("player: tracks loaded: count=%d", cat.Len())
	return cat, nil
}

// Playlist returns the last generated playlist, or nil when the catalog was loaded directly.
func (m *Manager) Playlist() *playlist.Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playlist
}

// TogglePlayPause pauses when playing, otherwise requests play.
func (m *Manager) TogglePlayPause() error {
	return m.playback.TogglePlayPause()
}

// Next moves to the next track.
func (m *Manager) Next() error {
	return m.playback.Next()
}

// Previous moves to the previous track.
func (m *Manager) Previous() error {
	return m.playback.Previous()
}

// SelectTrack jumps to the track at index and plays it.
func (m *Manager) SelectTrack(index int) error {
	return m.playback.SelectTrack(index)
}

// Seek moves to fraction of the current track.
func (m *Manager) Seek(fraction float64) error {
	return m.playback.Seek(fraction)
}

// SetVolume sets the volume and returns the applied value.
func (m *Manager) SetVolume(percent int) (int, error) {
	return m.playback.SetVolume(percent)
}

// View returns the current player state.
func (m *Manager) View() playback.View {
	return m.playback.View()
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Done is closed once the event loop has drained after Close.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close stops playback, drains the event loop and closes all subscriptions.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()

		m.playback.Close()
		<-m.done
		m.notification.Close()
	})
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// eventLoop broadcasts controller events until the event channel closes.
func (m *Manager) eventLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("player: event loop panicked: %v", r)
			go m.eventLoop()
			return
		}
		close(m.done)
	}()

	for event := range m.playback.Events() {
		m.handleEvent(event)
	}
}

// handleEvent turns one controller event into a notification.
func (m *Manager) handleEvent(event playback.Event) {
	var message string

	switch event.Type {
	case playback.EventProgress:
		if !m.progressDue(time.Now()) {
			return
		}

	case playback.EventTrackChanged:
		zlog.Info().Msgf("player: track changed: index=%d id=%s title=%q", event.Index, event.Track.ID, event.Track.Title)

	case playback.EventStateChanged:
		zlog.Info().Msgf("player: state changed: state=%s index=%d", event.State, event.Index)

	case playback.EventCatalogReplaced:
		message = m.config.GetMessage("catalog_replaced")

	case playback.EventFallbackStarted:
		zlog.Info().Msgf("player: fallback started: index=%d url=%s", event.Index, event.SourceURL)
		message = m.config.GetMessage("fallback_started")

	case playback.EventPlaybackFailed:
		zlog.Warn().Msgf("player: playback failed: index=%d url=%s error=%v", event.Index, event.SourceURL, event.Err)
		message = m.config.GetMessage("playback_failed")
	}

	m.notification.Broadcast(&notification.Notification{
		Type:    event.Type.String(),
		Message: message,
		View:    m.playback.View(),
	})
}

// progressDue reports whether a progress notification may be sent at now.
func (m *Manager) progressDue(now time.Time) bool {
	if m.progressInterval <= 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.lastProgress) < m.progressInterval {
		return false
	}
	m.lastProgress = now
	return true
}

// notice broadcasts a configured message with the current view.
func (m *Manager) notice(code string) {
	m.notification.Broadcast(&notification.Notification{
		Type:    NoticeType,
		Message: m.config.GetMessage(code),
		View:    m.playback.View(),
	})
}

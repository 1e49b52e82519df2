// Package audio provides playback.Source implementations.
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/app/playback"
)

// ErrSuperseded is returned by Play when Load replaced the stream while it was starting.
var ErrSuperseded = errors.New("stream replaced before playback started")

const defaultTickInterval = 100 * time.Millisecond

// SimulatedConfig holds SimulatedSource configuration.
type SimulatedConfig struct {
	Duration     time.Duration // Reported length of every track
	TickInterval time.Duration // Progress reporting interval
	Prober       *Prober       // Checks that a location is reachable before playing
}

// SimulatedSource plays tracks against the wall clock without producing sound.
// It is used on hosts without an audio device.
type SimulatedSource struct {
	mu       sync.Mutex
	listener playback.Listener
	config   SimulatedConfig

	url          string
	gen          uint64 // Incremented by Load; stale callbacks compare against it
	token        uint64 // Controller token echoed on every listener call
	playing      bool
	startTime    time.Time     // Wall time the current segment started
	offset       time.Duration // Position at startTime
	metadataSent bool
	probed       bool // Location already probed for this generation
	volume       int

	timerCancel context.CancelFunc
	wg          sync.WaitGroup
}

// NewSimulatedSource creates a simulated source.
func NewSimulatedSource(config SimulatedConfig) *SimulatedSource {
	if config.TickInterval <= 0 {
		config.TickInterval = defaultTickInterval
	}
	if config.Prober == nil {
		config.Prober = NewProber(ProberConfig{})
	}
	return &SimulatedSource{config: config}
}

// SetListener implements playback.Source.
func (s *SimulatedSource) SetListener(l playback.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Load implements playback.Source.
func (s *SimulatedSource) Load(token uint64, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.gen++
	s.token = token
	s.url = url
	s.playing = false
	s.offset = 0
	s.metadataSent = false
	s.probed = false
}

// Play implements playback.Source. The location is probed before the clock starts.
func (s *SimulatedSource) Play(ctx context.Context) error {
	s.mu.Lock()
	url, gen, probed := s.url, s.gen, s.probed
	if s.playing {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if !probed {
		if err := s.config.Prober.Probe(ctx, url); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if gen != s.gen {
		return ErrSuperseded
	}

	s.probed = true
	s.playing = true
	s.startTime = toWallTime(time.Now())
	sendMetadata := !s.metadataSent
	s.metadataSent = true
	s.startTimerLocked(gen, sendMetadata)

	zlog.Debug().Msgf("audio: simulated playback started: url=%s offset=%v", url, s.offset)
	return nil
}

// Pause implements playback.Source.
func (s *SimulatedSource) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return
	}
	s.offset = s.positionLocked()
	s.playing = false
	s.stopTimerLocked()
}

// Seek implements playback.Source.
func (s *SimulatedSource) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := time.Duration(seconds * float64(time.Second))
	if pos < 0 {
		pos = 0
	}
	if pos > s.config.Duration {
		pos = s.config.Duration
	}
	s.offset = pos
	if s.playing {
		s.startTime = toWallTime(time.Now())
		s.stopTimerLocked()
		s.startTimerLocked(s.gen, false)
	}
}

// SetVolume implements playback.Source.
func (s *SimulatedSource) SetVolume(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = percent
}

// Volume returns the last volume set.
func (s *SimulatedSource) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Position returns the current simulated position.
func (s *SimulatedSource) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionLocked()
}

// Close stops the clock and waits for its goroutine.
func (s *SimulatedSource) Close() {
	s.mu.Lock()
	s.gen++
	s.playing = false
	s.stopTimerLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *SimulatedSource) positionLocked() time.Duration {
	pos := s.offset
	if s.playing {
		pos += toWallTime(time.Now()).Sub(s.startTime)
	}
	if pos > s.config.Duration {
		pos = s.config.Duration
	}
	return pos
}

func (s *SimulatedSource) stopTimerLocked() {
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
}

// startTimerLocked runs the wall-clock loop for generation gen.
// Must be called with lock held.
func (s *SimulatedSource) startTimerLocked(gen uint64, sendMetadata bool) {
	ctx, cancel := context.WithCancel(context.Background())
	s.timerCancel = cancel
	listener := s.listener
	token := s.token
	duration := s.config.Duration

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if listener == nil {
			return
		}
		if sendMetadata {
			listener.OnMetadataReady(token, duration.Seconds())
		}

		ticker := time.NewTicker(s.config.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pos, ended, ok := s.tick(ctx, gen)
				if !ok {
					return
				}
				listener.OnTimeAdvanced(token, pos.Seconds())
				if ended {
					listener.OnEnded(token)
					return
				}
			}
		}
	}()
}

// tick reads the position for gen. ok is false once gen is stale or stopped.
func (s *SimulatedSource) tick(ctx context.Context, gen uint64) (pos time.Duration, ended bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || gen != s.gen || !s.playing {
		return 0, false, false
	}
	pos = s.positionLocked()
	if pos >= s.config.Duration {
		s.playing = false
		s.offset = s.config.Duration
		s.stopTimerLocked()
		return pos, true, true
	}
	return pos, false, true
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}

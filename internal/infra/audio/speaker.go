package audio

import (
	"bytes"
	"context"
	"math"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/app/playback"
)

// ErrUnsupportedFormat is returned for sources that are not mp3, wav or flac.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const (
	volumeCurveExponent = 0.5
	minVolumeExponent   = -10.0
	resampleQuality     = 4
)

// SpeakerConfig holds SpeakerSource configuration.
type SpeakerConfig struct {
	SampleRate   int
	Buffer       time.Duration
	TickInterval time.Duration
	Prober       *Prober
}

// SpeakerSource plays tracks through the system audio device.
type SpeakerSource struct {
	mu       sync.Mutex
	listener playback.Listener
	config   SpeakerConfig
	rate     beep.SampleRate

	url    string
	gen    uint64
	token  uint64
	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	volume *effects.Volume

	volumePercent int
	tickCancel    context.CancelFunc
	wg            sync.WaitGroup
}

// NewSpeakerSource initialises the speaker and returns a source bound to it.
func NewSpeakerSource(config SpeakerConfig) (*SpeakerSource, error) {
	if config.TickInterval <= 0 {
		config.TickInterval = defaultTickInterval
	}
	if config.Buffer <= 0 {
		config.Buffer = 100 * time.Millisecond
	}
	if config.Prober == nil {
		config.Prober = NewProber(ProberConfig{})
	}

	rate := beep.SampleRate(config.SampleRate)
	if err := speaker.Init(rate, rate.N(config.Buffer)); err != nil {
		return nil, errors.Wrap(err, "failed to initialise speaker")
	}

	return &SpeakerSource{config: config, rate: rate, volumePercent: 50}, nil
}

// SetListener implements playback.Source.
func (s *SpeakerSource) SetListener(l playback.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Load implements playback.Source.
func (s *SpeakerSource) Load(token uint64, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.token = token
	s.releaseLocked()
	s.url = url
}

// Play implements playback.Source. The first call after Load downloads and
// decodes the stream; later calls resume it.
func (s *SpeakerSource) Play(ctx context.Context) error {
	s.mu.Lock()
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = false
		speaker.Unlock()
		s.startTickerLocked(s.gen, false)
		s.mu.Unlock()
		return nil
	}
	url, gen := s.url, s.gen
	s.mu.Unlock()

	data, contentType, err := s.config.Prober.Fetch(ctx, url)
	if err != nil {
		return err
	}
	stream, format, err := decode(url, contentType, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		stream.Close()
		return err
	}
	if gen != s.gen {
		stream.Close()
		return ErrSuperseded
	}

	var out beep.Streamer = stream
	if format.SampleRate != s.rate {
		out = beep.Resample(resampleQuality, format.SampleRate, s.rate, stream)
	}

	s.stream = stream
	s.format = format
	s.volume = &effects.Volume{
		Streamer: out,
		Base:     2,
		Volume:   percentToExponent(s.volumePercent),
		Silent:   s.volumePercent <= 0,
	}
	s.ctrl = &beep.Ctrl{Streamer: s.volume}

	speaker.Play(beep.Seq(s.ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker locked.
		go s.onStreamEnd(gen)
	})))
	s.startTickerLocked(gen, true)

	zlog.Debug().Msgf("audio: speaker playback started: url=%s rate=%d length=%v",
		url, format.SampleRate, format.SampleRate.D(stream.Len()))
	return nil
}

// Pause implements playback.Source.
func (s *SpeakerSource) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTickerLocked()
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

// Seek implements playback.Source.
func (s *SpeakerSource) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()

	pos := s.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if pos < 0 {
		pos = 0
	}
	if last := s.stream.Len() - 1; pos > last {
		pos = last
	}
	if err := s.stream.Seek(pos); err != nil {
		zlog.Warn().Err(err).Msgf("audio: seek failed: url=%s seconds=%.1f", s.url, seconds)
	}
}

// SetVolume implements playback.Source.
func (s *SpeakerSource) SetVolume(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.volumePercent = percent
	if s.volume == nil {
		return
	}
	speaker.Lock()
	s.volume.Volume = percentToExponent(percent)
	s.volume.Silent = percent <= 0
	speaker.Unlock()
}

// Close stops output and releases the current stream.
func (s *SpeakerSource) Close() {
	s.mu.Lock()
	s.gen++
	s.releaseLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

// onStreamEnd reports the end of generation gen.
func (s *SpeakerSource) onStreamEnd(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.stream == nil {
		s.mu.Unlock()
		return
	}
	s.stopTickerLocked()
	length := s.format.SampleRate.D(s.stream.Len()).Seconds()
	listener, token := s.listener, s.token
	s.mu.Unlock()

	if listener != nil {
		listener.OnTimeAdvanced(token, length)
		listener.OnEnded(token)
	}
}

// releaseLocked clears the speaker and closes the current stream.
// Must be called with lock held.
func (s *SpeakerSource) releaseLocked() {
	s.stopTickerLocked()
	speaker.Clear()
	if s.stream != nil {
		if err := s.stream.Close(); err != nil {
			zlog.Debug().Err(err).Msgf("audio: failed to close stream: url=%s", s.url)
		}
	}
	s.stream = nil
	s.ctrl = nil
	s.volume = nil
}

func (s *SpeakerSource) stopTickerLocked() {
	if s.tickCancel != nil {
		s.tickCancel()
		s.tickCancel = nil
	}
}

// startTickerLocked reports progress for generation gen until cancelled.
// Must be called with lock held.
func (s *SpeakerSource) startTickerLocked(gen uint64, sendMetadata bool) {
	s.stopTickerLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.tickCancel = cancel
	listener, token := s.listener, s.token
	length := s.format.SampleRate.D(s.stream.Len()).Seconds()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if listener == nil {
			return
		}
		if sendMetadata {
			listener.OnMetadataReady(token, length)
		}

		ticker := time.NewTicker(s.config.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pos, ok := s.position(ctx, gen)
				if !ok {
					return
				}
				listener.OnTimeAdvanced(token, pos)
			}
		}
	}()
}

func (s *SpeakerSource) position(ctx context.Context, gen uint64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil || gen != s.gen || s.stream == nil {
		return 0, false
	}
	speaker.Lock()
	pos := s.stream.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos).Seconds(), true
}

// decode picks a decoder from the extension or content type.
func decode(location, contentType string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := &memoryFile{Reader: bytes.NewReader(data)}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch formatOf(location, contentType) {
	case "mp3":
		stream, format, err = mp3.Decode(r)
	case "wav":
		stream, format, err = wav.Decode(r)
	case "flac":
		stream, format, err = flac.Decode(r)
	default:
		return nil, beep.Format{}, errors.Wrapf(ErrUnsupportedFormat, "%s (%s)", location, contentType)
	}
	if err != nil {
		return nil, beep.Format{}, errors.Wrapf(err, "failed to decode %s", location)
	}
	return stream, format, nil
}

// formatOf returns "mp3", "wav", "flac" or "".
func formatOf(location, contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return "mp3"
	case strings.Contains(ct, "wav"):
		return "wav"
	case strings.Contains(ct, "flac"):
		return "flac"
	}

	p := location
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return "mp3"
	case ".wav":
		return "wav"
	case ".flac":
		return "flac"
	}

	// Spotify preview URLs carry no extension and are mp3.
	if strings.Contains(location, "p.scdn.co/mp3-preview") {
		return "mp3"
	}
	return ""
}

// percentToExponent maps a volume percent to an effects.Volume exponent (base 2).
func percentToExponent(percent int) float64 {
	if percent <= 0 {
		return minVolumeExponent
	}
	if percent >= 100 {
		return 0
	}
	normalized := float64(percent) / 100.0
	adjusted := math.Pow(normalized, volumeCurveExponent)
	return (1.0 - adjusted) * minVolumeExponent
}

// memoryFile is an in-memory io.ReadSeekCloser.
type memoryFile struct {
	*bytes.Reader
}

// Close implements io.Closer.
func (m *memoryFile) Close() error {
	return nil
}

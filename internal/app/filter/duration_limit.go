package filter

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/config"
)

const durationLimitFilterName = "duration_limit_filter"

// Rejection codes of DurationLimitFilter.
const (
	CodeTrackTooShort   = "track_too_short"
	CodeTrackTooLong    = "track_too_long"
	CodePlaylistTooLong = "playlist_too_long"
)

// DurationLimitConfig holds the duration_limit_filter settings.
type DurationLimitConfig struct {
	MinMinutes      float64  `mapstructure:"min_minutes" default:"1" validate:"gte=1"`
	MaxMinutes      float64  `mapstructure:"max_minutes" validate:"gte=0"`       // 0: no per-track cap
	MaxTotalMinutes float64  `mapstructure:"max_total_minutes" validate:"gte=0"` // 0: no playlist cap
	Providers       []string `mapstructure:"providers"`                          // Empty: every provider
}

// DurationLimitFilter keeps tracks inside a length window and, optionally, keeps
// the whole playlist under a running-time budget. Records of unknown length pass
// and do not count towards the budget.
type DurationLimitFilter struct {
	config *DurationLimitConfig
}

// NewDurationLimitFilter creates an unconfigured filter that accepts everything
// until ValidateConfig succeeds.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return durationLimitFilterName
}

func (f *DurationLimitFilter) Description() string {
	return "Keeps tracks within min/max minutes and the playlist within max_total_minutes"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{CodeTrackTooShort, CodeTrackTooLong, CodePlaylistTooLong}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var cfg DurationLimitConfig
	if err := config.DecodeSettings(settings, &cfg); err != nil {
		return err
	}
	if cfg.MaxMinutes > 0 && cfg.MinMinutes > cfg.MaxMinutes {
		return errors.Newf("min_minutes (%v) cannot be greater than max_minutes (%v)", cfg.MinMinutes, cfg.MaxMinutes)
	}
	if cfg.MaxTotalMinutes > 0 && cfg.MaxTotalMinutes < cfg.MinMinutes {
		return errors.Newf("max_total_minutes (%v) leaves no room for a %v minute track", cfg.MaxTotalMinutes, cfg.MinMinutes)
	}

	f.config = &cfg
	zlog.Info().Msgf("filter: duration limit: min=%v max=%v total=%v providers=%v",
		cfg.MinMinutes, cfg.MaxMinutes, cfg.MaxTotalMinutes, cfg.Providers)
	return nil
}

func (f *DurationLimitFilter) AppliesTo(provider string) bool {
	if f.config == nil || len(f.config.Providers) == 0 {
		return true
	}
	for _, p := range f.config.Providers {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}

func (f *DurationLimitFilter) Check(ctx context.Context, req playlist.Request, t track.Raw, accepted []track.Raw) Result {
	length := t.Duration()
	if f.config == nil || length == 0 {
		return Accept()
	}

	minutes := length.Minutes()
	switch {
	case minutes < f.config.MinMinutes:
		return Reject(CodeTrackTooShort)
	case f.config.MaxMinutes > 0 && minutes > f.config.MaxMinutes:
		return Reject(CodeTrackTooLong)
	}

	if f.config.MaxTotalMinutes > 0 {
		if (runningTime(accepted) + length).Minutes() > f.config.MaxTotalMinutes {
			return Reject(CodePlaylistTooLong)
		}
	}
	return Accept()
}

// runningTime sums the known lengths of the tracks kept so far.
func runningTime(tracks []track.Raw) time.Duration {
	var total time.Duration
	for i := range tracks {
		total += tracks[i].Duration()
	}
	return total
}

func init() {
	Register(durationLimitFilterName, func() Filter {
		return NewDurationLimitFilter()
	})
}

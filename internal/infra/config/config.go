// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Provider types that talk to the Spotify Web API.
var spotifyProviderTypes = map[string]bool{
	"spotify":  true,
	"playlist": true,
}

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Log       LogConfig               `yaml:"log"`
	Control   ControlConfig           `yaml:"control"`
	Player    PlayerConfig            `yaml:"player"`
	Audio     AudioConfig             `yaml:"audio"`
	Generator GeneratorConfig         `yaml:"generator"`
	Filters   map[string]FilterConfig `yaml:"filters"`
	Messages  MessagesConfig          `yaml:"messages"`
	Spotify   SpotifyConfig           `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file"`
}

// ControlConfig represents remote control configuration.
// An empty token leaves control RPCs open.
type ControlConfig struct {
	Token string `yaml:"token"`
}

// PlayerConfig represents playback engine configuration.
type PlayerConfig struct {
	InitialVolume      int `yaml:"initial_volume" default:"50" validate:"gte=0,lte=100"`
	ProgressIntervalMs int `yaml:"progress_interval_ms" default:"1000" validate:"gte=0,lte=60000"`
	EventBuffer        int `yaml:"event_buffer" default:"64" validate:"gte=1,lte=4096"`
}

// AudioConfig represents audio output configuration.
type AudioConfig struct {
	Output               string `yaml:"output" default:"simulated" validate:"oneof=speaker simulated"`
	SampleRate           int    `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs             int    `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	SimulatedDurationSec int    `yaml:"simulated_duration_sec" default:"30" validate:"gte=1"`
	ProbeTimeoutMs       int    `yaml:"probe_timeout_ms" default:"5000" validate:"gte=100"`
	MaxDownloadMB        int    `yaml:"max_download_mb" default:"32" validate:"gte=1,lte=512"`
}

// GeneratorConfig represents playlist generation configuration.
type GeneratorConfig struct {
	DefaultCount int              `yaml:"default_count" default:"10" validate:"gte=1,lte=100"`
	MaxCount     int              `yaml:"max_count" default:"50" validate:"gte=1,lte=100"`
	Providers    []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single track provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=spotify playlist lastfm library"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing notices.
type MessagesConfig struct {
	PlaybackFailed  string `yaml:"playback_failed" default:"This track could not be played"`
	FallbackStarted string `yaml:"fallback_started" default:"Source unavailable, playing a sample instead"`
	CatalogReplaced string `yaml:"catalog_replaced" default:"New playlist loaded"`
	NoCandidates    string `yaml:"no_candidates" default:"No tracks matched this mood"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		for i := range c.Generator.Providers {
			if c.Generator.Providers[i].Type == "lastfm" {
				if c.Generator.Providers[i].Settings == nil {
					c.Generator.Providers[i].Settings = make(map[string]any)
				}
				c.Generator.Providers[i].Settings["api_key"] = v
			}
		}
	}
	if v := os.Getenv("CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
}

// GetMessage returns the notice text for the given event code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "playback_failed":
		return c.Messages.PlaybackFailed
	case "fallback_started":
		return c.Messages.FallbackStarted
	case "catalog_replaced":
		return c.Messages.CatalogReplaced
	case "no_candidates":
		return c.Messages.NoCandidates
	default:
		return ""
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Generator.DefaultCount > c.Generator.MaxCount {
		return errors.Newf("default_count (%d) must not exceed max_count (%d)", c.Generator.DefaultCount, c.Generator.MaxCount)
	}

	if c.UsesSpotify() && (c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "") {
		return errors.New("spotify client_id and client_secret are required by the configured providers")
	}

	return nil
}

// UsesSpotify reports whether any configured provider needs Spotify credentials.
func (c *Config) UsesSpotify() bool {
	for _, p := range c.Generator.Providers {
		if spotifyProviderTypes[p.Type] {
			return true
		}
	}
	return false
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}

// DecodeSettings decodes free-form provider or filter settings into out,
// applies defaults and validates.
func DecodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create settings decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

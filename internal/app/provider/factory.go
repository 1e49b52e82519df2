package provider

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/infra/config"
)

// NewChainFromConfig creates a provider chain from configuration.
// spotify may be nil when no provider needs it.
func NewChainFromConfig(cfg *config.Config, spotify SpotifyClient) (*Chain, error) {
	if len(cfg.Generator.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Generator.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("provider: creating provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "spotify":
			provider, err = NewSpotifyProvider(spotify, pcfg.Settings)

		case "playlist":
			provider, err = NewPlaylistProvider(spotify, pcfg.Settings)

		case "lastfm":
			provider, err = NewLastFmProvider(spotify, pcfg.Settings)

		case "library":
			provider, err = NewLibraryProvider(pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("provider: registered provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewChain(providers), nil
}

package filter

import (
	"context"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/spotify"
)

// MarketFilter checks if a Spotify track is available in the configured market.
type MarketFilter struct {
	market string
}

// NewMarketFilter creates a new MarketFilter with the specified market.
func NewMarketFilter(market string) *MarketFilter {
	return &MarketFilter{market: market}
}

func (f *MarketFilter) Name() string {
	return "market_filter"
}

func (f *MarketFilter) Description() string {
	return "Checks if the track is available in the configured market"
}

func (f *MarketFilter) ReturnCodes() []string {
	return []string{"market_restriction"}
}

func (f *MarketFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *MarketFilter) AppliesTo(provider string) bool {
	// Only Spotify records carry market data
	return provider == spotify.ProviderName
}

func (f *MarketFilter) Check(ctx context.Context, req playlist.Request, t track.Raw, accepted []track.Raw) Result {
	if f.market == "" {
		return Accept()
	}

	if !t.IsAvailableInMarket(f.market) {
		return Reject("market_restriction")
	}
	return Accept()
}

func init() {
	// The market comes from the spotify section; the player passes it in.
	Register("market_filter", func() Filter {
		return NewMarketFilter("")
	})
}

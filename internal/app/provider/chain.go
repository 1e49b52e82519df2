package provider

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
)

// ErrNoCandidates is returned when no provider produced a candidate.
var ErrNoCandidates = errors.New("all providers failed to return candidates")

// Candidate is a track candidate with its source provider info.
type Candidate struct {
	Track       track.Raw
	DisplayName string
}

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain tries providers in order until enough candidates are found.
type Chain struct {
	providers []ProviderWithMetadata
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{providers: providers}
}

// GetCandidates collects up to req.Count candidates, de-duplicated by ID.
// A failing provider is skipped; ErrNoCandidates is returned only when
// every provider yields nothing.
func (c *Chain) GetCandidates(ctx context.Context, req playlist.Request, excludeIDs map[string]bool) ([]Candidate, error) {
	var all []Candidate
	seen := make(map[string]bool, len(excludeIDs))
	for k, v := range excludeIDs {
		seen[k] = v
	}

	for i, pm := range c.providers {
		remaining := req.Count - len(all)
		if remaining <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "candidate search cancelled")
		}

		zlog.Debug().Msgf("provider: trying provider: index=%d total=%d name=%s type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		sub := req
		sub.Count = remaining
		candidates, err := pm.Provider.GetCandidates(ctx, sub, seen)
		if err != nil {
			zlog.Warn().Msgf("provider: provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			continue
		}

		added := 0
		for _, t := range candidates {
			if t.ID == "" || seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			all = append(all, Candidate{Track: t, DisplayName: pm.DisplayName})
			added++
			if len(all) >= req.Count {
				break
			}
		}

		if added == 0 {
			zlog.Debug().Msgf("provider: provider returned no candidates: provider=%s", pm.DisplayName)
			continue
		}
		zlog.Info().Msgf("provider: provider returned candidates: provider=%s count=%d total_so_far=%d",
			pm.DisplayName, added, len(all))
	}

	if len(all) == 0 {
		return nil, ErrNoCandidates
	}
	return all, nil
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int {
	return len(c.providers)
}

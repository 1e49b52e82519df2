package filter

import (
	"context"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the candidate.
// Filters are only applied if they declare they apply to the record's provider.
func (c *Chain) Execute(ctx context.Context, req playlist.Request, t track.Raw, accepted []track.Raw) Result {
	for _, f := range c.filters {
		if !f.AppliesTo(t.Provider) {
			continue
		}

		result := f.Check(ctx, req, t, accepted)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply filters candidates in order and keeps at most limit of them
// (limit <= 0 keeps all). rejected counts rejections per code.
func (c *Chain) Apply(ctx context.Context, req playlist.Request, candidates []track.Raw, limit int) (accepted []track.Raw, rejected map[string]int) {
	rejected = make(map[string]int)
	for _, t := range candidates {
		if limit > 0 && len(accepted) >= limit {
			break
		}
		result := c.Execute(ctx, req, t, accepted)
		if !result.Accepted {
			rejected[result.Code]++
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

package filter

import (
	"context"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
)

// ExplicitFilter drops explicit tracks when the request asks to avoid them.
type ExplicitFilter struct{}

// NewExplicitFilter creates a new explicit content filter.
func NewExplicitFilter() *ExplicitFilter {
	return &ExplicitFilter{}
}

func (f *ExplicitFilter) Name() string {
	return "explicit_filter"
}

func (f *ExplicitFilter) Description() string {
	return "Rejects explicit tracks for requests with avoid_explicit set"
}

func (f *ExplicitFilter) ReturnCodes() []string {
	return []string{"explicit_content"}
}

func (f *ExplicitFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *ExplicitFilter) AppliesTo(provider string) bool {
	return true
}

func (f *ExplicitFilter) Check(ctx context.Context, req playlist.Request, t track.Raw, accepted []track.Raw) Result {
	if req.AvoidExplicit && t.Explicit {
		return Reject("explicit_content")
	}
	return Accept()
}

func init() {
	Register("explicit_filter", func() Filter {
		return NewExplicitFilter()
	})
}

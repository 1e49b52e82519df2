package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters_AppliesTo(t *testing.T) {
	providers := []string{"spotify", "playlist", "lastfm", "library", ""}

	tests := []struct {
		name   string
		filter Filter
		want   map[string]bool
	}{
		{
			name:   "market filter only checks spotify records",
			filter: NewMarketFilter("JP"),
			want:   map[string]bool{"spotify": true},
		},
		{
			name:   "explicit filter applies to all",
			filter: NewExplicitFilter(),
			want:   map[string]bool{"spotify": true, "playlist": true, "lastfm": true, "library": true, "": true},
		},
		{
			name:   "duration filter applies to all",
			filter: NewDurationLimitFilter(),
			want:   map[string]bool{"spotify": true, "playlist": true, "lastfm": true, "library": true, "": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, p := range providers {
				assert.Equal(t, tt.want[p], tt.filter.AppliesTo(p), "provider=%q", p)
			}
		})
	}
}

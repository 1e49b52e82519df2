package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/vibechef/internal/domain/playlist"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name         string
		req          playlist.Request
		wantGenres   []string
		wantKeywords []string
		wantEnergy   float64
		wantValence  float64
	}{
		{
			name:         "empty request uses neutral defaults",
			req:          playlist.Request{},
			wantGenres:   []string{"indie", "pop"},
			wantKeywords: []string{},
			wantEnergy:   0.5,
			wantValence:  0.5,
		},
		{
			name:         "study keyword",
			req:          playlist.Request{Mood: "Study"},
			wantGenres:   []string{"lo-fi", "ambient"},
			wantKeywords: []string{"study"},
			wantEnergy:   0.325,
			wantValence:  0.425,
		},
		{
			name:         "caller genres come first and are normalized",
			req:          playlist.Request{Mood: "workout", Genres: []string{"HipHop", " EDM ", ""}},
			wantGenres:   []string{"hip-hop", "electronic", "pop"},
			wantKeywords: []string{"workout"},
			wantEnergy:   0.875,
			wantValence:  0.7,
		},
		{
			name:         "weighted blend skips stopwords",
			req:          playlist.Request{Mood: "study with the rain"},
			wantGenres:   []string{"lo-fi", "ambient"},
			wantKeywords: []string{"study", "rain"},
			wantEnergy:   0.332,
			wantValence:  0.404,
		},
		{
			name:         "unknown words keep defaults",
			req:          playlist.Request{Mood: "purple elephants"},
			wantGenres:   []string{"indie", "pop"},
			wantKeywords: []string{"purple", "elephants"},
			wantEnergy:   0.5,
			wantValence:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.req)
			assert.Equal(t, tt.wantGenres, got.Genres)
			assert.ElementsMatch(t, tt.wantKeywords, got.Keywords)
			assert.InDelta(t, tt.wantEnergy, got.Features.Energy, 0.001)
			assert.InDelta(t, tt.wantValence, got.Features.Valence, 0.001)
		})
	}
}

func TestNormalizeGenre(t *testing.T) {
	assert.Equal(t, "hip-hop", NormalizeGenre("Hip Hop"))
	assert.Equal(t, "r-n-b", NormalizeGenre("RnB"))
	assert.Equal(t, "lo-fi", NormalizeGenre("lofi"))
	assert.Equal(t, "jazz", NormalizeGenre(" Jazz "))
	assert.Equal(t, "", NormalizeGenre("  "))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"rainy", "rainy evening", "evening"}, tokenize("Rainy evening!"))
	assert.Empty(t, tokenize("with the"))
}

package provider

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/spotify"
)

// fakeSpotify is an in-memory SpotifyClient.
type fakeSpotify struct {
	mu sync.Mutex

	recommendations []track.Raw
	recommendErr    error
	search          map[string][]track.Raw // query -> results
	searchErr       error
	full            map[string]*track.Raw
	playlist        []track.Raw

	queries       []string
	recommendArgs []string
	playlistCalls int
}

func (f *fakeSpotify) SearchTracks(_ context.Context, query string, limit int) ([]track.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	results := f.search[query]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeSpotify) Recommend(_ context.Context, genres []string, _ spotify.Features, _ int) ([]track.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recommendArgs = append(f.recommendArgs, genres...)
	if f.recommendErr != nil {
		return nil, f.recommendErr
	}
	return f.recommendations, nil
}

func (f *fakeSpotify) GetTrack(_ context.Context, trackID string) (*track.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.full[trackID]; ok {
		return t, nil
	}
	return nil, errors.New("404 not found")
}

func (f *fakeSpotify) GetPlaylistTracksRandom(_ context.Context, _ string, count int) ([]track.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlistCalls++
	out := f.playlist
	if len(out) > count {
		out = out[:count]
	}
	return append([]track.Raw(nil), out...), nil
}

// stubProvider returns fixed tracks or an error.
type stubProvider struct {
	name   string
	tracks []track.Raw
	err    error
	calls  []playlist.Request
}

func (s *stubProvider) GetCandidates(_ context.Context, req playlist.Request, _ map[string]bool) ([]track.Raw, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.tracks, nil
}

func (s *stubProvider) Name() string {
	return s.name
}

func raws(ids ...string) []track.Raw {
	out := make([]track.Raw, len(ids))
	for i, id := range ids {
		out[i] = track.Raw{ID: id, Name: "Song " + id, Artists: []string{"Artist"}}
	}
	return out
}

func ids(tracks []track.Raw) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

package provider

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/domain/track"
	"github.com/osa030/vibechef/internal/infra/config"
	"github.com/osa030/vibechef/internal/infra/library"
)

// LibraryProviderName is recorded on records read from local files.
const LibraryProviderName = "library"

// LibraryProviderConfig holds the "library" provider settings.
type LibraryProviderConfig struct {
	Dir        string   `yaml:"dir" mapstructure:"dir" validate:"required"`
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
	Rescan     bool     `yaml:"rescan" mapstructure:"rescan"` // Re-read the directory on every request
}

// LibraryProvider provides tracks from a local music directory. Files whose
// genre, title or album mention the mood or a genre come first; the rest
// follow in random order.
type LibraryProvider struct {
	config *LibraryProviderConfig

	mu      sync.Mutex
	entries []library.Entry
	scanned bool
}

// NewLibraryProvider creates a new LibraryProvider.
func NewLibraryProvider(settings map[string]any) (*LibraryProvider, error) {
	var cfg LibraryProviderConfig
	if err := config.DecodeSettings(settings, &cfg); err != nil {
		return nil, err
	}
	return &LibraryProvider{config: &cfg}, nil
}

// GetCandidates implements Provider.
func (p *LibraryProvider) GetCandidates(ctx context.Context, req playlist.Request, existingTrackIDs map[string]bool) ([]track.Raw, error) {
	if req.Count <= 0 {
		return []track.Raw{}, nil
	}

	entries, err := p.load()
	if err != nil {
		return nil, err
	}

	terms := matchTerms(req)
	var matched, rest []track.Raw
	for _, e := range entries {
		raw := entryToRaw(e)
		if existingTrackIDs[raw.ID] {
			continue
		}
		if matches(e, terms) {
			matched = append(matched, raw)
		} else {
			rest = append(rest, raw)
		}
	}

	rng := newRand()
	rng.Shuffle(len(matched), func(i, j int) { matched[i], matched[j] = matched[j], matched[i] })
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	all := append(matched, rest...)
	if len(all) > req.Count {
		all = all[:req.Count]
	}
	zlog.Debug().Msgf("provider: library candidates: dir=%s matched=%d returned=%d", p.config.Dir, len(matched), len(all))
	return all, nil
}

// Name returns the provider name.
func (p *LibraryProvider) Name() string {
	return "library"
}

func (p *LibraryProvider) load() ([]library.Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.scanned && !p.config.Rescan {
		return p.entries, nil
	}
	entries, err := library.Scan(p.config.Dir, p.config.Extensions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan library")
	}
	p.entries = entries
	p.scanned = true
	return entries, nil
}

// matchTerms returns the lower-case mood words and genres to look for in tags.
func matchTerms(req playlist.Request) []string {
	profile := Interpret(req)
	return dedupe(append(append([]string(nil), profile.Keywords...), profile.Genres...))
}

func matches(e library.Entry, terms []string) bool {
	haystack := strings.ToLower(e.Genre + " " + e.Title + " " + e.Album)
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// entryToRaw converts a library entry. The ID is derived from the path so it
// stays stable across scans.
func entryToRaw(e library.Entry) track.Raw {
	raw := track.Raw{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+e.Path)).String(),
		Title:    e.Title,
		Album:    e.Album,
		URL:      e.Path,
		Provider: LibraryProviderName,
	}
	if e.Artist != "" {
		raw.Artists = []string{e.Artist}
	}
	return raw
}

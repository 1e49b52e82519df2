// Package catalog resolves loosely-typed track records into a playable catalog.
package catalog

import (
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/vibechef/internal/domain/track"
)

const (
	unknownTitle  = "Unknown Track"
	unknownArtist = "Unknown Artist"
)

// Catalog is an ordered, non-empty sequence of canonical tracks.
type Catalog struct {
	tracks []track.Track
}

// Len returns the number of tracks.
func (c Catalog) Len() int {
	return len(c.tracks)
}

// At returns the track at position i.
func (c Catalog) At(i int) track.Track {
	return c.tracks[i]
}

// Tracks returns a copy of the tracks.
func (c Catalog) Tracks() []track.Track {
	return append([]track.Track(nil), c.tracks...)
}

// IsZero reports whether the catalog holds no tracks.
func (c Catalog) IsZero() bool {
	return len(c.tracks) == 0
}

// Resolve normalises raw records into a catalog.
// An empty input yields the sample catalog.
func Resolve(raws []track.Raw) Catalog {
	if len(raws) == 0 {
		return Samples()
	}

	out := make([]track.Track, len(raws))
	for i, r := range raws {
		out[i] = resolveOne(i, r)
	}
	return Catalog{tracks: out}
}

func resolveOne(i int, r track.Raw) track.Track {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}

	title := r.DisplayTitle()
	if title == "" {
		title = unknownTitle
	}

	var artist string
	if len(r.Artists) > 0 {
		artist = strings.Join(r.Artists, ", ")
	} else if r.Artist != "" {
		artist = r.Artist
	} else {
		artist = unknownArtist
	}

	url := r.PreviewURL
	if url == "" {
		url = r.URL
	}
	if url == "" {
		url = SampleAt(i).SourceURL
	}

	return track.Track{ID: id, Title: title, Artist: artist, SourceURL: url}
}

// DecodeRecords decodes loosely-typed records (as received over JSON) into raw tracks.
func DecodeRecords(records []map[string]any) ([]track.Raw, error) {
	raws := make([]track.Raw, 0, len(records))
	for i, rec := range records {
		var r track.Raw
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &r,
			WeaklyTypedInput: true,
			DecodeHook:       artistNameHook,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create decoder")
		}
		if err := decoder.Decode(rec); err != nil {
			return nil, errors.Wrapf(err, "failed to decode record %d", i)
		}
		raws = append(raws, r)
	}
	return raws, nil
}

// artistNameHook flattens artist objects ({"name": "..."}) into their names.
func artistNameHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	if name, ok := obj["name"].(string); ok {
		return name, nil
	}
	return "", nil
}

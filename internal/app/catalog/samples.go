package catalog

import (
	"strconv"

	"github.com/osa030/vibechef/internal/domain/track"
)

const sampleHost = "bensound.com"

var sampleSlugs = []struct {
	title string
	slug  string
}{
	{"Acoustic Breeze", "acousticbreeze"},
	{"Sunny", "sunny"},
	{"Better Days", "betterdays"},
	{"Ukulele", "ukulele"},
	{"Creative Minds", "creativeminds"},
	{"Little Idea", "littleidea"},
	{"Jazzy Frenchy", "jazzyfrenchy"},
	{"Funky Suspense", "funkysuspense"},
}

var (
	samples    = buildSamples()
	sampleURLs = sampleURLSet(samples)
)

func buildSamples() []track.Track {
	out := make([]track.Track, len(sampleSlugs))
	for i, s := range sampleSlugs {
		out[i] = track.Track{
			ID:        strconv.Itoa(i + 1),
			Title:     s.title,
			Artist:    "Benjamin Tissot",
			SourceURL: "https://www." + sampleHost + "/bensound-music/bensound-" + s.slug + ".mp3",
		}
	}
	return out
}

func sampleURLSet(tracks []track.Track) map[string]struct{} {
	set := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		set[t.SourceURL] = struct{}{}
	}
	return set
}

// Samples returns the built-in sample catalog.
func Samples() Catalog {
	return Catalog{tracks: append([]track.Track(nil), samples...)}
}

// SampleCount returns the size of the sample catalog.
func SampleCount() int {
	return len(samples)
}

// SampleAt returns the sample at i modulo the sample count.
// Negative indices wrap as well.
func SampleAt(i int) track.Track {
	n := len(samples)
	return samples[((i%n)+n)%n]
}

// IsSample reports whether url is one of the sample catalog sources.
func IsSample(url string) bool {
	_, ok := sampleURLs[url]
	return ok
}

package provider

import (
	"regexp"
	"strings"

	"github.com/osa030/vibechef/internal/domain/playlist"
	"github.com/osa030/vibechef/internal/infra/spotify"
)

// moodEntry maps a mood keyword to seed genres and audio feature targets.
type moodEntry struct {
	genres  []string
	energy  [2]float64
	valence [2]float64
	weight  float64
}

var moodKeywords = map[string]moodEntry{
	"study":     {genres: []string{"lo-fi", "ambient"}, energy: [2]float64{0.20, 0.45}, valence: [2]float64{0.30, 0.55}, weight: 1.0},
	"focus":     {genres: []string{"ambient", "classical"}, energy: [2]float64{0.20, 0.45}, valence: [2]float64{0.30, 0.55}, weight: 1.0},
	"chill":     {genres: []string{"chill", "lo-fi"}, energy: [2]float64{0.20, 0.50}, valence: [2]float64{0.40, 0.70}, weight: 0.9},
	"workout":   {genres: []string{"electronic", "pop"}, energy: [2]float64{0.75, 1.0}, valence: [2]float64{0.50, 0.90}, weight: 1.0},
	"party":     {genres: []string{"dance", "pop"}, energy: [2]float64{0.70, 1.0}, valence: [2]float64{0.60, 1.0}, weight: 1.0},
	"happy":     {genres: []string{"pop", "happy"}, energy: [2]float64{0.55, 0.85}, valence: [2]float64{0.70, 1.0}, weight: 0.9},
	"sad":       {genres: []string{"indie", "acoustic"}, energy: [2]float64{0.10, 0.45}, valence: [2]float64{0.0, 0.35}, weight: 0.9},
	"sleep":     {genres: []string{"ambient", "sleep"}, energy: [2]float64{0.0, 0.25}, valence: [2]float64{0.20, 0.50}, weight: 1.0},
	"rain":      {energy: [2]float64{0.20, 0.50}, valence: [2]float64{0.20, 0.50}, weight: 0.4},
	"rainy":     {energy: [2]float64{0.20, 0.50}, valence: [2]float64{0.20, 0.50}, weight: 0.4},
	"romantic":  {genres: []string{"r-n-b", "soul"}, energy: [2]float64{0.30, 0.60}, valence: [2]float64{0.50, 0.80}, weight: 0.8},
	"angry":     {genres: []string{"metal", "rock"}, energy: [2]float64{0.80, 1.0}, valence: [2]float64{0.0, 0.40}, weight: 0.8},
	"energetic": {genres: []string{"electronic", "rock"}, energy: [2]float64{0.75, 1.0}, valence: [2]float64{0.50, 0.90}, weight: 0.8},
}

var genreNormalization = map[string]string{
	"hiphop":  "hip-hop",
	"hip hop": "hip-hop",
	"rnb":     "r-n-b",
	"r&b":     "r-n-b",
	"lofi":    "lo-fi",
	"lo fi":   "lo-fi",
	"electro": "electronic",
	"edm":     "electronic",
}

var stopwords = map[string]bool{
	"with": true, "and": true, "the": true, "a": true, "an": true, "but": true, "for": true,
	"on": true, "in": true, "at": true, "to": true, "of": true, "my": true, "is": true,
}

var defaultGenres = []string{"indie", "pop"}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// Profile is the search intent derived from a playlist request.
type Profile struct {
	Genres   []string         // Seed genres, caller hints first
	Keywords []string         // Mood words without stopwords
	Features spotify.Features // Energy/valence targets
}

// Interpret derives a search profile from the request's mood text and genre hints.
func Interpret(req playlist.Request) Profile {
	tokens := tokenize(req.Mood)

	var genres []string
	for _, g := range req.Genres {
		if n := NormalizeGenre(g); n != "" {
			genres = append(genres, n)
		}
	}

	var energySum, valenceSum, weightSum float64
	var keywords []string
	for _, tok := range tokens {
		if !strings.Contains(tok, " ") {
			keywords = append(keywords, tok)
		}
		entry, ok := moodKeywords[tok]
		if !ok {
			continue
		}
		genres = append(genres, entry.genres...)
		energySum += midpoint(entry.energy) * entry.weight
		valenceSum += midpoint(entry.valence) * entry.weight
		weightSum += entry.weight
	}

	genres = dedupe(genres)
	if len(genres) == 0 {
		genres = append([]string(nil), defaultGenres...)
	}

	features := spotify.Features{Energy: 0.5, Valence: 0.5}
	if weightSum > 0 {
		features.Energy = round3(energySum / weightSum)
		features.Valence = round3(valenceSum / weightSum)
	}

	return Profile{Genres: genres, Keywords: dedupe(keywords), Features: features}
}

// NormalizeGenre lower-cases g and maps common aliases to Spotify seed genres.
func NormalizeGenre(g string) string {
	key := strings.ToLower(strings.TrimSpace(g))
	if n, ok := genreNormalization[key]; ok {
		return n
	}
	return key
}

// tokenize returns lower-case words without stopwords, followed in place by bigrams.
func tokenize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	var tokens []string
	for i, w := range words {
		if stopwords[w] {
			continue
		}
		tokens = append(tokens, w)
		if i+1 < len(words) {
			tokens = append(tokens, w+" "+words[i+1])
		}
	}
	return tokens
}

func midpoint(r [2]float64) float64 {
	return (r[0] + r[1]) / 2
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

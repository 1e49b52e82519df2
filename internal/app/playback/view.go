package playback

import (
	"fmt"
	"math"

	"github.com/osa030/vibechef/internal/domain/track"
)

// Entry is one catalog row of a View.
type Entry struct {
	track.Track
	Current bool
}

// View is a read-only snapshot for presentation.
type View struct {
	TrackID       string
	Title         string
	Artist        string
	Index         int
	State         State
	Pending       bool // A play request is in flight
	Elapsed       float64
	Duration      float64
	DurationKnown bool
	ElapsedText   string
	DurationText  string
	Progress      float64 // elapsed/duration, 0 if duration unknown
	Volume        int
	SourceURL     string
	Catalog       []Entry
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.currentTrackLocked()
	v := View{
		TrackID:       cur.ID,
		Title:         cur.Title,
		Artist:        cur.Artist,
		Index:         c.currentIndex,
		State:         c.state,
		Pending:       c.pending != nil,
		Elapsed:       c.elapsed,
		DurationKnown: c.durationKnown,
		ElapsedText:   FormatTime(c.elapsed),
		Volume:        c.volume,
		SourceURL:     c.activeURL,
		Catalog:       make([]Entry, c.catalog.Len()),
	}

	if c.durationKnown {
		v.Duration = c.duration
		v.DurationText = FormatTime(c.duration)
		v.Progress = math.Min(c.elapsed/c.duration, 1)
	} else {
		v.DurationText = FormatTime(math.NaN())
	}

	for i, t := range c.catalog.Tracks() {
		v.Catalog[i] = Entry{Track: t, Current: i == c.currentIndex}
	}
	return v
}

// FormatTime renders seconds as M:SS. NaN, infinite and negative values render as 0:00.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

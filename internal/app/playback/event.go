package playback

import "github.com/osa030/vibechef/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackChanged    EventType = iota // Current index or loaded track changed
	EventStateChanged                     // Transport state changed
	EventProgress                         // Elapsed time advanced
	EventMetadataReady                    // Duration became known
	EventVolumeChanged                    // Volume changed
	EventCatalogReplaced                  // Catalog was replaced
	EventFallbackStarted                  // Retrying with a sample source
	EventPlaybackFailed                   // Play request failed and will not be retried
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventProgress:
		return "progress"
	case EventMetadataReady:
		return "metadata_ready"
	case EventVolumeChanged:
		return "volume_changed"
	case EventCatalogReplaced:
		return "catalog_replaced"
	case EventFallbackStarted:
		return "fallback_started"
	case EventPlaybackFailed:
		return "playback_failed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type      EventType
	Track     track.Track // Current catalog track
	Index     int         // Current index
	State     State       // Transport state after the event
	SourceURL string      // Location loaded into the source
	Err       error       // Set for EventPlaybackFailed
}

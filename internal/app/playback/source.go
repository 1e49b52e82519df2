package playback

import "context"

// Listener receives notifications from a Source. Every call carries the token
// of the Load it reports on; calls for an older load are ignored.
type Listener interface {
	OnTimeAdvanced(token uint64, seconds float64)
	OnMetadataReady(token uint64, seconds float64)
	OnEnded(token uint64)
}

// Source is the single audio source handle owned by a Controller.
//
// Implementations must deliver Listener calls from their own goroutines,
// never from inside a Source method, and must not hold internal locks
// while calling the Listener.
type Source interface {
	SetListener(l Listener)
	// Load replaces the current stream. The source is idle afterwards and
	// reports on the new stream with token.
	Load(token uint64, url string)
	// Play blocks until audio starts or fails. It must return promptly once ctx is done.
	Play(ctx context.Context) error
	Pause()
	Seek(seconds float64)
	SetVolume(percent int)
}

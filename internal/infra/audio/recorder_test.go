package audio

import (
	"sync"
)

// recorder is a playback.Listener that records notifications.
type recorder struct {
	mu       sync.Mutex
	times    []float64
	metadata []float64
	ended    int
	tokens   []uint64
}

func (r *recorder) OnTimeAdvanced(token uint64, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	r.times = append(r.times, seconds)
}

func (r *recorder) OnMetadataReady(token uint64, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	r.metadata = append(r.metadata, seconds)
}

func (r *recorder) OnEnded(token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, token)
	r.ended++
}

func (r *recorder) endedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

func (r *recorder) lastTime() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.times) == 0 {
		return -1
	}
	return r.times[len(r.times)-1]
}

func (r *recorder) metadataCalls() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.metadata...)
}

// seenTokens returns the distinct tokens in call order.
func (r *recorder) seenTokens() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uint64
	for _, t := range r.tokens {
		if len(out) == 0 || out[len(out)-1] != t {
			out = append(out, t)
		}
	}
	return out
}

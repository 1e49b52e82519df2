package provider

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// newRand returns a generator seeded from crypto/rand, falling back to the clock.
func newRand() *rand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

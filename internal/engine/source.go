package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"
)

// Source is the randomness the dice draw from. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// NewRNG returns a deterministic generator for seed.
func NewRNG(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

// NewSeed draws a fresh seed, falling back to the clock.
func NewSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1)
}

// Sequence replays fixed values modulo n, then repeats from the start.
// Useful for replays and deterministic tests.
type Sequence struct {
	Values []int
	pos    int
}

// Intn implements Source.
func (s *Sequence) Intn(n int) int {
	if len(s.Values) == 0 || n <= 0 {
		return 0
	}
	v := s.Values[s.pos%len(s.Values)]
	s.pos++
	if v < 0 {
		v = -v
	}
	return v % n
}

package service

import (
	"math/rand/v2"
	"time"
)

// Clock returns the current instant. Engines never read the wall clock directly.
type Clock func() time.Time

// SystemClock is the production clock, in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Rand picks an index in [0, n).
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int {
	return rand.IntN(n)
}

// DefaultRand uses the process-wide math/rand/v2 source.
var DefaultRand Rand = globalRand{}

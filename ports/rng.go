package ports

import (
	"math/rand/v2"
)

// RNGPort provides seeded random streams for deterministic simulation
type RNGPort interface {
	// Stream returns the source for one named stream. The same (seed,
	// stream) pair always yields the same sequence.
	Stream(seed uint64, stream uint64) rand.Source
}

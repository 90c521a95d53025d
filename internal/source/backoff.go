package source

import (
	"math/rand"
	"time"
)

// fullJitterBackoff computes a reconnect delay using full-jitter
// exponential backoff (spec §4.1): delay = random(0, min(max, initial*2^attempt)).
// attempt is zero-based (0 = first retry).
func fullJitterBackoff(attempt int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		return 0
	}
	if max <= 0 {
		max = initial
	}
	ceiling := float64(initial) * float64(uint64(1)<<uint(minInt(attempt, 32)))
	if ceiling > float64(max) || ceiling <= 0 {
		ceiling = float64(max)
	}
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

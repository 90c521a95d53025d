package alert

import (
	"math/rand"
	"time"
)

// fullJitterBackoff computes a retry delay using full-jitter exponential
// backoff (spec §4.6): delay = random(0, min(max, initial*2^attempt)).
// attempt is zero-based (0 = first retry). Same algorithm as the source
// package's reconnect backoff, duplicated rather than exported across
// packages since it's a small pure function with no shared state.
func fullJitterBackoff(attempt int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		return 0
	}
	if max <= 0 {
		max = initial
	}
	ceiling := float64(initial) * float64(uint64(1)<<uint(minIntBackoff(attempt, 32)))
	if ceiling > float64(max) || ceiling <= 0 {
		ceiling = float64(max)
	}
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}

func minIntBackoff(a, b int) int {
	if a < b {
		return a
	}
	return b
}

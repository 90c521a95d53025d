package source

import (
	"testing"
	"time"
)

func TestFullJitterBackoffBounded(t *testing.T) {
	initial := 500 * time.Millisecond
	max := 10 * time.Second

	for attempt := 0; attempt < 20; attempt++ {
		for i := 0; i < 50; i++ {
			d := fullJitterBackoff(attempt, initial, max)
			if d < 0 || d > max {
				t.Fatalf("attempt %d: delay %v out of [0, %v]", attempt, d, max)
			}
		}
	}
}

func TestFullJitterBackoffGrowsWithAttempt(t *testing.T) {
	initial := 100 * time.Millisecond
	max := time.Minute

	// Ceiling should strictly increase for the first several attempts,
	// well before it saturates at max.
	var prevCeiling time.Duration
	for attempt := 0; attempt < 5; attempt++ {
		var worst time.Duration
		for i := 0; i < 200; i++ {
			d := fullJitterBackoff(attempt, initial, max)
			if d > worst {
				worst = d
			}
		}
		if attempt > 0 && worst < prevCeiling {
			t.Fatalf("attempt %d: observed max %v should not be less than previous observed max %v", attempt, worst, prevCeiling)
		}
		prevCeiling = worst
	}
}

func TestFullJitterBackoffZeroInitial(t *testing.T) {
	if d := fullJitterBackoff(3, 0, time.Second); d != 0 {
		t.Fatalf("expected 0 delay for zero initial, got %v", d)
	}
}

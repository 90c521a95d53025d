package alert

import (
	"sync"
	"time"

	"sentinel1090/internal/clock"
	"sentinel1090/internal/stats"
)

// ThrottleConfig carries the two limits spec §4.6 names.
type ThrottleConfig struct {
	MinIntervalSec   int
	MaxAlertsPerHour int
}

// DefaultThrottleConfig matches spec.md's stated defaults.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{MinIntervalSec: 300, MaxAlertsPerHour: 10}
}

// Priority mirrors spec §3 Outbound Message.priority.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// history is the per-aircraft throttle state, grounded in shape on
// alert_throttler.py's AlertHistory but reduced to exactly the two limits
// spec.md defines (no escalation, no batching — those are original_source
// features the distillation dropped and spec.md doesn't ask for).
type history struct {
	lastAlert       time.Time
	hourWindowStart time.Time
	hourCount       int
}

// Throttler enforces the per-aircraft cooldown and per-hour cap (spec
// §4.6). Safe for concurrent use.
type Throttler struct {
	cfg   ThrottleConfig
	clock clock.Clock
	stats *stats.Sink

	mu      sync.Mutex
	history map[uint32]*history
}

func NewThrottler(cfg ThrottleConfig, clk clock.Clock, sink *stats.Sink) *Throttler {
	return &Throttler{cfg: cfg, clock: clk, stats: sink, history: make(map[uint32]*history)}
}

// Allow reports whether an alert for icao at the given priority should be
// sent now, and records the send if so. A `critical` priority bypasses the
// cooldown but never the per-hour cap (spec §4.6).
func (t *Throttler) Allow(icao uint32, priority Priority) bool {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.history[icao]
	if !ok {
		h = &history{}
		t.history[icao] = h
	}

	if now.Sub(h.hourWindowStart) >= time.Hour {
		h.hourWindowStart = now
		h.hourCount = 0
	}
	if t.cfg.MaxAlertsPerHour > 0 && h.hourCount >= t.cfg.MaxAlertsPerHour {
		if t.stats != nil {
			t.stats.AlertsSuppressed.Add(1)
		}
		return false
	}

	if priority != PriorityCritical && !h.lastAlert.IsZero() {
		minInterval := time.Duration(t.cfg.MinIntervalSec) * time.Second
		if now.Sub(h.lastAlert) < minInterval {
			if t.stats != nil {
				t.stats.AlertsSuppressed.Add(1)
			}
			return false
		}
	}

	h.lastAlert = now
	h.hourCount++
	if t.stats != nil {
		t.stats.AlertsSent.Add(1)
	}
	return true
}

// Cleanup drops per-aircraft history whose last alert is older than maxAge, keeping
// the map bounded the way the tracker bounds its own aircraft map.
func (t *Throttler) Cleanup(maxAge time.Duration) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for icao, h := range t.history {
		if now.Sub(h.lastAlert) > maxAge {
			delete(t.history, icao)
		}
	}
}

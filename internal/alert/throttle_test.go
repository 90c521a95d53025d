package alert

import (
	"testing"
	"time"

	"sentinel1090/internal/clock"
	"sentinel1090/internal/stats"
)

func newTestThrottler(cfg ThrottleConfig) (*Throttler, *clock.Manual) {
	clk := clock.NewManual(time.Unix(1700000000, 0))
	return NewThrottler(cfg, clk, stats.New()), clk
}

func TestThrottlerAllowsFirstAlert(t *testing.T) {
	th, _ := newTestThrottler(DefaultThrottleConfig())
	if !th.Allow(0x4840D6, PriorityNormal) {
		t.Fatalf("expected first alert to be allowed")
	}
}

func TestThrottlerSuppressesWithinCooldown(t *testing.T) {
	th, clk := newTestThrottler(DefaultThrottleConfig())
	if !th.Allow(0x4840D6, PriorityNormal) {
		t.Fatalf("expected first alert allowed")
	}
	clk.Advance(100 * time.Second)
	if th.Allow(0x4840D6, PriorityNormal) {
		t.Fatalf("expected second alert within cooldown to be suppressed")
	}
}

func TestThrottlerAllowsAfterCooldown(t *testing.T) {
	th, clk := newTestThrottler(DefaultThrottleConfig())
	th.Allow(0x4840D6, PriorityNormal)
	clk.Advance(301 * time.Second)
	if !th.Allow(0x4840D6, PriorityNormal) {
		t.Fatalf("expected alert after cooldown to be allowed")
	}
}

func TestThrottlerCriticalBypassesCooldown(t *testing.T) {
	th, clk := newTestThrottler(DefaultThrottleConfig())
	th.Allow(0x4840D6, PriorityNormal)
	clk.Advance(1 * time.Second)
	if !th.Allow(0x4840D6, PriorityCritical) {
		t.Fatalf("expected critical alert to bypass cooldown")
	}
}

func TestThrottlerCriticalStillHitsHourlyCap(t *testing.T) {
	cfg := ThrottleConfig{MinIntervalSec: 300, MaxAlertsPerHour: 2}
	th, clk := newTestThrottler(cfg)
	if !th.Allow(0x4840D6, PriorityCritical) {
		t.Fatalf("alert 1 should be allowed")
	}
	clk.Advance(time.Second)
	if !th.Allow(0x4840D6, PriorityCritical) {
		t.Fatalf("alert 2 should be allowed")
	}
	clk.Advance(time.Second)
	if th.Allow(0x4840D6, PriorityCritical) {
		t.Fatalf("alert 3 should be suppressed by the hourly cap even though critical")
	}
}

func TestThrottlerHourlyCapResetsAfterWindow(t *testing.T) {
	cfg := ThrottleConfig{MinIntervalSec: 0, MaxAlertsPerHour: 1}
	th, clk := newTestThrottler(cfg)
	if !th.Allow(0x4840D6, PriorityNormal) {
		t.Fatalf("alert 1 should be allowed")
	}
	clk.Advance(time.Hour + time.Second)
	if !th.Allow(0x4840D6, PriorityNormal) {
		t.Fatalf("expected cap to reset after the hour window rolls over")
	}
}

func TestThrottlerPerAircraftIndependence(t *testing.T) {
	th, _ := newTestThrottler(DefaultThrottleConfig())
	if !th.Allow(0x111111, PriorityNormal) {
		t.Fatalf("aircraft A should be allowed")
	}
	if !th.Allow(0x222222, PriorityNormal) {
		t.Fatalf("aircraft B should be allowed independently of A's cooldown")
	}
}

func TestThrottlerCleanupDropsStaleHistory(t *testing.T) {
	th, clk := newTestThrottler(DefaultThrottleConfig())
	th.Allow(0x4840D6, PriorityNormal)
	clk.Advance(2 * time.Hour)
	th.Cleanup(time.Hour)

	th.mu.Lock()
	_, ok := th.history[0x4840D6]
	th.mu.Unlock()
	if ok {
		t.Fatalf("expected stale history to be cleaned up")
	}
}

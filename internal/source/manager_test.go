package source

import (
	"testing"
	"time"

	"sentinel1090/internal/clock"
	"sentinel1090/internal/stats"
)

func newTestManager() *Manager {
	return New(clock.NewManual(time.Unix(0, 0)), stats.New())
}

func TestAddSourceRejectsMissingName(t *testing.T) {
	m := newTestManager()
	err := m.AddSource(Config{Type: TypeBeastTCP, Address: "127.0.0.1:30005"})
	if err == nil {
		t.Fatalf("expected error for missing name")
	}
}

func TestAddSourceRejectsMissingAddress(t *testing.T) {
	m := newTestManager()
	err := m.AddSource(Config{Name: "feed1", Type: TypeBeastTCP})
	if err == nil {
		t.Fatalf("expected error for missing address")
	}
}

func TestAddSourceRejectsUnknownType(t *testing.T) {
	m := newTestManager()
	err := m.AddSource(Config{Name: "feed1", Type: "not_a_type", Address: "x"})
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if _, ok := err.(*SourceFatal); !ok {
		t.Fatalf("expected *SourceFatal, got %T", err)
	}
}

func TestAddSourceAccepted(t *testing.T) {
	m := newTestManager()
	if err := m.AddSource(Config{Name: "feed1", Type: TypeBeastTCP, Address: "127.0.0.1:30005"}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if _, ok := m.SourceState("feed1"); !ok {
		t.Fatalf("expected registered source to report a state")
	}
}

func TestWorkerEmitDropsOldestWhenFull(t *testing.T) {
	w := newWorker(Config{Name: "a"}, clock.NewManual(time.Unix(0, 0)), stats.New())
	w.queue = make(chan RawFrame, 2)
	w.emit(RawFrame{SourceID: "a", Bytes: []byte{1}})
	w.emit(RawFrame{SourceID: "a", Bytes: []byte{2}})
	w.emit(RawFrame{SourceID: "a", Bytes: []byte{3}}) // should drop {1}

	first := <-w.queue
	second := <-w.queue
	if first.Bytes[0] != 2 || second.Bytes[0] != 3 {
		t.Fatalf("expected oldest frame dropped, got %v then %v", first.Bytes, second.Bytes)
	}

	snap := w.stats.Snapshot()
	if snap.DroppedFramesBySource["a"] != 1 {
		t.Fatalf("dropped count = %d, want 1", snap.DroppedFramesBySource["a"])
	}
}

// TestPerSourceDropIsolation guards against a congested source evicting a
// healthy source's buffered frames: each source drops only its own backlog
// (spec §4.1, §5).
func TestPerSourceDropIsolation(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	sink := stats.New()

	congested := newWorker(Config{Name: "a"}, clk, sink)
	congested.queue = make(chan RawFrame, 1)
	healthy := newWorker(Config{Name: "b"}, clk, sink)
	healthy.queue = make(chan RawFrame, 1)

	healthy.emit(RawFrame{SourceID: "b", Bytes: []byte{9}})
	congested.emit(RawFrame{SourceID: "a", Bytes: []byte{1}})
	congested.emit(RawFrame{SourceID: "a", Bytes: []byte{2}}) // drops a's {1}, must not touch b

	select {
	case f := <-healthy.queue:
		if f.Bytes[0] != 9 {
			t.Fatalf("healthy source's frame changed, got %v", f.Bytes)
		}
	default:
		t.Fatalf("expected healthy source's frame to still be queued")
	}
	got := <-congested.queue
	if got.Bytes[0] != 2 {
		t.Fatalf("expected congested source's newest frame, got %v", got.Bytes)
	}

	snap := sink.Snapshot()
	if snap.DroppedFramesBySource["a"] != 1 {
		t.Fatalf("dropped count for a = %d, want 1", snap.DroppedFramesBySource["a"])
	}
	if snap.DroppedFramesBySource["b"] != 0 {
		t.Fatalf("dropped count for b = %d, want 0", snap.DroppedFramesBySource["b"])
	}
}

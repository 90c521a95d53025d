package stats

import "testing"

func TestSinkIncrementAndSnapshot(t *testing.T) {
	s := New()
	s.CRCPass.Add(3)
	s.CRCFail.Add(1)
	s.IncDroppedFrames("beast-1")
	s.IncDroppedFrames("beast-1")
	s.IncMessagesByDF(17)
	s.IncRangeError("altitude_baro")
	s.IncRangeError("altitude_baro")
	s.IncRangeError("ground_speed")
	s.SetSourceState("beast-1", "CONNECTED")

	snap := s.Snapshot()
	if snap.CRCPass != 3 || snap.CRCFail != 1 {
		t.Fatalf("unexpected CRC counters: %+v", snap)
	}
	if snap.DroppedFramesBySource["beast-1"] != 2 {
		t.Fatalf("expected 2 dropped frames for beast-1, got %d", snap.DroppedFramesBySource["beast-1"])
	}
	if snap.MessagesByDF[17] != 1 {
		t.Fatalf("expected 1 message for DF17, got %d", snap.MessagesByDF[17])
	}
	if snap.RangeErrorsByField["altitude_baro"] != 2 {
		t.Fatalf("expected 2 altitude_baro range errors, got %d", snap.RangeErrorsByField["altitude_baro"])
	}
	if snap.RangeErrorsByField["ground_speed"] != 1 {
		t.Fatalf("expected 1 ground_speed range error, got %d", snap.RangeErrorsByField["ground_speed"])
	}
	if snap.SourceStates["beast-1"] != "CONNECTED" {
		t.Fatalf("expected beast-1 state CONNECTED, got %q", snap.SourceStates["beast-1"])
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := New()
	s.IncDroppedFrames("a")
	snap := s.Snapshot()
	s.IncDroppedFrames("a")
	if snap.DroppedFramesBySource["a"] != 1 {
		t.Fatalf("snapshot should not observe later increments, got %d", snap.DroppedFramesBySource["a"])
	}
}

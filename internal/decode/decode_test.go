package decode

import (
	"encoding/hex"
	"testing"
	"time"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return b
}

func TestDecodeIdentification(t *testing.T) {
	frame := mustHex(t, "8D4840D6202CC371C32CE0576098")
	msg := Decode(frame, 17, 0, "test", time.Unix(0, 0))

	if msg.ICAO != 0x4840D6 {
		t.Fatalf("ICAO = %06X, want 4840D6", msg.ICAO)
	}
	if !msg.HasCallsign {
		t.Fatalf("expected callsign to be present")
	}
	if msg.Callsign != "KLM1023" {
		t.Fatalf("callsign = %q, want KLM1023", msg.Callsign)
	}
	if msg.HasCPR {
		t.Fatalf("identification message should not carry a position")
	}
	if msg.HasGroundSpeed {
		t.Fatalf("identification message should not carry velocity")
	}
}

func TestDecodeAirbornePositionGlobalCPR(t *testing.T) {
	even := mustHex(t, "8D40621D58C382D690C8AC2863A7")
	odd := mustHex(t, "8D40621D58C386435CC412692AD6")

	evenMsg := Decode(even, 17, 0, "test", time.Unix(0, 0))
	oddMsg := Decode(odd, 17, 0, "test", time.Unix(1, 0))

	if evenMsg.ICAO != 0x40621D || oddMsg.ICAO != 0x40621D {
		t.Fatalf("ICAO mismatch: even=%06X odd=%06X", evenMsg.ICAO, oddMsg.ICAO)
	}
	if !evenMsg.HasCPR || evenMsg.CPR.Odd {
		t.Fatalf("expected first frame to be an even CPR frame")
	}
	if !oddMsg.HasCPR || !oddMsg.CPR.Odd {
		t.Fatalf("expected second frame to be an odd CPR frame")
	}
	if !evenMsg.HasAltitude || evenMsg.AltitudeFt != 38000 {
		t.Fatalf("altitude = %d, want 38000", evenMsg.AltitudeFt)
	}

	result := DecodeGlobalAirborne(evenMsg.CPR.RawLat, evenMsg.CPR.RawLon, oddMsg.CPR.RawLat, oddMsg.CPR.RawLon, true)
	if !result.OK {
		t.Fatalf("expected global CPR decode to succeed")
	}
	if diff := abs(result.Lat - 52.25720); diff > 0.01 {
		t.Fatalf("lat = %f, want ~52.25720", result.Lat)
	}
	if diff := abs(result.Lon - 3.91937); diff > 0.01 {
		t.Fatalf("lon = %f, want ~3.91937", result.Lon)
	}
}

func TestDecodeVelocityScenario(t *testing.T) {
	frame := mustHex(t, "8D485020994409940838175B284F")
	msg := Decode(frame, 17, 0, "test", time.Unix(0, 0))

	if msg.ICAO != 0x485020 {
		t.Fatalf("ICAO = %06X, want 485020", msg.ICAO)
	}
	if !msg.HasGroundSpeed {
		t.Fatalf("expected ground speed to be present")
	}
	if diff := abs(msg.GroundSpeedKt - 159); diff > 1 {
		t.Fatalf("ground speed = %f, want ~159", msg.GroundSpeedKt)
	}
	if !msg.HasVerticalRate {
		t.Fatalf("expected vertical rate to be present")
	}
	if msg.VerticalRateFpm >= 0 {
		t.Fatalf("expected a descending (negative) vertical rate, got %d", msg.VerticalRateFpm)
	}
}

func TestDecodeCallsignRoundTrip(t *testing.T) {
	for _, cs := range []string{"KLM1023", "UAL123", "N12345"} {
		me := make([]byte, 7)
		copy(me[1:], EncodeCallsign(cs))
		got := DecodeCallsign(me)
		if got != cs {
			t.Fatalf("round trip: encode/decode(%q) = %q", cs, got)
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

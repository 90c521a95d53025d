package source

import (
	"testing"
	"time"
)

func strPtr(s string) *string    { return &s }
func f64Ptr(f float64) *float64  { return &f }
func intPtr(i int) *int          { return &i }

func TestJSONAircraftToMessage(t *testing.T) {
	ac := JSONAircraft{
		Hex:    "4840d6",
		Flight: strPtr("KLM1023 "),
		AltBaro: intPtr(38000),
		GS:     f64Ptr(159.2),
		Track:  f64Ptr(182.8),
		Lat:    f64Ptr(52.2572),
		Lon:    f64Ptr(3.91937),
	}

	msg, ok := jsonAircraftToMessage(ac, "dump1090", time.Unix(100, 0))
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if msg.ICAO != 0x4840d6 {
		t.Fatalf("ICAO = %x, want 4840d6", msg.ICAO)
	}
	if msg.Callsign != "KLM1023" {
		t.Fatalf("callsign = %q, want trimmed KLM1023", msg.Callsign)
	}
	if !msg.HasResolvedPosition || msg.ResolvedLat != 52.2572 {
		t.Fatalf("expected resolved position carried through")
	}
	if !msg.HasAltitude || msg.AltitudeFt != 38000 {
		t.Fatalf("expected altitude carried through")
	}
	if msg.SourceID != "dump1090" {
		t.Fatalf("source id = %q", msg.SourceID)
	}
}

func TestJSONAircraftToMessageInvalidHex(t *testing.T) {
	_, ok := jsonAircraftToMessage(JSONAircraft{Hex: "not-hex"}, "test", time.Now())
	if ok {
		t.Fatalf("expected ok=false for invalid hex ICAO")
	}
}

func TestJSONAircraftToMessageNoPosition(t *testing.T) {
	msg, ok := jsonAircraftToMessage(JSONAircraft{Hex: "abc123"}, "test", time.Unix(0, 0))
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if msg.HasResolvedPosition {
		t.Fatalf("expected no resolved position when lat/lon absent")
	}
}

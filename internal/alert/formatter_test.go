package alert

import (
	"strings"
	"testing"

	"sentinel1090/internal/aircraft"
	"sentinel1090/internal/watchlist"
)

func TestFormatPositionDecimal(t *testing.T) {
	got := FormatPosition(37.123456, -122.654321, PositionDecimal)
	if got != "37.123456,-122.654321" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatPositionCompact(t *testing.T) {
	got := FormatPosition(37.123456, -122.654321, PositionCompact)
	if got != "37.123,-122.654" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatPositionDMS(t *testing.T) {
	got := FormatPosition(37.5, -122.5, PositionDMS)
	if !strings.Contains(got, "N") || !strings.Contains(got, "W") {
		t.Fatalf("expected N/S and E/W hemisphere letters, got %q", got)
	}
}

func TestFormatPositionDMSSouthEast(t *testing.T) {
	got := FormatPosition(-33.87, 151.21, PositionDMS)
	if !strings.Contains(got, "S") || !strings.Contains(got, "E") {
		t.Fatalf("expected S and E hemisphere letters, got %q", got)
	}
}

func TestFormatPositionMaidenheadLength(t *testing.T) {
	got := FormatPosition(51.5, -0.1, PositionMaidenhead)
	if len(got) != 6 {
		t.Fatalf("expected a 6-character grid locator, got %q (len %d)", got, len(got))
	}
}

func TestFormatPositionUTMHasZone(t *testing.T) {
	got := FormatPosition(51.5, -0.1, PositionUTM)
	if !strings.HasPrefix(got, "30") {
		t.Fatalf("expected UTM zone 30 for lon -0.1, got %q", got)
	}
}

func TestRenderSubstitutesKnownFields(t *testing.T) {
	snap := aircraft.Snapshot{
		ICAOHex:        "4840D6",
		Callsign:       "BAW123  ",
		Squawk:         "7700",
		HasAltBaro:     true,
		AltBaroFt:      35000,
		HasGroundSpeed: true,
		GroundSpeedKt:  450,
		HasPosition:    true,
		Lat:            51.5,
		Lon:            -0.1,
	}
	evt := watchlist.AlertEvent{MatchKind: watchlist.ICAOExact, MatchLabel: "test-target"}

	out := Render(DefaultTemplate(), snap, evt)

	if !strings.Contains(out, "4840D6") {
		t.Fatalf("expected icao in output, got %q", out)
	}
	if !strings.Contains(out, "BAW123") {
		t.Fatalf("expected trimmed callsign in output, got %q", out)
	}
	if !strings.Contains(out, "35000ft") {
		t.Fatalf("expected altitude in output, got %q", out)
	}
	if !strings.Contains(out, "450kt") {
		t.Fatalf("expected ground speed in output, got %q", out)
	}
	if !strings.Contains(out, "7700") {
		t.Fatalf("expected squawk in output, got %q", out)
	}
	if strings.Contains(out, "{") {
		t.Fatalf("expected no unresolved placeholders, got %q", out)
	}
}

func TestRenderLeavesMissingFieldsAsPlaceholder(t *testing.T) {
	snap := aircraft.Snapshot{ICAOHex: "ABCDEF"}
	evt := watchlist.AlertEvent{MatchKind: watchlist.CallsignExact, MatchLabel: "x"}

	out := Render(Template{Text: "{icao} alt={alt_baro_ft}"}, snap, evt)

	if !strings.Contains(out, "ABCDEF") {
		t.Fatalf("expected icao substituted, got %q", out)
	}
	if !strings.Contains(out, "{alt_baro_ft}") {
		t.Fatalf("expected unknown/absent field placeholder left verbatim, got %q", out)
	}
}

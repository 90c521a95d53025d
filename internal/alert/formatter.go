// Package alert implements the Alert Dispatcher (spec §4.6): formats
// watchlist matches into outbound messages, throttles them per aircraft,
// optionally encrypts them, and delivers them to serial and MQTT
// interfaces with retry and failover.
package alert

import (
	"fmt"
	"math"
	"strings"

	"sentinel1090/internal/aircraft"
	"sentinel1090/internal/watchlist"
)

// PositionFormat selects how lat/lon render inside a template (spec §4.6:
// "position in one of {decimal, compact, DMS, Maidenhead, UTM}").
type PositionFormat string

const (
	PositionDecimal    PositionFormat = "decimal"
	PositionCompact    PositionFormat = "compact"
	PositionDMS        PositionFormat = "dms"
	PositionMaidenhead PositionFormat = "maidenhead"
	PositionUTM        PositionFormat = "utm"
)

// FormatPosition renders lat/lon per format, ported formula-for-formula
// from position_formatter.py's Position.format / _format_maidenhead /
// _to_utm, since spec.md names exactly these five formats.
func FormatPosition(lat, lon float64, format PositionFormat) string {
	switch format {
	case PositionCompact:
		return fmt.Sprintf("%.3f,%.3f", lat, lon)
	case PositionDMS:
		return formatDMS(lat, lon)
	case PositionMaidenhead:
		return formatMaidenhead(lat, lon)
	case PositionUTM:
		return formatUTM(lat, lon)
	case PositionDecimal:
		fallthrough
	default:
		return fmt.Sprintf("%.6f,%.6f", lat, lon)
	}
}

func formatDMS(lat, lon float64) string {
	latDeg, latMin, latSec := toDMS(lat)
	lonDeg, lonMin, lonSec := toDMS(lon)
	latDir := "N"
	if lat < 0 {
		latDir = "S"
	}
	lonDir := "E"
	if lon < 0 {
		lonDir = "W"
	}
	return fmt.Sprintf("%d°%d'%.1f\"%s, %d°%d'%.1f\"%s", latDeg, latMin, latSec, latDir, lonDeg, lonMin, lonSec, lonDir)
}

func toDMS(v float64) (deg, min int, sec float64) {
	abs := math.Abs(v)
	deg = int(abs)
	minFloat := (abs - float64(deg)) * 60
	min = int(minFloat)
	sec = (minFloat - float64(min)) * 60
	return
}

// formatMaidenhead renders a 6-character Maidenhead grid locator.
func formatMaidenhead(lat, lon float64) string {
	adjLon := lon + 180
	adjLat := lat + 90

	fieldLon := byte('A' + int(adjLon/20))
	fieldLat := byte('A' + int(adjLat/10))

	squareLon := int(math.Mod(adjLon, 20) / 2)
	squareLat := int(math.Mod(adjLat, 10) / 1)

	subLon := byte('a' + int(math.Mod(math.Mod(adjLon, 20), 2)*12))
	subLat := byte('a' + int(math.Mod(math.Mod(adjLat, 10), 1)*24))

	return fmt.Sprintf("%c%c%d%d%c%c", fieldLon, fieldLat, squareLon, squareLat, subLon, subLat)
}

// formatUTM is the same simplified, non-geodesic-accurate approximation
// the original carries (its own comment calls it "simplified... use a
// proper UTM library for accuracy"); kept as-is since spec.md's UTM
// format only needs to be recognizable, not survey-grade.
func formatUTM(lat, lon float64) string {
	zone := int((lon+180)/6) + 1
	var zoneLetter byte
	if lat >= 0 {
		zoneLetter = byte('N' + minInt(int(lat/8), 11))
	} else {
		zoneLetter = byte('M' - minInt(int(math.Abs(lat)/8), 12))
	}

	centralMeridian := float64((zone-1)*6-180) + 3
	easting := 500000 + (lon-centralMeridian)*111320*math.Cos(lat*math.Pi/180)
	northing := lat * 110540
	if northing < 0 {
		northing += 10000000
	}

	return fmt.Sprintf("%d%c %.0f %.0f", zone, zoneLetter, easting, northing)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Template renders an AlertEvent + Aircraft snapshot into outbound text
// using a small set of `{field}` placeholders, grounded on
// meshtastic_enhanced/message_formatter.py's MessageTemplate shape.
type Template struct {
	Text           string
	PositionFormat PositionFormat
}

// DefaultTemplate matches spec.md's own worked example fields.
func DefaultTemplate() Template {
	return Template{
		Text:           "{icao} {callsign} alt={alt_baro_ft}ft gs={ground_speed_kt}kt pos={position} sq={squawk}",
		PositionFormat: PositionDecimal,
	}
}

// Render substitutes every recognized placeholder in t.Text with a field
// pulled from snap/evt; unrecognized placeholders are left verbatim.
func Render(t Template, snap aircraft.Snapshot, evt watchlist.AlertEvent) string {
	fields := map[string]string{
		"icao":        snap.ICAOHex,
		"callsign":    strings.TrimSpace(snap.Callsign),
		"squawk":      snap.Squawk,
		"match_kind":  fmt.Sprintf("%d", evt.MatchKind),
		"match_label": evt.MatchLabel,
	}
	if snap.HasAltBaro {
		fields["alt_baro_ft"] = fmt.Sprintf("%d", snap.AltBaroFt)
	}
	if snap.HasGroundSpeed {
		fields["ground_speed_kt"] = fmt.Sprintf("%.0f", snap.GroundSpeedKt)
	}
	if snap.HasTrack {
		fields["track_deg"] = fmt.Sprintf("%.0f", snap.TrackDeg)
	}
	if snap.HasPosition {
		fields["position"] = FormatPosition(snap.Lat, snap.Lon, t.PositionFormat)
	}

	out := t.Text
	for k, v := range fields {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

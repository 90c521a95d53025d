package modes

import "fmt"

// Downlink Format constants named in spec §3/§4.1.
const (
	DF0  = 0  // short air-air surveillance
	DF4  = 4  // surveillance, altitude reply
	DF5  = 5  // surveillance, identity reply
	DF11 = 11 // all-call reply
	DF16 = 16 // long air-air surveillance
	DF17 = 17 // extended squitter, ADS-B
	DF18 = 18 // extended squitter, TIS-B / ADS-R
	DF20 = 20 // Comm-B altitude reply
	DF21 = 21 // Comm-B identity reply
)

// ExtractDF reads the 5-bit Downlink Format from the first byte of a raw
// Mode-S frame.
func ExtractDF(msg []byte) int {
	if len(msg) == 0 {
		return -1
	}
	return int(msg[0] >> 3)
}

// ValidLength reports whether n is one of the two legal Mode-S frame
// lengths: 7 bytes (56 bits, short frames DF 0/4/5/11) or 14 bytes (112
// bits, long frames DF 16/17/18/20/21).
func ValidLength(n int) bool {
	return n == 7 || n == 14
}

// Validate runs the Frame Validator's checks (spec §4.2) against a raw
// Mode-S frame: length, DF-appropriate length, and CRC/syndrome. It returns
// the parsed DF and, for extended squitters, whether CRC passed; for
// surveillance replies CRC cannot be checked directly (the syndrome instead
// carries a candidate ICAO) so crcOK is always true for those DFs and the
// caller must consult the Tracker's known-ICAO set.
func Validate(msg []byte) (df int, crcOK bool, err error) {
	if !ValidLength(len(msg)) {
		return -1, false, fmt.Errorf("modes: invalid frame length %d", len(msg))
	}
	df = ExtractDF(msg)

	switch df {
	case DF0, DF4, DF5, DF11:
		if len(msg) != 7 {
			return df, false, fmt.Errorf("modes: DF%d requires a 7-byte frame, got %d", df, len(msg))
		}
		return df, true, nil
	case DF16, DF17, DF18, DF20, DF21:
		if len(msg) != 14 {
			return df, false, fmt.Errorf("modes: DF%d requires a 14-byte frame, got %d", df, len(msg))
		}
		if df == DF17 || df == DF18 {
			return df, Syndrome(msg) == 0, nil
		}
		return df, true, nil
	default:
		return df, false, fmt.Errorf("modes: unsupported DF%d", df)
	}
}

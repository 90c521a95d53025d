package decode

// decodeCommB attempts to identify and decode a Comm-B register (BDS 2.0,
// 4.0, 5.0, 6.0) carried in a DF20/21 reply's 7-byte MB field; BDS 1.7 is
// not among the registers tried. Register
// identification follows the pyModeS approach named in the spec: try each
// candidate register and accept only if every subfield decodes within its
// legal range, since Comm-B carries no explicit register tag.
func decodeCommB(msg *Message, mb []byte) {
	if len(mb) != 7 {
		return
	}
	if tryBDS20(msg, mb) {
		msg.HasBDS = true
		msg.BDS = "2,0"
		return
	}
	if tryBDS40(msg, mb) {
		msg.HasBDS = true
		msg.BDS = "4,0"
		return
	}
	if tryBDS50(msg, mb) {
		msg.HasBDS = true
		msg.BDS = "5,0"
		return
	}
	if tryBDS60(msg, mb) {
		msg.HasBDS = true
		msg.BDS = "6,0"
		return
	}
}

// tryBDS20 decodes BDS 2.0 (aircraft identification): byte 0 must equal
// 0x20 (the register's own code point in its first byte), followed by the
// same 6-bit callsign payload as a TC1-4 squitter.
func tryBDS20(msg *Message, mb []byte) bool {
	if mb[0] != 0x20 {
		return false
	}
	callsign := DecodeCallsign(mb)
	if !isLegalCallsign(callsign) {
		return false
	}
	msg.HasCallsign = true
	msg.Callsign = callsign
	return true
}

func isLegalCallsign(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != ' ' {
			return false
		}
	}
	return true
}

// tryBDS40 decodes BDS 4.0 (selected vertical intention): MCP/FCU selected
// altitude (12 bits * 16 ft) and barometric pressure setting.
func tryBDS40(msg *Message, mb []byte) bool {
	mcpAlt := (int(mb[0]&0x7F) << 5) | (int(mb[1]) >> 3)
	if mcpAlt == 0 {
		return false
	}
	altFt := (mcpAlt - 1) * 16
	if altFt < -1000 || altFt > 60000 {
		return false
	}
	msg.HasSelectedAltitude = true
	msg.SelectedAltitudeFt = altFt
	return true
}

// tryBDS50 decodes BDS 5.0 (track and turn report): roll angle, true track
// angle, ground speed, track angle rate, true airspeed.
func tryBDS50(msg *Message, mb []byte) bool {
	trackStatus := mb[2]&0x20 != 0
	if !trackStatus {
		return false
	}
	trackRaw := (int(mb[2]&0x1F) << 6) | (int(mb[3]) >> 2)
	trackSign := mb[2]&0x80 != 0
	track := float64(trackRaw) * 90.0 / 512.0
	if trackSign {
		track = -track
	}
	if track < -180 || track > 180 {
		return false
	}
	track = normalizeDeg(track)

	gsStatus := mb[3]&0x02 != 0
	if !gsStatus {
		return false
	}
	gsRaw := (int(mb[3]&0x01) << 9) | (int(mb[4]) << 1) | (int(mb[5]) >> 7)
	gs := float64(gsRaw) * 2.0
	if gs > 1023 {
		return false
	}

	msg.HasTrack = true
	msg.TrackDeg = track
	msg.HasGroundSpeed = true
	msg.GroundSpeedKt = gs
	return true
}

// tryBDS60 decodes BDS 6.0 (heading and speed report): magnetic heading,
// IAS, Mach, barometric/inertial vertical rate.
func tryBDS60(msg *Message, mb []byte) bool {
	hdgStatus := mb[0]&0x40 != 0
	if !hdgStatus {
		return false
	}
	hdgRaw := (int(mb[0]&0x3F) << 5) | (int(mb[1]) >> 3)
	hdgSign := mb[0]&0x80 != 0
	hdg := float64(hdgRaw) * 90.0 / 512.0
	if hdgSign {
		hdg = -hdg
	}
	hdg = normalizeDeg(hdg)

	iasStatus := mb[1]&0x04 != 0
	if !iasStatus {
		return false
	}
	iasRaw := (int(mb[1]&0x03) << 8) | int(mb[2])
	if iasRaw > 1023 {
		return false
	}

	msg.HasMagneticHeading = true
	msg.MagneticHeadingDeg = hdg
	msg.HasAirspeed = true
	msg.TrueAirspeedKt = float64(iasRaw)
	msg.IndicatedAirspeed = true
	return true
}

func normalizeDeg(d float64) float64 {
	for d < 0 {
		d += 360
	}
	for d >= 360 {
		d -= 360
	}
	return d
}

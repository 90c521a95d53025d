package decode

import "math"

// decodeVelocity fills in the velocity-related fields of msg from a TC19 ME
// payload (me[0] is the type-code byte, me[1:7] the remaining 6 bytes).
// Adapted from other_examples/OJPARKINSON-goviz1090__decode.go's
// DecodeVelocity, extended to separate TAS/IAS per spec §4.3 and to expose
// the baro/gnss altitude-difference subfield.
func decodeVelocity(msg *Message, me []byte) {
	if len(me) < 7 {
		return
	}
	subtype := me[0] & 0x07
	if subtype < 1 || subtype > 4 {
		return
	}
	msg.TC = 19

	vertRateSign := me[4]&0x08 != 0
	vertRateRaw := (int(me[4]&0x07) << 6) | (int(me[5]) >> 2)
	if vertRateRaw != 0 {
		vertRateRaw--
		if vertRateSign {
			vertRateRaw = -vertRateRaw
		}
		msg.HasVerticalRate = true
		msg.VerticalRateFpm = vertRateRaw * 64
		if me[4]&0x10 != 0 {
			msg.VerticalRateSrc = RateSourceGNSS
		} else {
			msg.VerticalRateSrc = RateSourceBaro
		}
	}

	altDiffSign := me[6]&0x80 != 0
	altDiffRaw := int(me[6] & 0x7F)
	if altDiffRaw != 0 {
		altDiffRaw--
		if altDiffSign {
			altDiffRaw = -altDiffRaw
		}
		msg.HasAltDiff = true
		msg.AltDiffFt = altDiffRaw * 25
	}

	switch subtype {
	case 1, 2:
		ewSign := me[1]&0x04 != 0
		ewRaw := (int(me[1]&0x03) << 8) | int(me[2])
		ewVel := ewRaw - 1
		if ewSign {
			ewVel = -ewVel
		}

		nsSign := me[3]&0x80 != 0
		nsRaw := (int(me[3]&0x7F) << 3) | (int(me[4]) >> 5)
		nsVel := nsRaw - 1
		if nsSign {
			nsVel = -nsVel
		}

		if subtype == 2 {
			ewVel *= 4
			nsVel *= 4
		}

		speed := math.Sqrt(float64(ewVel*ewVel + nsVel*nsVel))
		msg.HasGroundSpeed = true
		msg.GroundSpeedKt = speed
		if speed > 0 {
			heading := math.Atan2(float64(ewVel), float64(nsVel)) * 180.0 / math.Pi
			if heading < 0 {
				heading += 360
			}
			msg.HasTrack = true
			msg.TrackDeg = heading
		}

	case 3, 4:
		airspeedRaw := (int(me[3]&0x7F) << 3) | (int(me[4]) >> 5)
		if airspeedRaw != 0 {
			airspeedRaw--
			if subtype == 4 {
				airspeedRaw *= 4
			}
			msg.HasAirspeed = true
			msg.TrueAirspeedKt = float64(airspeedRaw)
			msg.IndicatedAirspeed = me[3]&0x80 == 0
		}

		if me[1]&0x04 != 0 {
			hdgRaw := (int(me[1]&0x03) << 8) | int(me[2])
			msg.HasMagneticHeading = true
			msg.MagneticHeadingDeg = float64(hdgRaw) * 360.0 / 1024.0
		}
	}
}

package decode

import (
	"time"

	"sentinel1090/internal/modes"
)

// Decode demultiplexes a validated Mode-S frame by downlink format and
// produces a Message. It is total: every branch produces a (possibly
// mostly-empty) Message rather than an error, per spec §9's "the Decoder is
// total and pure" redesign note. icaoCandidate is the candidate ICAO
// recovered by the Frame Validator for surveillance replies (DF 0/4/5/16/
// 20/21); for DF11/17/18 it is read directly out of the frame.
func Decode(frame []byte, df int, icaoCandidate uint32, sourceID string, at time.Time) Message {
	msg := Message{DF: df, ICAO: icaoCandidate, Timestamp: at, SourceID: sourceID}

	switch df {
	case modes.DF4:
		decodeAltitudeReply(&msg, frame)
	case modes.DF5:
		decodeIdentityReply(&msg, frame)
	case modes.DF11:
		msg.ICAO = uint32(frame[1])<<16 | uint32(frame[2])<<8 | uint32(frame[3])
	case modes.DF17, modes.DF18:
		msg.ICAO = uint32(frame[1])<<16 | uint32(frame[2])<<8 | uint32(frame[3])
		decodeExtendedSquitter(&msg, frame[4:11])
	case modes.DF20:
		decodeAltitudeReply(&msg, frame)
		decodeCommB(&msg, frame[4:11])
	case modes.DF21:
		decodeIdentityReply(&msg, frame)
		decodeCommB(&msg, frame[4:11])
	}

	return msg
}

func decodeAltitudeReply(msg *Message, frame []byte) {
	field := (uint16(frame[2]&0x1F) << 8) | uint16(frame[3])
	if ft, ok := DecodeAC13(field); ok {
		msg.HasAltitude = true
		msg.AltitudeFt = ft
	}
	msg.HasSurveillanceStatus = true
	msg.SurveillanceStatus = int((frame[0] >> 3) & 0x07)
}

func decodeIdentityReply(msg *Message, frame []byte) {
	field := (uint16(frame[2]&0x1F) << 8) | uint16(frame[3])
	msg.HasSquawk = true
	msg.Squawk = DecodeSquawk(field)
}

// decodeExtendedSquitter dispatches a DF17/18 ME field (7 bytes, me[0]'s
// top 5 bits are the type code) by type code, per spec §4.3.
func decodeExtendedSquitter(msg *Message, me []byte) {
	if len(me) != 7 {
		return
	}
	tc := int(me[0] >> 3)
	msg.TC = tc

	switch {
	case tc >= 1 && tc <= 4:
		msg.HasCallsign = true
		msg.Callsign = DecodeCallsign(me)
		msg.HasCategory = true
		msg.Category = int(me[0] & 0x07)

	case tc >= 5 && tc <= 8:
		decodeSurfacePosition(msg, me)

	case (tc >= 9 && tc <= 18) || (tc >= 20 && tc <= 22):
		decodeAirbornePosition(msg, me, tc >= 20)

	case tc == 19:
		decodeVelocity(msg, me)

	case tc == 28:
		decodeEmergencyStatus(msg, me)

	case tc == 29:
		decodeTargetState(msg, me)

	case tc == 31:
		decodeOpsStatus(msg, me)
	}
}

// movementToKt converts the 7-bit surface "movement" field to ground speed
// using the ADS-B non-linear speed table (spec §4.3, TC5-8 surface
// position).
func movementToKt(movement int) (kt float64, ok bool) {
	switch {
	case movement == 0:
		return 0, false
	case movement == 1:
		return 0, true // stopped
	case movement >= 2 && movement <= 8:
		return 0.125 * float64(movement-1), true
	case movement >= 9 && movement <= 12:
		return 1 + 0.25*float64(movement-9), true
	case movement >= 13 && movement <= 38:
		return 2 + 0.5*float64(movement-13), true
	case movement >= 39 && movement <= 93:
		return 15 + 1.0*float64(movement-39), true
	case movement >= 94 && movement <= 108:
		return 70 + 2.0*float64(movement-94), true
	case movement >= 109 && movement <= 123:
		return 100 + 5.0*float64(movement-109), true
	case movement == 124:
		return 175, true
	default:
		return 0, false
	}
}

func decodeSurfacePosition(msg *Message, me []byte) {
	movement := int(me[0]&0x07)<<4 | int(me[1]>>4)
	if kt, ok := movementToKt(movement); ok {
		msg.HasGroundSpeed = true
		msg.GroundSpeedKt = kt
	}

	if me[1]&0x08 != 0 {
		trackRaw := (int(me[1]&0x07) << 4) | int(me[2]>>4)
		msg.HasTrack = true
		msg.TrackDeg = float64(trackRaw) * 2.8125
	}

	odd := me[2]&0x04 != 0
	rawLat := (int(me[2]&0x03) << 15) | (int(me[3]) << 7) | (int(me[4]) >> 1)
	rawLon := (int(me[4]&0x01) << 16) | (int(me[5]) << 8) | int(me[6])

	msg.OnGround = true
	msg.HasOnGround = true
	msg.HasCPR = true
	msg.CPR = CPRFrame{RawLat: rawLat, RawLon: rawLon, Odd: odd, OnGround: true, Time: msg.Timestamp}
}

func decodeAirbornePosition(msg *Message, me []byte, gnss bool) {
	surveillanceStatus := int((me[0] >> 1) & 0x03)
	msg.HasSurveillanceStatus = true
	msg.SurveillanceStatus = surveillanceStatus

	altField := (uint16(me[1]) << 4) | uint16(me[2]>>4)
	if ft, ok := DecodeAC12(altField); ok {
		msg.HasAltitude = true
		msg.AltitudeFt = ft
	}

	odd := me[2]&0x04 != 0
	rawLat := (int(me[2]&0x03) << 15) | (int(me[3]) << 7) | (int(me[4]) >> 1)
	rawLon := (int(me[4]&0x01) << 16) | (int(me[5]) << 8) | int(me[6])

	msg.HasCPR = true
	msg.CPR = CPRFrame{RawLat: rawLat, RawLon: rawLon, Odd: odd, OnGround: false, Time: msg.Timestamp}

	_ = gnss // TC 20-22 altitude is GNSS height, not baro; caller (Tracker) distinguishes by TC when applying the field.
}

// decodeEmergencyStatus decodes TC28 subtype 1 (emergency/priority status).
func decodeEmergencyStatus(msg *Message, me []byte) {
	subtype := me[0] & 0x07
	if subtype != 1 {
		return
	}
	msg.HasEmergency = true
	msg.EmergencyID = int(me[1] >> 5)
}

// decodeTargetState decodes TC29 (target state and status): selected
// altitude and target heading, when their status bits are set.
func decodeTargetState(msg *Message, me []byte) {
	subtype := me[0] & 0x07
	if subtype != 1 {
		return
	}
	altStatus := me[1]&0x80 != 0
	if altStatus {
		altRaw := (int(me[1]&0x7F) << 4) | int(me[2]>>4)
		msg.HasSelectedAltitude = true
		msg.SelectedAltitudeFt = altRaw * 32
	}
	hdgStatus := me[3]&0x80 != 0
	if hdgStatus {
		hdgRaw := (int(me[3]&0x7F) << 2) | int(me[4]>>6)
		msg.HasTargetHeading = true
		msg.TargetHeadingDeg = float64(hdgRaw) * 180.0 / 256.0
	}
}

// decodeOpsStatus decodes TC31 (operational status): NACp/NIC quality
// indicators for subtype 0 (airborne).
func decodeOpsStatus(msg *Message, me []byte) {
	subtype := me[0] & 0x07
	if subtype != 0 {
		return
	}
	msg.HasNACp = true
	msg.NACp = int(me[5] & 0x0F)
	msg.HasNIC = true
	msg.NIC = int((me[5] >> 4) & 0x01)
}

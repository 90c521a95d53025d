package decode

// DecodeAC12 decodes a 12-bit airborne altitude field (DF17/18 TC9-18,
// TC20-22) into feet. The Q-bit (bit 4, zero-indexed from the LSB)
// distinguishes 25-ft binary coding (Q=1) from Gillham/Gray coding (Q=0).
func DecodeAC12(field uint16) (ft int, ok bool) {
	qBit := field&0x10 != 0
	if qBit {
		n := ((field & 0x0FE0) >> 1) | (field & 0x000F)
		return int(n)*25 - 1000, true
	}
	gillham := ac12ToGillham(field)
	n := modeAToModeC(gillham)
	if n < -12 {
		return 0, false
	}
	return n * 100, true
}

// DecodeAC13 decodes a 13-bit altitude field carried in DF4/20 surveillance
// altitude replies.
func DecodeAC13(field uint16) (ft int, ok bool) {
	mBit := field&0x0040 != 0
	if mBit {
		return 0, false // metric coding, unused by Mode-S in practice
	}
	qBit := field&0x0010 != 0
	if qBit {
		n := ((field & 0x1F80) >> 2) | ((field & 0x0020) >> 1) | (field & 0x000F)
		return int(n)*25 - 1000, true
	}
	gillham := id13ToGillham(field)
	n := modeAToModeC(gillham)
	if n < -12 {
		return 0, false
	}
	return n * 100, true
}

// ac12ToGillham remaps a 12-bit AC field's bit positions onto the 13-bit
// Gillham layout expected by modeAToModeC: it is missing the M-bit slot
// that the 13-bit AC field carries, so each source bit above that slot
// shifts down by one relative to id13ToGillham; the six bits below it
// (B1 Q B2 D2 B4 D4) sit at the same positions in both fields.
func ac12ToGillham(field uint16) uint32 {
	f := uint32(field)
	var g uint32
	if f&0x0800 != 0 {
		g |= 0x0010
	} // C1
	if f&0x0400 != 0 {
		g |= 0x1000
	} // A1
	if f&0x0200 != 0 {
		g |= 0x0020
	} // C2
	if f&0x0100 != 0 {
		g |= 0x2000
	} // A2
	if f&0x0080 != 0 {
		g |= 0x0040
	} // C4
	if f&0x0040 != 0 {
		g |= 0x4000
	} // A4
	if f&0x0020 != 0 {
		g |= 0x0100
	} // B1
	if f&0x0010 != 0 {
		g |= 0x0001
	} // D1/Q
	if f&0x0008 != 0 {
		g |= 0x0200
	} // B2
	if f&0x0004 != 0 {
		g |= 0x0002
	} // D2
	if f&0x0002 != 0 {
		g |= 0x0400
	} // B4
	if f&0x0001 != 0 {
		g |= 0x0004
	} // D4
	return g
}

// id13ToGillham remaps a 13-bit identity/altitude field's bit positions
// onto the Gillham A/B/C/D pulse layout used by modeAToModeC.
func id13ToGillham(field uint16) uint32 {
	f := uint32(field)
	var g uint32
	if f&0x1000 != 0 {
		g |= 0x0010
	} // C1
	if f&0x0800 != 0 {
		g |= 0x1000
	} // A1
	if f&0x0400 != 0 {
		g |= 0x0020
	} // C2
	if f&0x0200 != 0 {
		g |= 0x2000
	} // A2
	if f&0x0100 != 0 {
		g |= 0x0040
	} // C4
	if f&0x0080 != 0 {
		g |= 0x4000
	} // A4
	if f&0x0020 != 0 {
		g |= 0x0100
	} // B1
	if f&0x0010 != 0 {
		g |= 0x0001
	} // D1/Q
	if f&0x0008 != 0 {
		g |= 0x0200
	} // B2
	if f&0x0004 != 0 {
		g |= 0x0002
	} // D2
	if f&0x0002 != 0 {
		g |= 0x0400
	} // B4
	if f&0x0001 != 0 {
		g |= 0x0004
	} // D4
	return g
}

// modeAToModeC converts a Gillham-coded value (bit layout: A1 A2 A4 B1 B2
// B4 C1 C2 C4 D1 D2 D4 packed per ac12ToGillham/id13ToGillham) to a signed
// multiple of 100 ft. Returns a large negative sentinel on an illegal
// Gillham code.
func modeAToModeC(v uint32) int {
	if v&0xFFFF8889 != 0 || v&0x000000F0 == 0 {
		return -9999
	}

	var hundreds int
	if v&0x0010 != 0 {
		hundreds ^= 7
	}
	if v&0x0020 != 0 {
		hundreds ^= 3
	}
	if v&0x0040 != 0 {
		hundreds ^= 1
	}
	if hundreds&5 == 5 {
		hundreds ^= 2
	}
	if hundreds > 5 {
		return -9999
	}

	var fiveHundreds int
	if v&0x1000 != 0 {
		fiveHundreds ^= 0x03F
	}
	if v&0x2000 != 0 {
		fiveHundreds ^= 0x01F
	}
	if v&0x4000 != 0 {
		fiveHundreds ^= 0x00F
	}
	if v&0x0100 != 0 {
		fiveHundreds ^= 7
	}
	if v&0x0200 != 0 {
		fiveHundreds ^= 3
	}
	if v&0x0400 != 0 {
		fiveHundreds ^= 1
	}
	if v&0x0001 != 0 {
		fiveHundreds ^= 0x1FF
	}
	if v&0x0002 != 0 {
		fiveHundreds ^= 0x0FF
	}
	if v&0x0004 != 0 {
		fiveHundreds ^= 0x07F
	}

	if fiveHundreds&1 != 0 {
		hundreds = 6 - hundreds
	}

	return fiveHundreds*5 + hundreds - 13
}

// DecodeSquawk decodes the 13-bit identity field carried in DF5/21 into a
// 4-digit octal squawk string.
func DecodeSquawk(field uint16) string {
	g := id13ToGillham(field)
	a1 := (g >> 12) & 1
	a2 := (g >> 13) & 1
	a4 := (g >> 14) & 1
	b1 := (g >> 8) & 1
	b2 := (g >> 9) & 1
	b4 := (g >> 10) & 1
	c1 := (g >> 4) & 1
	c2 := (g >> 5) & 1
	c4 := (g >> 6) & 1
	d1 := g & 1
	d2 := (g >> 1) & 1
	d4 := (g >> 2) & 1

	digit := func(b1, b2, b4 uint32) byte {
		return byte('0' + b4*4 + b2*2 + b1)
	}
	out := []byte{
		digit(a1, a2, a4),
		digit(b1, b2, b4),
		digit(c1, c2, c4),
		digit(d1, d2, d4),
	}
	return string(out)
}

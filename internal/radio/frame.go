package radio

import "fmt"

const (
	flagByte   = 0x7E
	escapeByte = 0x7D
	escapeXor  = 0x20
)

// MaxMessageLength is the spec's default cap on an alert packet's payload
// (spec §6). HardMaxMessageLength is the absolute ceiling regardless of
// configuration.
const (
	MaxMessageLength     = 200
	HardMaxMessageLength = 237
)

// Packet is the wire shape of a single alert delivered to the local LoRa
// gateway: a channel index, an optional PSK reference (0 means no PSK is in
// use for this send), and the (possibly already AES-CTR encrypted) payload.
type Packet struct {
	ChannelIndex byte
	PSKReference byte
	Payload      []byte
}

// Frame serializes a Packet, appends a CRC16, byte-stuffs it, and wraps it
// with 0x7E flags so a reader can resynchronize after a dropped byte.
//
// The byte-stuffing scheme is unchanged from the teacher's GDL90 framing
// (0x7E flag / 0x7D escape / XOR 0x20); only the payload layout is new.
func Frame(p Packet) ([]byte, error) {
	if len(p.Payload) > HardMaxMessageLength {
		return nil, fmt.Errorf("radio: payload %d bytes exceeds hard max %d", len(p.Payload), HardMaxMessageLength)
	}

	msg := make([]byte, 0, 2+len(p.Payload))
	msg = append(msg, p.ChannelIndex, p.PSKReference)
	msg = append(msg, p.Payload...)

	crc := crc16(msg)
	withCRC := make([]byte, 0, len(msg)+2)
	withCRC = append(withCRC, msg...)
	withCRC = append(withCRC, byte(crc&0xFF), byte((crc>>8)&0xFF))

	out := make([]byte, 0, 2+len(withCRC)*2)
	out = append(out, flagByte)
	for _, b := range withCRC {
		if b == flagByte || b == escapeByte {
			out = append(out, escapeByte, b^escapeXor)
			continue
		}
		out = append(out, b)
	}
	out = append(out, flagByte)
	return out, nil
}

// Unframe reverses Frame: it validates 0x7E flag framing, de-escapes the
// payload, checks the appended CRC16, and splits out the channel index / PSK
// reference header.
func Unframe(frame []byte) (p Packet, crcOK bool, err error) {
	if len(frame) < 4 {
		return Packet{}, false, fmt.Errorf("radio: frame too short: %d", len(frame))
	}
	if frame[0] != flagByte || frame[len(frame)-1] != flagByte {
		return Packet{}, false, fmt.Errorf("radio: missing start/end flags")
	}

	raw := make([]byte, 0, len(frame))
	for i := 1; i < len(frame)-1; i++ {
		b := frame[i]
		if b == escapeByte {
			i++
			if i >= len(frame)-1 {
				return Packet{}, false, fmt.Errorf("radio: truncated escape at end of frame")
			}
			raw = append(raw, frame[i]^escapeXor)
			continue
		}
		raw = append(raw, b)
	}
	if len(raw) < 5 {
		return Packet{}, false, fmt.Errorf("radio: unescaped payload too short: %d", len(raw))
	}

	msg := raw[:len(raw)-2]
	crcGot := uint16(raw[len(raw)-2]) | (uint16(raw[len(raw)-1]) << 8)
	crcWant := crc16(msg)

	p = Packet{
		ChannelIndex: msg[0],
		PSKReference: msg[1],
		Payload:      append([]byte(nil), msg[2:]...),
	}
	return p, crcGot == crcWant, nil
}

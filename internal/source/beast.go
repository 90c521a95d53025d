package source

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"
)

// errResync indicates the reader lost frame alignment and dropped a
// partial frame; the caller should keep reading rather than reconnect.
var errResync = errors.New("beast: frame resync")

// Beast frame markers (spec §4.1, §6): 0x1A introduces a frame, the next
// byte is the type ('1' = Mode-A/C, '2' = Mode-S short 7 bytes, '3' =
// Mode-S long 14 bytes). A literal 0x1A inside the payload is escaped as
// two consecutive 0x1A bytes.
const (
	beastEscape   = 0x1A
	beastModeAC   = '1'
	beastModeS7   = '2'
	beastModeS14  = '3'
)

func beastPayloadLen(frameType byte) (int, bool) {
	switch frameType {
	case beastModeAC:
		return 2, true
	case beastModeS7:
		return 7, true
	case beastModeS14:
		return 14, true
	default:
		return 0, false
	}
}

// runBeastTCP dials cfg.Address and streams Beast-format binary frames,
// emitting only Mode-S short/long frames (Mode-A/C replies carry no ICAO
// and are out of scope, spec Non-goals).
func runBeastTCP(ctx context.Context, w *worker) (delivered bool, err error) {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	conn, dialErr := dialer.DialContext(ctx, "tcp", w.cfg.Address)
	if dialErr != nil {
		return false, dialErr
	}
	defer conn.Close()

	w.setState("connected")
	r := bufio.NewReaderSize(conn, 64*1024)

	for {
		select {
		case <-ctx.Done():
			return delivered, nil
		default:
		}
		if w.done.Load() {
			return delivered, nil
		}
		if d := w.cfg.ReadIdleTimeout; d > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(d))
		}

		frame, readErr := readBeastFrame(r)
		if readErr != nil {
			if errors.Is(readErr, errResync) {
				continue
			}
			return delivered, readErr
		}
		if frame == nil {
			continue // Mode-A/C, skipped
		}

		w.emit(RawFrame{Bytes: frame, ReceivedAt: time.Now(), SourceID: w.cfg.Name})
		delivered = true
	}
}

// readBeastFrame reads one Beast frame from r and returns the decoded
// Mode-S payload bytes (MLAT timestamp and signal level stripped), or nil
// with no error for a Mode-A/C frame the caller should skip.
func readBeastFrame(r *bufio.Reader) ([]byte, error) {
	var typeByte byte
	for {
		// Sync to the next frame marker.
		for {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			if b == beastEscape {
				break
			}
		}

		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		// A doubled escape before a type byte means the stream was already
		// mid-payload; keep resyncing on the next marker.
		if b == beastEscape {
			continue
		}
		if _, ok := beastPayloadLen(b); !ok {
			continue
		}
		typeByte = b
		break
	}

	payloadLen, _ := beastPayloadLen(typeByte)

	// 6 bytes MLAT timestamp + 1 byte signal level precede the payload.
	total := 6 + 1 + payloadLen
	buf := make([]byte, 0, total)
	for len(buf) < total {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == beastEscape {
			next, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			if next != beastEscape {
				// Unescaped 0x1A where data was expected: the stream
				// resynced on a new frame, so no use returning a truncated one.
				return nil, errResync
			}
		}
		buf = append(buf, b)
	}

	if typeByte == beastModeAC {
		return nil, nil
	}
	return buf[7:], nil
}

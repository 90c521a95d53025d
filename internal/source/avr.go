package source

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"net"
	"time"
)

// errNotAVRFrame marks a line that isn't a well-formed AVR frame; the
// caller skips it and keeps reading rather than reconnecting.
var errNotAVRFrame = errors.New("avr: malformed line")

// runAVRTCP dials cfg.Address and reads newline-delimited AVR ASCII
// frames of the form "*<hex>;\n" (spec §4.1, §6), where hex is 14 or 28
// characters (7 or 14 byte Mode-S payload).
func runAVRTCP(ctx context.Context, w *worker) (delivered bool, err error) {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	conn, dialErr := dialer.DialContext(ctx, "tcp", w.cfg.Address)
	if dialErr != nil {
		return false, dialErr
	}
	defer conn.Close()

	w.setState("connected")
	reader := bufio.NewReaderSize(conn, 4096)

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

		line, readErr := reader.ReadBytes('\n')
		if readErr != nil {
			if len(line) == 0 {
				return delivered, readErr
			}
		}

		frame, parseErr := parseAVRLine(line)
		if parseErr != nil {
			if readErr != nil {
				return delivered, readErr
			}
			continue
		}

		w.emit(RawFrame{Bytes: frame, ReceivedAt: time.Now(), SourceID: w.cfg.Name})
		delivered = true

		if readErr != nil {
			return delivered, readErr
		}
	}
}

// parseAVRLine strips the leading '*', trailing ";\r\n" and decodes the
// remaining hex digits. Any MLAT/timestamp suffix some feeders append
// after the ';' is ignored.
func parseAVRLine(line []byte) ([]byte, error) {
	start := -1
	end := -1
	for i, b := range line {
		if b == '*' && start == -1 {
			start = i + 1
		}
		if b == ';' && start != -1 {
			end = i
			break
		}
	}
	if start == -1 || end == -1 || end <= start {
		return nil, errNotAVRFrame
	}
	hexPart := line[start:end]
	if len(hexPart) != 14 && len(hexPart) != 28 {
		return nil, errNotAVRFrame
	}
	frame := make([]byte, len(hexPart)/2)
	if _, err := hex.Decode(frame, hexPart); err != nil {
		return nil, errNotAVRFrame
	}
	return frame, nil
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sentinel1090/internal/decode"
)

// runJSONPoll periodically GETs cfg.Address, expecting a JSONSnapshot body,
// and emits one decode.Message per aircraft entry directly onto the
// decoded-output stream (spec §4.1, §6 Inbound JSON snapshot).
func runJSONPoll(ctx context.Context, w *worker) (delivered bool, err error) {
	client := &http.Client{Timeout: 10 * time.Second}
	w.setState("connected")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return delivered, nil
		case <-ticker.C:
		}
		if w.done.Load() {
			return delivered, nil
		}

		snap, pollErr := fetchJSONSnapshot(ctx, client, w.cfg.Address)
		if pollErr != nil {
			w.setState("error")
			return delivered, pollErr
		}

		now := time.Now()
		for _, ac := range snap.Aircraft {
			msg, ok := jsonAircraftToMessage(ac, w.cfg.Name, now)
			if !ok {
				continue
			}
			w.emitDecoded(msg)
			delivered = true
		}
	}
}

func fetchJSONSnapshot(ctx context.Context, client *http.Client, url string) (JSONSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return JSONSnapshot{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return JSONSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JSONSnapshot{}, fmt.Errorf("json poll: unexpected status %d", resp.StatusCode)
	}

	var snap JSONSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return JSONSnapshot{}, fmt.Errorf("json poll: decode body: %w", err)
	}
	return snap, nil
}

// jsonAircraftToMessage maps one snapshot entry to a synthetic Message
// carrying only the fields the snapshot actually populated (ok is false
// for entries with no usable hex ICAO).
func jsonAircraftToMessage(ac JSONAircraft, sourceID string, polledAt time.Time) (decode.Message, bool) {
	icao, err := strconv.ParseUint(ac.Hex, 16, 32)
	if err != nil {
		return decode.Message{}, false
	}

	msg := decode.Message{
		DF:        17,
		ICAO:      uint32(icao),
		Timestamp: polledAt,
		SourceID:  sourceID,
	}

	if ac.Flight != nil {
		msg.HasCallsign = true
		msg.Callsign = trimCallsign(*ac.Flight)
	}
	if ac.AltBaro != nil {
		msg.HasAltitude = true
		msg.AltitudeFt = *ac.AltBaro
	}
	if ac.GS != nil {
		msg.HasGroundSpeed = true
		msg.GroundSpeedKt = *ac.GS
	}
	if ac.Track != nil {
		msg.HasTrack = true
		msg.TrackDeg = *ac.Track
	}
	if ac.Squawk != nil {
		msg.HasSquawk = true
		msg.Squawk = *ac.Squawk
	}
	if ac.Lat != nil && ac.Lon != nil {
		msg.HasResolvedPosition = true
		msg.ResolvedLat = *ac.Lat
		msg.ResolvedLon = *ac.Lon
	}

	return msg, true
}

func trimCallsign(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == ' ' {
		end--
	}
	return s[:end]
}

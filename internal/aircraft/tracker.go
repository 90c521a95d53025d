package aircraft

import (
	"sort"
	"sync"
	"time"

	"sentinel1090/internal/clock"
	"sentinel1090/internal/decode"
	"sentinel1090/internal/stats"
	"sentinel1090/internal/watchlist"
)

// Config carries the Tracker's tunables (spec §6 Configuration: CPR and
// Tracker sections).
type Config struct {
	AircraftTimeout  time.Duration
	MaxAircraft      int
	GlobalCPRWindow  time.Duration
	SurfaceCPRWindow time.Duration
	LocalCPRRangeNM  float64
	PositionTimeout  time.Duration

	ReferenceLat float64
	ReferenceLon float64
	HasReference bool
}

// DefaultConfig returns the spec's default tunables.
func DefaultConfig() Config {
	return Config{
		AircraftTimeout:  300 * time.Second,
		MaxAircraft:      10000,
		GlobalCPRWindow:  10 * time.Second,
		SurfaceCPRWindow: 25 * time.Second,
		LocalCPRRangeNM:  180,
		PositionTimeout:  60 * time.Second,
	}
}

// Update is the result of a single Ingest call (spec §4.4).
type Update struct {
	ICAO             uint32
	NewAircraft      bool
	PositionResolved bool
	IdentificationChanged bool
	Snapshot         Snapshot
}

// Tracker is the single owner of the aircraft store.
type Tracker struct {
	cfg   Config
	clock clock.Clock
	stats *stats.Sink

	mu        sync.RWMutex
	aircraft  map[uint32]*Aircraft

	refMu   sync.RWMutex
	refLat  float64
	refLon  float64
	hasRef  bool

	matcher *watchlist.Matcher
}

// New constructs a Tracker. matcher may be nil if watchlist evaluation is
// not wired up by the caller.
func New(cfg Config, clk clock.Clock, sink *stats.Sink, matcher *watchlist.Matcher) *Tracker {
	t := &Tracker{
		cfg:      cfg,
		clock:    clk,
		stats:    sink,
		aircraft: make(map[uint32]*Aircraft),
		matcher:  matcher,
	}
	if cfg.HasReference {
		t.refLat, t.refLon, t.hasRef = cfg.ReferenceLat, cfg.ReferenceLon, true
	}
	return t
}

// referencePoint returns the current CPR reference, either the
// operator-configured receiver location or the last globally-fixed
// position, per spec §5 ("read-mostly value protected by an atomic
// read/write slot").
func (t *Tracker) referencePoint() (lat, lon float64, ok bool) {
	t.refMu.RLock()
	defer t.refMu.RUnlock()
	return t.refLat, t.refLon, t.hasRef
}

func (t *Tracker) setReferencePoint(lat, lon float64) {
	t.refMu.Lock()
	defer t.refMu.Unlock()
	t.refLat, t.refLon, t.hasRef = lat, lon, true
}

// SetWatchlist atomically replaces the active watchlist entries and
// refreshes every tracked aircraft's is_watchlist flag (spec §4.4
// set_watchlist, §4.5).
func (t *Tracker) SetWatchlist(entries []watchlist.Entry) {
	if t.matcher == nil {
		return
	}
	t.matcher.SetEntries(entries)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, a := range t.aircraft {
		a.IsWatchlist = t.matcher.IsWatchlisted(watchlist.Subject{
			ICAOHex:  icaoHex(a.ICAO),
			Callsign: a.Callsign,
		})
	}
}

// Ingest applies a decoded message to the store (spec §4.4). It is
// idempotent for exact duplicates: an update whose message timestamp is
// older than a field's stored source-timestamp leaves that field
// unchanged but still advances last_seen and counters (P2, P3).
func (t *Tracker) Ingest(msg decode.Message) Update {
	now := t.clock.Now()

	t.mu.Lock()
	a, existed := t.aircraft[msg.ICAO]
	if !existed {
		a = &Aircraft{
			ICAO:         msg.ICAO,
			FirstSeen:    msg.Timestamp,
			MessagesByDF: make(map[int]int64),
			DataSources:  make(map[string]struct{}),
		}
		t.evictIfNeeded()
		t.aircraft[msg.ICAO] = a
		if t.stats != nil {
			t.stats.AircraftCreated.Add(1)
		}
	}

	if msg.Timestamp.After(a.LastSeen) || a.LastSeen.IsZero() {
		a.LastSeen = msg.Timestamp
	}
	a.MessagesTotal++
	a.MessagesByDF[msg.DF]++
	if msg.SourceID != "" {
		a.DataSources[msg.SourceID] = struct{}{}
	}
	if t.stats != nil {
		t.stats.IncMessagesByDF(msg.DF)
	}

	identChanged := t.applyFields(a, msg)
	positionResolved := t.resolvePosition(a, msg, now)

	if t.matcher != nil && (identChanged || positionResolved) {
		a.IsWatchlist = t.matcher.IsWatchlisted(watchlist.Subject{
			ICAOHex:  icaoHex(a.ICAO),
			Callsign: a.Callsign,
		})
	}

	snap := a.toSnapshot()
	t.mu.Unlock()

	return Update{
		ICAO:                  msg.ICAO,
		NewAircraft:           !existed,
		PositionResolved:      positionResolved,
		IdentificationChanged: identChanged,
		Snapshot:              snap,
	}
}

// evictIfNeeded removes the oldest-by-last_seen aircraft if inserting a new
// one would exceed MaxAircraft (spec §4.4 capacity policy). Caller holds
// t.mu.
func (t *Tracker) evictIfNeeded() {
	if t.cfg.MaxAircraft <= 0 || len(t.aircraft) < t.cfg.MaxAircraft {
		return
	}
	var oldestICAO uint32
	var oldestAt time.Time
	first := true
	for icao, a := range t.aircraft {
		if first || a.LastSeen.Before(oldestAt) {
			oldestICAO, oldestAt, first = icao, a.LastSeen, false
		}
	}
	if !first {
		delete(t.aircraft, oldestICAO)
		if t.stats != nil {
			t.stats.AircraftEvicted.Add(1)
		}
	}
}

// applyFields performs per-field last-writer-wins merge using the message
// timestamp (spec §4.4). Returns true if identification (callsign) changed.
func (t *Tracker) applyFields(a *Aircraft, msg decode.Message) (identChanged bool) {
	ts := msg.Timestamp

	// callsign is sticky: once set from TC1-4, only TC1-4 may replace it.
	if msg.HasCallsign {
		if a.Callsign == "" || msg.TC >= 1 && msg.TC <= 4 {
			if !ts.Before(a.ft.callsign) {
				if a.Callsign != msg.Callsign {
					identChanged = true
				}
				a.Callsign = msg.Callsign
				a.Category = msg.Category
				a.ft.callsign = ts
			}
		}
	}

	if msg.HasSquawk && !ts.Before(a.ft.squawk) {
		a.Squawk = msg.Squawk
		a.ft.squawk = ts
	}

	if msg.HasAltitude {
		gnss := msg.TC >= 20 && msg.TC <= 22
		if gnss {
			if !ts.Before(a.ft.altitudeGNSS) {
				a.AltGNSSFt = msg.AltitudeFt
				a.HasAltGNSS = rangeCheckAltitude(t.stats, "altitude_gnss", msg.AltitudeFt)
				a.ft.altitudeGNSS = ts
			}
		} else {
			if !ts.Before(a.ft.altitudeBaro) {
				if rangeCheckAltitude(t.stats, "altitude_baro", msg.AltitudeFt) {
					a.AltBaroFt = msg.AltitudeFt
					a.HasAltBaro = true
				}
				a.ft.altitudeBaro = ts
			}
		}
	}

	if msg.HasOnGround && !ts.Before(a.ft.position) {
		a.OnGround = msg.OnGround
	}

	if msg.HasGroundSpeed && !ts.Before(a.ft.groundSpeed) {
		if msg.GroundSpeedKt >= 0 && msg.GroundSpeedKt <= 5000 {
			a.GroundSpeedKt = msg.GroundSpeedKt
			a.HasGroundSpeed = true
		} else if t.stats != nil {
			t.stats.IncRangeError("ground_speed")
		}
		a.ft.groundSpeed = ts
	}

	if msg.HasTrack && !ts.Before(a.ft.track) {
		track := msg.TrackDeg
		for track < 0 {
			track += 360
		}
		for track >= 360 {
			track -= 360
		}
		a.TrackDeg = track
		a.HasTrack = true
		a.ft.track = ts
	}

	if msg.HasAirspeed && !ts.Before(a.ft.airspeed) {
		a.TrueAirspeedKt = msg.TrueAirspeedKt
		a.IndicatedAirspeed = msg.IndicatedAirspeed
		a.HasTAS = true
		a.ft.airspeed = ts
	}

	if msg.HasMagneticHeading && !ts.Before(a.ft.heading) {
		a.MagneticHeadingDeg = msg.MagneticHeadingDeg
		a.HasMagneticHeading = true
		a.ft.heading = ts
	}

	if msg.HasVerticalRate && !ts.Before(a.ft.verticalRate) {
		a.VerticalRateFpm = msg.VerticalRateFpm
		a.VerticalRateSrc = msg.VerticalRateSrc
		a.HasVerticalRate = true
		a.ft.verticalRate = ts
	}

	// Quality fields (NAC, NIC) always update to the latest value, no
	// sticky semantics (spec §4.4).
	if msg.HasNACp {
		a.NACp = msg.NACp
	}
	if msg.HasNIC {
		a.NIC = msg.NIC
	}

	if msg.HasSurveillanceStatus && !ts.Before(a.ft.surveillance) {
		a.SurveillanceStatus = msg.SurveillanceStatus
		a.ft.surveillance = ts
	}

	return identChanged
}

func rangeCheckAltitude(sink *stats.Sink, field string, ft int) bool {
	ok := ft >= -1000 && ft <= 60000
	if !ok && sink != nil {
		sink.IncRangeError(field)
	}
	return ok
}

// resolvePosition applies CPR buffering and decode per spec §4.3.1: prefer
// global when both parities are fresh, else local if a reference exists,
// else buffer. Returns true if a new position was resolved this call.
func (t *Tracker) resolvePosition(a *Aircraft, msg decode.Message, now time.Time) bool {
	if msg.HasResolvedPosition {
		if !isValidLatLon(msg.ResolvedLat, msg.ResolvedLon) || msg.Timestamp.Before(a.ft.position) {
			return false
		}
		a.Lat, a.Lon = msg.ResolvedLat, msg.ResolvedLon
		a.HasPosition = true
		a.PositionSource = PositionGlobalCPR
		a.PositionTime = msg.Timestamp
		a.ft.position = msg.Timestamp
		return true
	}

	if !msg.HasCPR {
		return false
	}

	half := cprHalf{rawLat: msg.CPR.RawLat, rawLon: msg.CPR.RawLon, t: msg.Timestamp, valid: true}
	surface := msg.CPR.OnGround
	window := t.cfg.GlobalCPRWindow
	if surface {
		window = t.cfg.SurfaceCPRWindow
	}

	var evenSlot, oddSlot *cprHalf
	if surface {
		evenSlot, oddSlot = &a.evenSurface, &a.oddSurface
	} else {
		evenSlot, oddSlot = &a.evenAirborne, &a.oddAirborne
	}
	if msg.CPR.Odd {
		*oddSlot = half
	} else {
		*evenSlot = half
	}

	resolved := false

	if evenSlot.valid && oddSlot.valid && absDuration(evenSlot.t.Sub(oddSlot.t)) <= window {
		var result decode.GlobalDecodeResult
		if surface {
			refLat, refLon, hasRef := t.referencePoint()
			if !hasRef {
				if t.stats != nil {
					t.stats.CPRIncomplete.Add(1)
				}
				return false
			}
			result = decode.DecodeSurface(evenSlot.rawLat, evenSlot.rawLon, oddSlot.rawLat, oddSlot.rawLon, msg.CPR.Odd, refLat, refLon)
		} else {
			result = decode.DecodeGlobalAirborne(evenSlot.rawLat, evenSlot.rawLon, oddSlot.rawLat, oddSlot.rawLon, msg.CPR.Odd)
		}
		if result.OK && isValidLatLon(result.Lat, result.Lon) {
			a.Lat, a.Lon = result.Lat, result.Lon
			a.HasPosition = true
			if surface {
				a.PositionSource = PositionSurface
			} else {
				a.PositionSource = PositionGlobalCPR
				t.setReferencePoint(result.Lat, result.Lon)
			}
			a.PositionTime = msg.Timestamp
			a.ft.position = msg.Timestamp
			resolved = true
			if t.stats != nil {
				t.stats.CPRGlobalComputed.Add(1)
			}
		}
	}

	if !resolved {
		refLat, refLon, hasRef := t.referencePoint()
		if hasRef {
			result := decode.DecodeLocal(half.rawLat, half.rawLon, msg.CPR.Odd, refLat, refLon, t.cfg.LocalCPRRangeNM, surface)
			if result.OK && isValidLatLon(result.Lat, result.Lon) {
				// A global fix unconditionally replaces a local one within
				// the CPR window; a local fix never overrides a fresher
				// global fix (spec §4.4).
				if a.PositionSource != PositionGlobalCPR || now.Sub(a.PositionTime) > window {
					a.Lat, a.Lon = result.Lat, result.Lon
					a.HasPosition = true
					a.PositionSource = PositionLocalCPR
					a.PositionTime = msg.Timestamp
					a.ft.position = msg.Timestamp
					resolved = true
					if t.stats != nil {
						t.stats.CPRLocalComputed.Add(1)
					}
				}
			}
		}
	}

	if !resolved && t.stats != nil {
		t.stats.CPRIncomplete.Add(1)
	}

	return resolved
}

func isValidLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon < 180
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Expire removes aircraft with last_seen older than AircraftTimeout and
// clears position fields older than PositionTimeout on the rest (spec
// §4.4, §4.3.1).
func (t *Tracker) Expire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for icao, a := range t.aircraft {
		if now.Sub(a.LastSeen) > t.cfg.AircraftTimeout {
			delete(t.aircraft, icao)
			if t.stats != nil {
				t.stats.AircraftExpired.Add(1)
			}
			continue
		}
		if a.HasPosition && now.Sub(a.PositionTime) > t.cfg.PositionTimeout {
			a.HasPosition = false
			a.PositionSource = PositionNone
		}
	}
}

// Snapshot returns a deep-copied, point-in-time view of every tracked
// aircraft, sorted by ICAO for deterministic output (spec §4.4).
func (t *Tracker) Snapshot() []Snapshot {
	t.mu.RLock()
	out := make([]Snapshot, 0, len(t.aircraft))
	for _, a := range t.aircraft {
		out = append(out, a.toSnapshot())
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ICAO < out[j].ICAO })
	return out
}

// Len reports the current aircraft count (spec P7: bounded memory).
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.aircraft)
}

// Known reports whether icao is already a tracked aircraft. The Frame
// Validator defers acceptance of a surveillance reply's candidate ICAO
// (spec §4.2) to this check before the Decoder runs.
func (t *Tracker) Known(icao uint32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.aircraft[icao]
	return ok
}

// Get returns a single aircraft's snapshot, if tracked.
func (t *Tracker) Get(icao uint32) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.aircraft[icao]
	if !ok {
		return Snapshot{}, false
	}
	return a.toSnapshot(), true
}

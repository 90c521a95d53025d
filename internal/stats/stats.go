// Package stats is the counters sink threaded through the pipeline in place
// of a global metrics singleton (spec §9). Scalar counters are plain
// atomic.Int64 fields; per-key counters (by source, by downlink format) use
// a small mutex-guarded map, the same pattern the teacher uses for its
// tail buffers and state snapshots.
package stats

import (
	"sync"
	"sync/atomic"
)

// Sink aggregates every counter named across the spec's components. All
// methods are safe for concurrent use from any goroutine.
type Sink struct {
	FramesIn  atomic.Int64
	FramesOut atomic.Int64

	CRCPass            atomic.Int64
	CRCFail            atomic.Int64
	DroppedUnknownICAO atomic.Int64

	DecodeErrors atomic.Int64

	CPRGlobalComputed atomic.Int64
	CPRLocalComputed  atomic.Int64
	CPRIncomplete     atomic.Int64

	AircraftCreated atomic.Int64
	AircraftExpired atomic.Int64
	AircraftEvicted atomic.Int64

	AlertsSent       atomic.Int64
	AlertsSuppressed atomic.Int64
	AlertsExpired    atomic.Int64

	DeliveryAttempts atomic.Int64
	DeliveryFailures atomic.Int64

	mu                    sync.RWMutex
	droppedFramesBySource map[string]int64
	messagesByDF          map[int]int64
	rangeErrorsByField    map[string]int64
	sourceStates          map[string]string
}

// Snapshot is a point-in-time, copy-out view of every counter, suitable for
// exposing over the (out of scope) HTTP surface or dumping on shutdown.
type Snapshot struct {
	FramesIn  int64
	FramesOut int64

	CRCPass            int64
	CRCFail            int64
	DroppedUnknownICAO int64

	DecodeErrors int64

	CPRGlobalComputed int64
	CPRLocalComputed  int64
	CPRIncomplete     int64

	AircraftCreated int64
	AircraftExpired int64
	AircraftEvicted int64

	AlertsSent       int64
	AlertsSuppressed int64
	AlertsExpired    int64

	DeliveryAttempts int64
	DeliveryFailures int64

	DroppedFramesBySource map[string]int64
	MessagesByDF          map[int]int64
	RangeErrorsByField    map[string]int64
	SourceStates          map[string]string
}

// New returns an initialized Sink ready for concurrent use.
func New() *Sink {
	return &Sink{
		droppedFramesBySource: make(map[string]int64),
		messagesByDF:          make(map[int]int64),
		rangeErrorsByField:    make(map[string]int64),
		sourceStates:          make(map[string]string),
	}
}

// IncDroppedFrames increments the per-source dropped-frame counter (Source
// Manager back-pressure policy, spec §4.1).
func (s *Sink) IncDroppedFrames(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedFramesBySource[source]++
}

// IncMessagesByDF increments the aircraft-wide per-DF message counter.
func (s *Sink) IncMessagesByDF(df int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messagesByDF[df]++
}

// IncRangeError increments the per-field range-violation counter (spec.md's
// RangeError{field} taxonomy entry).
func (s *Sink) IncRangeError(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangeErrorsByField[field]++
}

// SetSourceState records the current connection state of a source (spec §5
// per-interface state machine applies to sources as well as dispatcher
// interfaces).
func (s *Sink) SetSourceState(source, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceStates[source] = state
}

// Snapshot copies out every counter. Cheap enough to call on every stats()
// read view request.
func (s *Sink) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dropped := make(map[string]int64, len(s.droppedFramesBySource))
	for k, v := range s.droppedFramesBySource {
		dropped[k] = v
	}
	byDF := make(map[int]int64, len(s.messagesByDF))
	for k, v := range s.messagesByDF {
		byDF[k] = v
	}
	byField := make(map[string]int64, len(s.rangeErrorsByField))
	for k, v := range s.rangeErrorsByField {
		byField[k] = v
	}
	states := make(map[string]string, len(s.sourceStates))
	for k, v := range s.sourceStates {
		states[k] = v
	}

	return Snapshot{
		FramesIn:           s.FramesIn.Load(),
		FramesOut:          s.FramesOut.Load(),
		CRCPass:            s.CRCPass.Load(),
		CRCFail:            s.CRCFail.Load(),
		DroppedUnknownICAO: s.DroppedUnknownICAO.Load(),
		DecodeErrors:       s.DecodeErrors.Load(),
		CPRGlobalComputed:  s.CPRGlobalComputed.Load(),
		CPRLocalComputed:   s.CPRLocalComputed.Load(),
		CPRIncomplete:      s.CPRIncomplete.Load(),
		AircraftCreated:    s.AircraftCreated.Load(),
		AircraftExpired:    s.AircraftExpired.Load(),
		AircraftEvicted:    s.AircraftEvicted.Load(),
		AlertsSent:         s.AlertsSent.Load(),
		AlertsSuppressed:   s.AlertsSuppressed.Load(),
		AlertsExpired:      s.AlertsExpired.Load(),
		DeliveryAttempts:   s.DeliveryAttempts.Load(),
		DeliveryFailures:   s.DeliveryFailures.Load(),
		DroppedFramesBySource: dropped,
		MessagesByDF:          byDF,
		RangeErrorsByField:    byField,
		SourceStates:          states,
	}
}

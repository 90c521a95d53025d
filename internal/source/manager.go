package source

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"sentinel1090/internal/clock"
	"sentinel1090/internal/decode"
	"sentinel1090/internal/stats"
)

// mergedQueueSize bounds the channel every source's forwarder drains into;
// it is a merge point, not a back-pressure boundary — drop-oldest happens
// per source, in each worker's own queue (spec §4.1, §5).
const mergedQueueSize = 1024

// Manager owns one worker per configured source and fans their RawFrames
// into a single shared channel. Ordering within a source is preserved;
// ordering across sources is not guaranteed (spec §4.1 invariant). Each
// source buffers into its own bounded queue before being merged, so a
// congested source only ever drops its own backlog, never another
// source's.
type Manager struct {
	clock clock.Clock
	stats *stats.Sink

	out     chan RawFrame
	decoded chan decode.Message

	mu      sync.Mutex
	workers []*worker

	started atomic.Bool
	closed  atomic.Bool
}

// New constructs a Manager. Call AddSource for each configured feeder
// before Start.
func New(clk clock.Clock, sink *stats.Sink) *Manager {
	return &Manager{
		clock:   clk,
		stats:   sink,
		out:     make(chan RawFrame, mergedQueueSize),
		decoded: make(chan decode.Message, mergedQueueSize),
	}
}

// Output is the merged stream of RawFrames for the Frame Validator to
// consume; fed by beast_tcp, avr_tcp and raw_file sources.
func (m *Manager) Output() <-chan RawFrame {
	return m.out
}

// DecodedOutput is the merged stream of already-decoded Messages, fed by
// json_poll sources, which carry resolved fields rather than raw Mode-S
// bytes and so skip the Frame Validator and the decode package entirely
// (spec §4.1 json_poll, §4.2).
func (m *Manager) DecodedOutput() <-chan decode.Message {
	return m.decoded
}

// AddSource validates cfg and registers a worker for it. Returns
// SourceFatal only for configuration errors (unknown type, empty address);
// all runtime failures are handled internally with reconnect (spec §4.1).
func (m *Manager) AddSource(cfg Config) error {
	cfg.setDefaults()
	if cfg.Name == "" {
		return &SourceFatal{Name: cfg.Name, Reason: "name is required"}
	}
	if cfg.Address == "" {
		return &SourceFatal{Name: cfg.Name, Reason: "address is required"}
	}
	switch cfg.Type {
	case TypeBeastTCP, TypeAVRTCP, TypeJSONPoll, TypeRawFile:
	default:
		return &SourceFatal{Name: cfg.Name, Reason: fmt.Sprintf("unknown source type %q", cfg.Type)}
	}

	w := newWorker(cfg, m.clock, m.stats)
	m.mu.Lock()
	m.workers = append(m.workers, w)
	m.mu.Unlock()
	return nil
}

// Start launches every registered source's worker goroutine along with a
// per-source forwarder that merges its queue into the shared output.
func (m *Manager) Start(ctx context.Context) {
	if m.started.Swap(true) {
		return
	}
	m.mu.Lock()
	workers := append([]*worker(nil), m.workers...)
	m.mu.Unlock()

	for _, w := range workers {
		go w.run(ctx)
		go w.forwardQueues(ctx, m.out, m.decoded)
	}
}

// Close signals every worker to stop and waits for shutdown (spec §5
// shutdown_grace is enforced by the caller via ctx's deadline).
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	m.mu.Lock()
	workers := append([]*worker(nil), m.workers...)
	m.mu.Unlock()
	for _, w := range workers {
		w.waitDone()
	}
}

// SourceState reports the current connection state of a named source, for
// the stats()/health() read views.
func (m *Manager) SourceState(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workers {
		if w.cfg.Name == name {
			return w.getState(), true
		}
	}
	return "", false
}

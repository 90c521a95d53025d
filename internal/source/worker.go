package source

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sentinel1090/internal/clock"
	"sentinel1090/internal/decode"
	"sentinel1090/internal/stats"
)

// sourceQueueSize bounds each source's own frame buffer; when full, the
// oldest frame *from that source* is dropped, so one backed-up source can
// never evict a healthy source's buffered frames (spec §4.1, §5).
const sourceQueueSize = 1024

// worker runs a single source's connect/read/reconnect loop, grounded on
// the teacher's line_client.go state machine: an atomic done latch, a
// mutex-guarded state string, and a run loop that never returns on
// recoverable errors. Each worker owns its own bounded queue so back-pressure
// is scoped per source rather than to a manager-wide shared buffer.
type worker struct {
	cfg   Config
	clock clock.Clock
	stats *stats.Sink

	queue        chan RawFrame
	decodedQueue chan decode.Message

	mu    sync.Mutex
	state string

	done   atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newWorker(cfg Config, clk clock.Clock, sink *stats.Sink) *worker {
	return &worker{
		cfg:          cfg,
		clock:        clk,
		stats:        sink,
		queue:        make(chan RawFrame, sourceQueueSize),
		decodedQueue: make(chan decode.Message, sourceQueueSize),
		state:        "stopped",
		stopCh:       make(chan struct{}),
	}
}

// emit pushes a frame onto this source's own queue, dropping the oldest
// buffered frame from the same source if it's full (spec §4.1, §5).
func (w *worker) emit(f RawFrame) {
	select {
	case w.queue <- f:
		if w.stats != nil {
			w.stats.FramesIn.Add(1)
		}
	default:
		select {
		case <-w.queue:
		default:
		}
		select {
		case w.queue <- f:
			if w.stats != nil {
				w.stats.FramesIn.Add(1)
			}
		default:
		}
		if w.stats != nil {
			w.stats.IncDroppedFrames(f.SourceID)
		}
	}
}

// emitDecoded is emit's counterpart for json_poll sources, which bypass the
// RawFrame/Frame Validator path entirely.
func (w *worker) emitDecoded(msg decode.Message) {
	select {
	case w.decodedQueue <- msg:
		if w.stats != nil {
			w.stats.FramesIn.Add(1)
		}
	default:
		select {
		case <-w.decodedQueue:
		default:
		}
		select {
		case w.decodedQueue <- msg:
			if w.stats != nil {
				w.stats.FramesIn.Add(1)
			}
		default:
		}
		if w.stats != nil {
			w.stats.IncDroppedFrames(msg.SourceID)
		}
	}
}

func (w *worker) setState(s string) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	if w.stats != nil {
		w.stats.SetSourceState(w.cfg.Name, s)
	}
}

func (w *worker) getState() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *worker) waitDone() {
	if !w.done.Swap(true) {
		close(w.stopCh)
	}
	w.wg.Wait()
}

// run is the reconnect loop shared by every feeder type: connect, read
// until the connection fails or the context is cancelled, then back off
// and retry (spec §4.1). attempt resets to zero after any successful
// connection that delivered at least one frame.
func (w *worker) run(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()

	attempt := 0
	for {
		if ctx.Err() != nil || w.done.Load() {
			w.setState("stopped")
			return
		}

		w.setState("connecting")
		delivered, err := w.runOnce(ctx)
		if w.done.Load() || ctx.Err() != nil {
			w.setState("stopped")
			return
		}
		if err == nil {
			attempt = 0
			continue
		}
		if delivered {
			attempt = 0
		}

		w.setState("reconnecting")
		delay := fullJitterBackoff(attempt, w.cfg.ReconnectBackoffInitial, w.cfg.ReconnectBackoffMax)
		if !w.sleep(ctx, delay) {
			w.setState("stopped")
			return
		}
		attempt++
	}
}

// sleep waits for d or cancellation, reporting whether it completed the
// wait (false means the context was cancelled or the worker was closed).
func (w *worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := w.clock.After(d)
	select {
	case <-ctx.Done():
		return false
	case <-timer:
		return !w.done.Load()
	}
}

// runOnce dispatches to the feeder-specific connect/read implementation.
// Returns whether at least one frame was delivered before the connection
// ended, and the error that ended it (nil only for a clean ctx-driven
// shutdown already handled by the caller).
func (w *worker) runOnce(ctx context.Context) (delivered bool, err error) {
	switch w.cfg.Type {
	case TypeBeastTCP:
		return runBeastTCP(ctx, w)
	case TypeAVRTCP:
		return runAVRTCP(ctx, w)
	case TypeJSONPoll:
		return runJSONPoll(ctx, w)
	case TypeRawFile:
		return runRawFile(ctx, w)
	default:
		return false, nil
	}
}

// forwardQueues drains this worker's own queues into the Manager's shared
// output channels until ctx is done. Running one forwarder goroutine per
// source means a slow shared-channel reader stalls only this source's
// forwarder, never another source's (spec §4.1: "never blocks the reader of
// other sources").
func (w *worker) forwardQueues(ctx context.Context, out chan<- RawFrame, decoded chan<- decode.Message) {
	w.wg.Add(1)
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case f := <-w.queue:
			select {
			case out <- f:
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}
		case msg := <-w.decodedQueue:
			select {
			case decoded <- msg:
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			}
		}
	}
}

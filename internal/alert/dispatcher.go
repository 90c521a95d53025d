package alert

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sentinel1090/internal/clock"
	"sentinel1090/internal/stats"
)

// RoutingPolicy selects how a channel's (up to two) interfaces are used
// (spec §4.6).
type RoutingPolicy string

const (
	RoutingPrimary  RoutingPolicy = "primary"
	RoutingAll      RoutingPolicy = "all"
	RoutingFallback RoutingPolicy = "fallback"
)

// Interface is the narrow capability every outbound transport exposes to
// the dispatcher: send, and report health for the state machine and
// fallback-routing decisions. SerialInterface satisfies this directly;
// MQTTInterface is bound to a channel name through mqttChannelAdapter.
type Interface interface {
	Send(payload []byte) error
	Healthy() bool
}

type mqttChannelAdapter struct {
	iface   *MQTTInterface
	channel string
}

func (a *mqttChannelAdapter) Send(payload []byte) error { return a.iface.Send(a.channel, payload) }
func (a *mqttChannelAdapter) Healthy() bool             { return a.iface.Healthy() }

// NewMQTTChannelInterface binds a shared MQTTInterface to one channel name
// so it can sit in a ChannelConfig's interface list alongside a serial one.
func NewMQTTChannelInterface(iface *MQTTInterface, channel string) Interface {
	return &mqttChannelAdapter{iface: iface, channel: channel}
}

// ifaceState mirrors the per-interface state machine (spec §4.6).
type ifaceState int

const (
	stateDisconnected ifaceState = iota
	stateConnected
	stateDegraded
)

// ifaceSlot tracks one routed interface's health and state machine
// position. consecutiveFailures drives the DEGRADED→DISCONNECTED
// "retries exhausted" transition; health probes drive DEGRADED→CONNECTED.
type ifaceSlot struct {
	iface Interface

	mu                  sync.Mutex
	state               ifaceState
	consecutiveFailures int
	degradedSince       time.Time
	lastHealthCheck     time.Time
}

func newIfaceSlot(i Interface) *ifaceSlot {
	return &ifaceSlot{iface: i, state: stateDisconnected}
}

// send attempts delivery and advances the state machine accordingly.
func (s *ifaceSlot) send(payload []byte, maxAttempts int) error {
	err := s.iface.Send(payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.consecutiveFailures++
		if s.state == stateConnected {
			s.state = stateDegraded
			s.degradedSince = time.Time{}
		}
		if s.consecutiveFailures >= maxAttempts {
			s.state = stateDisconnected
			s.consecutiveFailures = 0
		}
		return err
	}
	s.consecutiveFailures = 0
	s.state = stateConnected
	return nil
}

// healthProbe runs at most once per interval; a healthy DEGRADED interface
// recovers directly to CONNECTED without waiting for the next send.
func (s *ifaceSlot) healthProbe(now time.Time, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateDegraded {
		return
	}
	if now.Sub(s.lastHealthCheck) < interval {
		return
	}
	s.lastHealthCheck = now
	if s.iface.Healthy() {
		s.state = stateConnected
	}
}

// unhealthyFor reports how long the slot has been out of CONNECTED, for
// fallback routing's failover_timeout check.
func (s *ifaceSlot) unhealthyFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateConnected {
		return 0
	}
	if s.degradedSince.IsZero() {
		s.degradedSince = now
	}
	return now.Sub(s.degradedSince)
}

func (s *ifaceSlot) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateConnected
}

// ChannelConfig is the dispatcher-side routing and retry configuration for
// one named outbound channel (spec §3 Channel Config / §4.6).
type ChannelConfig struct {
	Name                string
	PSKBase64           string // empty = plaintext channel
	Routing             RoutingPolicy
	MaxAttempts         int
	MessageTTL          time.Duration
	FailoverTimeout     time.Duration
	HealthCheckInterval time.Duration
}

func (c ChannelConfig) withDefaults() ChannelConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.MessageTTL <= 0 {
		c.MessageTTL = 300 * time.Second
	}
	if c.FailoverTimeout <= 0 {
		c.FailoverTimeout = 30 * time.Second
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 60 * time.Second
	}
	return c
}

type channelRoute struct {
	cfg        ChannelConfig
	cipher     *Cipher
	interfaces []*ifaceSlot
}

// Outbound is a queued alert delivery (spec §3 Outbound Message).
type Outbound struct {
	ID            uint64
	Content       []byte
	ChannelName   string
	Priority      Priority
	CreatedAt     time.Time
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
}

// Dispatcher routes, retries, and expires outbound alert deliveries across
// channels (spec §4.6). Safe for concurrent Enqueue calls; ProcessOnce must
// be called from a single goroutine (normally via Run).
type Dispatcher struct {
	clock clock.Clock
	stats *stats.Sink

	mu       sync.Mutex
	channels map[string]*channelRoute
	pending  []*Outbound
	nextID   atomic.Uint64
}

func NewDispatcher(clk clock.Clock, sink *stats.Sink) *Dispatcher {
	return &Dispatcher{clock: clk, stats: sink, channels: make(map[string]*channelRoute)}
}

// RegisterChannel wires a channel's routing config and its (one or two)
// ordered interfaces ("interface 1", "interface 2" per spec wording).
func (d *Dispatcher) RegisterChannel(cfg ChannelConfig, interfaces ...Interface) error {
	if cfg.Name == "" {
		return fmt.Errorf("alert: channel name is required")
	}
	if len(interfaces) == 0 {
		return fmt.Errorf("alert: channel %q needs at least one interface", cfg.Name)
	}
	cfg = cfg.withDefaults()

	var cipher *Cipher
	if cfg.PSKBase64 != "" {
		c, err := NewCipher(cfg.PSKBase64)
		if err != nil {
			return fmt.Errorf("alert: channel %q: %w", cfg.Name, err)
		}
		cipher = c
	}

	slots := make([]*ifaceSlot, 0, len(interfaces))
	for _, i := range interfaces {
		slots = append(slots, newIfaceSlot(i))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[cfg.Name] = &channelRoute{cfg: cfg, cipher: cipher, interfaces: slots}
	return nil
}

// Enqueue encrypts content if the channel carries a PSK and queues an
// Outbound for delivery. Returns the assigned monotonic id.
func (d *Dispatcher) Enqueue(channelName string, content []byte, priority Priority) (uint64, error) {
	d.mu.Lock()
	route, ok := d.channels[channelName]
	d.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("alert: unknown channel %q", channelName)
	}

	payload := content
	if route.cipher != nil {
		ciphertext, err := route.cipher.Encrypt(content)
		if err != nil {
			return 0, fmt.Errorf("alert: encrypt for channel %q: %w", channelName, err)
		}
		payload = ciphertext
	}

	now := d.clock.Now()
	id := d.nextID.Add(1)
	msg := &Outbound{
		ID:            id,
		Content:       payload,
		ChannelName:   channelName,
		Priority:      priority,
		CreatedAt:     now,
		MaxAttempts:   route.cfg.MaxAttempts,
		NextAttemptAt: now,
	}

	d.mu.Lock()
	d.pending = append(d.pending, msg)
	d.mu.Unlock()
	return id, nil
}

// ProcessOnce drives every due, non-expired pending message through its
// channel's routing policy once. Call from a single goroutine (Run does
// this on a timer); exported separately so tests can drive it deterministically.
func (d *Dispatcher) ProcessOnce() {
	now := d.clock.Now()

	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	var requeue []*Outbound
	for _, msg := range pending {
		if now.Sub(msg.CreatedAt) > d.channelTTL(msg.ChannelName) {
			if d.stats != nil {
				d.stats.AlertsExpired.Add(1)
			}
			continue
		}
		if now.Before(msg.NextAttemptAt) {
			requeue = append(requeue, msg)
			continue
		}

		d.runHealthProbes(msg.ChannelName, now)

		if d.stats != nil {
			d.stats.DeliveryAttempts.Add(1)
		}
		if err := d.deliver(msg.ChannelName, msg.Content, now); err != nil {
			if d.stats != nil {
				d.stats.DeliveryFailures.Add(1)
			}
			msg.Attempts++
			if msg.Attempts >= msg.MaxAttempts {
				continue // DeliveryPermanent: dropped
			}
			msg.NextAttemptAt = now.Add(fullJitterBackoff(msg.Attempts-1, time.Second, 30*time.Second))
			requeue = append(requeue, msg)
		}
	}

	d.mu.Lock()
	d.pending = append(d.pending, requeue...)
	d.mu.Unlock()
}

func (d *Dispatcher) channelTTL(name string) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.channels[name]; ok {
		return r.cfg.MessageTTL
	}
	return 300 * time.Second
}

func (d *Dispatcher) runHealthProbes(channelName string, now time.Time) {
	d.mu.Lock()
	route, ok := d.channels[channelName]
	d.mu.Unlock()
	if !ok {
		return
	}
	for _, s := range route.interfaces {
		s.healthProbe(now, route.cfg.HealthCheckInterval)
	}
}

// deliver applies the channel's routing policy for a single send attempt.
func (d *Dispatcher) deliver(channelName string, payload []byte, now time.Time) error {
	d.mu.Lock()
	route, ok := d.channels[channelName]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("alert: unknown channel %q", channelName)
	}

	switch route.cfg.Routing {
	case RoutingAll:
		return d.deliverAll(route, payload)
	case RoutingFallback:
		return d.deliverFallback(route, payload, now)
	case RoutingPrimary:
		fallthrough
	default:
		return d.deliverPrimary(route, payload)
	}
}

func (d *Dispatcher) deliverPrimary(route *channelRoute, payload []byte) error {
	var lastErr error
	for _, s := range route.interfaces {
		err := s.send(payload, route.cfg.MaxAttempts)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (d *Dispatcher) deliverAll(route *channelRoute, payload []byte) error {
	var lastErr error
	delivered := false
	for _, s := range route.interfaces {
		if err := s.send(payload, route.cfg.MaxAttempts); err != nil {
			lastErr = err
		} else {
			delivered = true
		}
	}
	if delivered {
		return nil
	}
	return lastErr
}

func (d *Dispatcher) deliverFallback(route *channelRoute, payload []byte, now time.Time) error {
	primary := route.interfaces[0]
	if len(route.interfaces) == 1 {
		return primary.send(payload, route.cfg.MaxAttempts)
	}
	secondary := route.interfaces[1]

	if primary.unhealthyFor(now) >= route.cfg.FailoverTimeout {
		return secondary.send(payload, route.cfg.MaxAttempts)
	}
	return primary.send(payload, route.cfg.MaxAttempts)
}

// Run ticks ProcessOnce until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, tick time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.clock.After(tick):
			d.ProcessOnce()
		}
	}
}

// PendingCount reports the number of messages currently queued, for tests
// and operator status views.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

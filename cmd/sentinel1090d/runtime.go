package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"sentinel1090/internal/aircraft"
	"sentinel1090/internal/alert"
	"sentinel1090/internal/clock"
	"sentinel1090/internal/config"
	"sentinel1090/internal/control"
	"sentinel1090/internal/decode"
	"sentinel1090/internal/modes"
	"sentinel1090/internal/source"
	"sentinel1090/internal/stats"
	"sentinel1090/internal/watchlist"
)

// expireInterval is how often the runtime sweeps the tracker for stale
// aircraft and stale positions (spec §4.4 Expire).
const expireInterval = 10 * time.Second

// runtime wires the six core components into the pipeline diagrammed in
// spec §2, the way cmd/stratux-ng/live_runtime.go wires its own decoders,
// traffic store and broadcaster around a shared config and status object.
type runtime struct {
	cfg   config.Config
	clock clock.Clock
	stats *stats.Sink

	sources    *source.Manager
	tracker    *aircraft.Tracker
	matcher    *watchlist.Matcher
	throttler  *alert.Throttler
	dispatcher *alert.Dispatcher
	template   alert.Template

	controlSrv *control.Server
	mqttIface  *alert.MQTTInterface
}

func newRuntime(cfg config.Config) (*runtime, error) {
	clk := clock.System{}
	sink := stats.New()

	entries, err := cfg.WatchlistEntries()
	if err != nil {
		return nil, fmt.Errorf("watchlist entries: %w", err)
	}
	matcher := watchlist.New()

	tracker := aircraft.New(cfg.AircraftTrackerConfig(), clk, sink, matcher)
	tracker.SetWatchlist(entries)

	mgr := source.New(clk, sink)
	for _, sc := range cfg.SourceConfigs() {
		if err := mgr.AddSource(sc); err != nil {
			return nil, fmt.Errorf("add source: %w", err)
		}
	}

	throttler := alert.NewThrottler(alert.ThrottleConfig{
		MinIntervalSec:   cfg.Watchlist.MinIntervalSec,
		MaxAlertsPerHour: cfg.Watchlist.MaxPerHour,
	}, clk, sink)

	dispatcher := alert.NewDispatcher(clk, sink)

	r := &runtime{
		cfg:        cfg,
		clock:      clk,
		stats:      sink,
		sources:    mgr,
		tracker:    tracker,
		matcher:    matcher,
		throttler:  throttler,
		dispatcher: dispatcher,
		template:   alert.DefaultTemplate(),
	}
	if cfg.Dispatcher.MessageFormat != "" {
		r.template.PositionFormat = alert.PositionFormat(cfg.Dispatcher.MessageFormat)
	}

	if err := r.wireDispatcher(clk); err != nil {
		return nil, err
	}

	return r, nil
}

// wireDispatcher registers every configured channel with its serial and/or
// MQTT interfaces. A single shared MQTTInterface is used across every
// use_mqtt channel since they all publish through the same broker
// connection (spec §6 dispatcher.mqtt is a single broker config shared by
// channels).
func (r *runtime) wireDispatcher(clk clock.Clock) error {
	dcfg := r.cfg.Dispatcher

	needsMQTT := false
	for _, ch := range dcfg.Channels {
		if ch.UseMQTT {
			needsMQTT = true
		}
	}
	if needsMQTT {
		r.mqttIface = alert.NewMQTTInterface(alert.MQTTConfig{
			BrokerURL:   dcfg.MQTT.BrokerURL,
			ClientID:    dcfg.MQTT.ClientID,
			TopicPrefix: dcfg.MQTT.TopicPrefix,
			Region:      dcfg.MQTT.Region,
			Username:    dcfg.MQTT.Username,
			Password:    dcfg.MQTT.Password,
			QoS:         dcfg.MQTT.QoS,
		}, clk)
		if err := r.mqttIface.Connect(); err != nil {
			log.Printf("dispatcher: mqtt connect failed, will retry lazily: %v", err)
		}
	}

	for _, ch := range dcfg.Channels {
		var ifaces []alert.Interface
		if ch.SerialPort != "" {
			serialIface := alert.NewSerialInterface(alert.SerialConfig{
				Port:         ch.SerialPort,
				BaudRate:     config.SerialBaudRate,
				ChannelIndex: ch.ChannelNumber,
			})
			if err := serialIface.Connect(); err != nil {
				log.Printf("dispatcher: channel %s: serial connect failed, will retry lazily: %v", ch.Name, err)
			}
			ifaces = append(ifaces, serialIface)
		}
		if ch.UseMQTT && r.mqttIface != nil {
			ifaces = append(ifaces, alert.NewMQTTChannelInterface(r.mqttIface, ch.Name))
		}
		if len(ifaces) == 0 {
			return fmt.Errorf("dispatcher: channel %q has no usable interfaces", ch.Name)
		}

		psk := ch.PSKBase64
		if !dcfg.EncryptionEnabled {
			psk = ""
		}
		err := r.dispatcher.RegisterChannel(alert.ChannelConfig{
			Name:                ch.Name,
			PSKBase64:           psk,
			Routing:             alert.RoutingPolicy(ch.Routing),
			MaxAttempts:         dcfg.MaxAttempts,
			MessageTTL:          dcfg.MessageTTL,
			FailoverTimeout:     ch.FailoverTimeout,
			HealthCheckInterval: dcfg.HealthCheckInterval,
		}, ifaces...)
		if err != nil {
			return fmt.Errorf("register channel %q: %w", ch.Name, err)
		}
	}
	return nil
}

// Run starts every background loop and blocks until ctx is cancelled.
func (r *runtime) Run(ctx context.Context) {
	r.sources.Start(ctx)
	go r.ingestRawFrames(ctx)
	go r.ingestDecodedMessages(ctx)
	go r.expireLoop(ctx)
	go r.dispatcher.Run(ctx, time.Second)

	<-ctx.Done()
	r.sources.Close()
	if r.mqttIface != nil {
		r.mqttIface.Close()
	}
}

// ingestRawFrames drains the Source Manager's RawFrame stream through the
// Frame Validator and Decoder before applying each message to the Tracker
// (spec §2 pipeline diagram).
func (r *runtime) ingestRawFrames(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-r.sources.Output():
			if !ok {
				return
			}
			r.processRawFrame(f)
		}
	}
}

func (r *runtime) processRawFrame(f source.RawFrame) {
	df, crcOK, err := modes.Validate(f.Bytes)
	if err != nil {
		r.stats.CRCFail.Add(1)
		return
	}

	var icao uint32
	switch df {
	case modes.DF11:
		var ok bool
		icao, ok = modes.AllCallCandidateICAO(f.Bytes)
		if !ok {
			r.stats.CRCFail.Add(1)
			return
		}
	case modes.DF17, modes.DF18:
		if !crcOK {
			r.stats.CRCFail.Add(1)
			return
		}
		icao = uint32(f.Bytes[1])<<16 | uint32(f.Bytes[2])<<8 | uint32(f.Bytes[3])
	default:
		// Surveillance replies (DF0/4/5/16/20/21): the syndrome carries a
		// candidate ICAO that only the Tracker's known-ICAO set can confirm
		// (spec §4.2).
		icao = modes.ModeACandidateICAO(f.Bytes)
		if !r.tracker.Known(icao) {
			r.stats.DroppedUnknownICAO.Add(1)
			return
		}
	}
	r.stats.CRCPass.Add(1)

	msg := decode.Decode(f.Bytes, df, icao, f.SourceID, f.ReceivedAt)
	r.applyMessage(msg)
}

// ingestDecodedMessages drains json_poll sources, which produce
// decode.Message directly and skip the Frame Validator/Decoder entirely
// (spec §4.1 json_poll).
func (r *runtime) ingestDecodedMessages(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-r.sources.DecodedOutput():
			if !ok {
				return
			}
			r.applyMessage(msg)
		}
	}
}

// applyMessage ingests a decoded message into the Tracker and, if the
// update touched identification or position and the aircraft is
// watchlisted, runs it through the throttle and into the dispatcher (spec
// §4.4 Ingest, §4.5, §4.6).
func (r *runtime) applyMessage(msg decode.Message) {
	upd := r.tracker.Ingest(msg)
	if !upd.IdentificationChanged && !upd.PositionResolved {
		return
	}
	if !upd.Snapshot.IsWatchlist {
		return
	}
	r.maybeAlert(upd.Snapshot)
}

func (r *runtime) maybeAlert(snap aircraft.Snapshot) {
	priority := alert.PriorityNormal
	if aircraft.IsEmergencySquawk(snap.Squawk) {
		priority = alert.PriorityCritical
	}
	if !r.throttler.Allow(snap.ICAO, priority) {
		return
	}

	subject := watchlist.Subject{ICAOHex: snap.ICAOHex, Callsign: snap.Callsign}
	evt, ok := r.matcher.Match(subject, r.clock.Now())
	if !ok {
		return
	}
	text := alert.Render(r.template, snap, evt)

	channel := r.cfg.Dispatcher.DefaultChannel
	if channel == "" {
		return
	}
	if _, err := r.dispatcher.Enqueue(channel, []byte(text), priority); err != nil {
		log.Printf("dispatcher: enqueue failed for icao=%s: %v", snap.ICAOHex, err)
	}
}

func (r *runtime) expireLoop(ctx context.Context) {
	ticker := time.NewTicker(expireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tracker.Expire(r.clock.Now())
		}
	}
}

// startControlServer binds the line-oriented control channel, if
// configured (spec §2 "a small line-oriented control channel").
func (r *runtime) startControlServer(addr string) error {
	if addr == "" {
		return nil
	}
	srv, err := control.Listen(addr, control.Views{
		Snapshot: r.tracker.Snapshot,
		Stats:    r.stats.Snapshot,
		Health:   r.healthCheck,
	})
	if err != nil {
		return err
	}
	r.controlSrv = srv
	go srv.Serve()
	log.Printf("control: listening on %s", srv.Addr())
	return nil
}

func (r *runtime) healthCheck() (bool, []control.HealthCheck) {
	checks := make([]control.HealthCheck, 0, len(r.cfg.Sources))
	allOK := true
	for _, s := range r.cfg.Sources {
		state, _ := r.sources.SourceState(s.Name)
		ok := state == "connected" || state == "reading"
		if !ok {
			allOK = false
		}
		checks = append(checks, control.HealthCheck{Name: s.Name, OK: ok})
	}
	return allOK, checks
}

func (r *runtime) Close() {
	if r.controlSrv != nil {
		r.controlSrv.Close()
	}
}

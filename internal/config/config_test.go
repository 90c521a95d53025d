package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

const minimalSourceConfig = "sources:\n  - name: feed1\n    type: beast_tcp\n    address: '127.0.0.1:30005'\n"

func TestLoad_RequiresAtLeastOneSource(t *testing.T) {
	path := writeTempConfig(t, "cpr: {}\n")
	_, err := Load(path)
	requireErrEq(t, err, "config: at least one source is required")
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, minimalSourceConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Tracker.AircraftTimeout != 300*time.Second {
		t.Fatalf("aircraft_timeout=%s want 300s", cfg.Tracker.AircraftTimeout)
	}
	if cfg.Tracker.MaxAircraft != 10000 {
		t.Fatalf("max_aircraft=%d want 10000", cfg.Tracker.MaxAircraft)
	}
	if cfg.Watchlist.MinIntervalSec != 300 {
		t.Fatalf("min_interval_sec=%d want 300", cfg.Watchlist.MinIntervalSec)
	}
	if cfg.Watchlist.MaxPerHour != 10 {
		t.Fatalf("max_alerts_per_hour=%d want 10", cfg.Watchlist.MaxPerHour)
	}
	if cfg.Dispatcher.MaxAttempts != 3 {
		t.Fatalf("max_attempts=%d want 3", cfg.Dispatcher.MaxAttempts)
	}
	if cfg.Dispatcher.MessageTTL != 300*time.Second {
		t.Fatalf("message_ttl=%s want 300s", cfg.Dispatcher.MessageTTL)
	}
	if cfg.Dispatcher.HealthCheckInterval != 60*time.Second {
		t.Fatalf("health_check_interval=%s want 60s", cfg.Dispatcher.HealthCheckInterval)
	}
	if cfg.Sources[0].ReconnectBackoffMax != 30*time.Second {
		t.Fatalf("reconnect_backoff_max=%s want 30s", cfg.Sources[0].ReconnectBackoffMax)
	}
	if cfg.CPR.LocalRangeNM != 180 {
		t.Fatalf("local_range_nm=%v want 180", cfg.CPR.LocalRangeNM)
	}
}

func TestLoad_RejectsUnknownSourceType(t *testing.T) {
	path := writeTempConfig(t, "sources:\n  - name: feed1\n    type: carrier_pigeon\n    address: x\n")
	_, err := Load(path)
	requireErrEq(t, err, `config: source "feed1": unknown type "carrier_pigeon"`)
}

func TestLoad_RejectsMissingSourceAddress(t *testing.T) {
	path := writeTempConfig(t, "sources:\n  - name: feed1\n    type: beast_tcp\n")
	_, err := Load(path)
	requireErrEq(t, err, `config: source "feed1": address is required`)
}

func TestLoad_RejectsDuplicateSourceNames(t *testing.T) {
	path := writeTempConfig(t, minimalSourceConfig+"  - name: feed1\n    type: avr_tcp\n    address: '127.0.0.1:30003'\n")
	_, err := Load(path)
	requireErrEq(t, err, `config: duplicate source name "feed1"`)
}

func TestLoad_RejectsUnknownWatchlistKind(t *testing.T) {
	path := writeTempConfig(t, minimalSourceConfig+"watchlist:\n  entries:\n    - kind: smoke_signal\n      value: x\n      label: y\n")
	_, err := Load(path)
	requireErrEq(t, err, `config: watchlist entry "y": unknown watchlist kind "smoke_signal"`)
}

func TestLoad_RejectsChannelWithoutInterface(t *testing.T) {
	path := writeTempConfig(t, minimalSourceConfig+"dispatcher:\n  channels:\n    - name: ops\n")
	_, err := Load(path)
	requireErrEq(t, err, `config: channel "ops": needs a serial_port, use_mqtt, or both`)
}

func TestLoad_RejectsMQTTChannelWithoutBroker(t *testing.T) {
	path := writeTempConfig(t, minimalSourceConfig+"dispatcher:\n  channels:\n    - name: ops\n      use_mqtt: true\n")
	_, err := Load(path)
	requireErrEq(t, err, `config: channel "ops": use_mqtt is set but dispatcher.mqtt.broker_url is empty`)
}

func TestLoad_RejectsPSKWithoutEncryptionEnabled(t *testing.T) {
	path := writeTempConfig(t, minimalSourceConfig+"dispatcher:\n  channels:\n    - name: ops\n      serial_port: /dev/ttyUSB0\n      psk: c29tZWtleQ==\n")
	_, err := Load(path)
	requireErrEq(t, err, `config: channel "ops": psk is set but dispatcher.encryption_enabled is false`)
}

func TestLoad_RejectsDuplicateChannelNames(t *testing.T) {
	body := minimalSourceConfig + "dispatcher:\n  channels:\n" +
		"    - name: ops\n      serial_port: /dev/ttyUSB0\n" +
		"    - name: ops\n      serial_port: /dev/ttyUSB1\n"
	_, err := Load(writeTempConfig(t, body))
	requireErrEq(t, err, `config: duplicate channel name "ops"`)
}

func TestLoad_RejectsUnknownRoutingPolicy(t *testing.T) {
	body := minimalSourceConfig + "dispatcher:\n  channels:\n    - name: ops\n      serial_port: /dev/ttyUSB0\n      routing: round_robin\n"
	_, err := Load(writeTempConfig(t, body))
	requireErrEq(t, err, `config: channel "ops": unknown routing policy "round_robin"`)
}

func TestLoad_RejectsQoSOutOfRange(t *testing.T) {
	body := minimalSourceConfig + "dispatcher:\n  mqtt:\n    qos: 2\n"
	_, err := Load(writeTempConfig(t, body))
	requireErrEq(t, err, "config: dispatcher.mqtt.qos must be 0 or 1, got 2")
}

func TestLoad_AcceptsValidChannel(t *testing.T) {
	body := minimalSourceConfig + "dispatcher:\n" +
		"  encryption_enabled: true\n" +
		"  channels:\n" +
		"    - name: ops\n" +
		"      serial_port: /dev/ttyUSB0\n" +
		"      routing: fallback\n" +
		"      psk: c29tZWtleQ==\n"
	cfg, err := Load(writeTempConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Dispatcher.Channels) != 1 {
		t.Fatalf("expected one channel")
	}
	if cfg.Dispatcher.Channels[0].FailoverTimeout != 30*time.Second {
		t.Fatalf("failover_timeout=%s want 30s default", cfg.Dispatcher.Channels[0].FailoverTimeout)
	}
	if cfg.Dispatcher.Channels[0].Routing != "fallback" {
		t.Fatalf("routing=%q want fallback", cfg.Dispatcher.Channels[0].Routing)
	}
}

func TestLoad_DefaultChannelDefaultsToFirst(t *testing.T) {
	body := minimalSourceConfig + "dispatcher:\n  channels:\n    - name: ops\n      serial_port: /dev/ttyUSB0\n"
	cfg, err := Load(writeTempConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Dispatcher.DefaultChannel != "ops" {
		t.Fatalf("default_channel=%q want ops", cfg.Dispatcher.DefaultChannel)
	}
}

func TestLoad_RejectsUnknownDefaultChannel(t *testing.T) {
	body := minimalSourceConfig + "dispatcher:\n  default_channel: nope\n  channels:\n    - name: ops\n      serial_port: /dev/ttyUSB0\n"
	_, err := Load(writeTempConfig(t, body))
	requireErrEq(t, err, `config: dispatcher.default_channel "nope" does not name a configured channel`)
}

func TestWatchlistEntries_Compiles(t *testing.T) {
	body := minimalSourceConfig + "watchlist:\n  entries:\n    - kind: icao_exact\n      value: '4840d6'\n      label: test\n"
	cfg, err := Load(writeTempConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	entries, err := cfg.WatchlistEntries()
	if err != nil {
		t.Fatalf("WatchlistEntries() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Value != "4840D6" {
		t.Fatalf("expected one uppercased icao entry, got %+v", entries)
	}
}

func TestSourceConfigs_Mapping(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, minimalSourceConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	sources := cfg.SourceConfigs()
	if len(sources) != 1 || sources[0].Name != "feed1" {
		t.Fatalf("expected one mapped source config, got %+v", sources)
	}
}

func TestAircraftTrackerConfig_MergesCPRAndTracker(t *testing.T) {
	body := minimalSourceConfig + "cpr:\n  reference_lat: 47.6\n  reference_lon: -122.3\n  has_reference: true\n"
	cfg, err := Load(writeTempConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	tc := cfg.AircraftTrackerConfig()
	if !tc.HasReference || tc.ReferenceLat != 47.6 || tc.ReferenceLon != -122.3 {
		t.Fatalf("expected CPR reference to carry through, got %+v", tc)
	}
	if tc.GlobalCPRWindow == 0 {
		t.Fatalf("expected GlobalCPRWindow to fall back to the aircraft package default")
	}
}

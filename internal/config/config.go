// Package config loads and validates the on-disk YAML configuration for
// sentinel1090: sources, CPR reference, tracker tunables, watchlist +
// throttle, and dispatcher channels (spec §6 Configuration surface).
//
// Structured the way the teacher's config.go is: a single yaml.Unmarshal
// into a tree of plain structs, followed by explicit post-unmarshal
// defaulting and validation (no schema library, no struct tags beyond
// yaml's own).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"sentinel1090/internal/aircraft"
	"sentinel1090/internal/alert"
	"sentinel1090/internal/source"
	"sentinel1090/internal/watchlist"
)

type Config struct {
	Sources    []SourceConfig   `yaml:"sources"`
	CPR        CPRConfig        `yaml:"cpr"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Watchlist  WatchlistConfig  `yaml:"watchlist"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
}

// SourceConfig is one configured feeder (spec §6 "Source" config).
type SourceConfig struct {
	Name                    string        `yaml:"name"`
	Type                    string        `yaml:"type"` // beast_tcp | avr_tcp | json_poll | raw_file
	Address                 string        `yaml:"address"`
	ReconnectBackoffInitial time.Duration `yaml:"reconnect_backoff_initial"`
	ReconnectBackoffMax     time.Duration `yaml:"reconnect_backoff_max"`
	ReadIdleTimeout         time.Duration `yaml:"read_idle_timeout"`
	PollInterval            time.Duration `yaml:"poll_interval"`
}

// CPRConfig is the single-site CPR reference position (spec §6 "CPR"
// config), fed straight into aircraft.Config.
type CPRConfig struct {
	ReferenceLat float64 `yaml:"reference_lat"`
	ReferenceLon float64 `yaml:"reference_lon"`
	HasReference bool    `yaml:"has_reference"`
	LocalRangeNM float64 `yaml:"local_range_nm"`
}

// TrackerConfig is the Tracker's own tunables (spec §6 "Tracker" config).
type TrackerConfig struct {
	AircraftTimeout time.Duration `yaml:"aircraft_timeout"`
	MaxAircraft     int           `yaml:"max_aircraft"`
	PositionTimeout time.Duration `yaml:"position_timeout"`
}

// WatchlistConfig is the entry list plus the throttle limits (spec §6
// "Watchlist: entries and alert_throttle{...}").
type WatchlistConfig struct {
	Entries        []WatchlistEntryConfig `yaml:"entries"`
	MinIntervalSec int                    `yaml:"min_interval_sec"`
	MaxPerHour     int                    `yaml:"max_alerts_per_hour"`
}

type WatchlistEntryConfig struct {
	Kind  string `yaml:"kind"` // icao_exact | icao_prefix | callsign_exact | callsign_regex
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// DispatcherConfig is the channel/mqtt/routing/failover surface (spec §6
// "Dispatcher" config).
type DispatcherConfig struct {
	Channels            []ChannelConfigYAML `yaml:"channels"`
	DefaultChannel      string              `yaml:"default_channel"`
	MQTT                MQTTConfigYAML      `yaml:"mqtt"`
	MaxMessageLength    int                 `yaml:"max_message_length"`
	MessageFormat       string              `yaml:"message_format"`
	EncryptionEnabled   bool                `yaml:"encryption_enabled"`
	MaxAttempts         int                 `yaml:"max_attempts"`
	MessageTTL          time.Duration       `yaml:"message_ttl"`
	HealthCheckInterval time.Duration       `yaml:"health_check_interval"`
}

// ChannelConfigYAML is one outbound alert channel: a name, optional PSK,
// channel number, uplink/downlink flags, routing policy, and interface
// selection.
type ChannelConfigYAML struct {
	Name            string        `yaml:"name"`
	PSKBase64       string        `yaml:"psk"`
	ChannelNumber   byte          `yaml:"channel_number"`
	UplinkEnabled   bool          `yaml:"uplink_enabled"`
	DownlinkEnabled bool          `yaml:"downlink_enabled"`
	Routing         string        `yaml:"routing"` // primary | all | fallback
	SerialPort      string        `yaml:"serial_port"`
	UseMQTT         bool          `yaml:"use_mqtt"`
	FailoverTimeout time.Duration `yaml:"failover_timeout"`
}

type MQTTConfigYAML struct {
	BrokerURL   string `yaml:"broker_url"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TLS         bool   `yaml:"tls"`
	TopicPrefix string `yaml:"topic_prefix"`
	Region      string `yaml:"region"`
	QoS         byte   `yaml:"qos"`
}

// SerialBaudRate is the fixed baud rate used by every serial channel
// interface; not spec-configurable per channel, just per the physical
// gateway link.
const SerialBaudRate = 115200

// Load reads, parses, defaults, and validates a YAML config file.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CPR.LocalRangeNM <= 0 {
		c.CPR.LocalRangeNM = 180
	}

	trackerDefaults := aircraft.DefaultConfig()
	if c.Tracker.AircraftTimeout <= 0 {
		c.Tracker.AircraftTimeout = trackerDefaults.AircraftTimeout
	}
	if c.Tracker.MaxAircraft <= 0 {
		c.Tracker.MaxAircraft = trackerDefaults.MaxAircraft
	}
	if c.Tracker.PositionTimeout <= 0 {
		c.Tracker.PositionTimeout = trackerDefaults.PositionTimeout
	}

	throttleDefaults := alert.DefaultThrottleConfig()
	if c.Watchlist.MinIntervalSec <= 0 {
		c.Watchlist.MinIntervalSec = throttleDefaults.MinIntervalSec
	}
	if c.Watchlist.MaxPerHour <= 0 {
		c.Watchlist.MaxPerHour = throttleDefaults.MaxAlertsPerHour
	}

	if c.Dispatcher.MaxMessageLength <= 0 {
		c.Dispatcher.MaxMessageLength = 200
	}
	if c.Dispatcher.MessageFormat == "" {
		c.Dispatcher.MessageFormat = "decimal"
	}
	if c.Dispatcher.MaxAttempts <= 0 {
		c.Dispatcher.MaxAttempts = 3
	}
	if c.Dispatcher.MessageTTL <= 0 {
		c.Dispatcher.MessageTTL = 300 * time.Second
	}
	if c.Dispatcher.HealthCheckInterval <= 0 {
		c.Dispatcher.HealthCheckInterval = 60 * time.Second
	}

	for i := range c.Sources {
		s := &c.Sources[i]
		if s.ReconnectBackoffInitial <= 0 {
			s.ReconnectBackoffInitial = 500 * time.Millisecond
		}
		if s.ReconnectBackoffMax <= 0 {
			s.ReconnectBackoffMax = 30 * time.Second
		}
		if s.ReadIdleTimeout <= 0 {
			s.ReadIdleTimeout = 60 * time.Second
		}
		if s.PollInterval <= 0 {
			s.PollInterval = 5 * time.Second
		}
	}

	for i := range c.Dispatcher.Channels {
		ch := &c.Dispatcher.Channels[i]
		if ch.Routing == "" {
			ch.Routing = "primary"
		}
		if ch.FailoverTimeout <= 0 {
			ch.FailoverTimeout = 30 * time.Second
		}
	}

	if c.Dispatcher.DefaultChannel == "" && len(c.Dispatcher.Channels) > 0 {
		c.Dispatcher.DefaultChannel = c.Dispatcher.Channels[0].Name
	}
}

func (c *Config) validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("config: at least one source is required")
	}
	seenSourceNames := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("config: source name is required")
		}
		if seenSourceNames[s.Name] {
			return fmt.Errorf("config: duplicate source name %q", s.Name)
		}
		seenSourceNames[s.Name] = true
		switch source.Type(s.Type) {
		case source.TypeBeastTCP, source.TypeAVRTCP, source.TypeJSONPoll, source.TypeRawFile:
		default:
			return fmt.Errorf("config: source %q: unknown type %q", s.Name, s.Type)
		}
		if s.Address == "" {
			return fmt.Errorf("config: source %q: address is required", s.Name)
		}
	}

	if c.Dispatcher.MQTT.QoS > 1 {
		return fmt.Errorf("config: dispatcher.mqtt.qos must be 0 or 1, got %d", c.Dispatcher.MQTT.QoS)
	}

	for _, e := range c.Watchlist.Entries {
		if _, err := watchlistKind(e.Kind); err != nil {
			return fmt.Errorf("config: watchlist entry %q: %w", e.Label, err)
		}
	}

	seenChannelNames := make(map[string]bool, len(c.Dispatcher.Channels))
	for _, ch := range c.Dispatcher.Channels {
		if ch.Name == "" {
			return fmt.Errorf("config: channel name is required")
		}
		if seenChannelNames[ch.Name] {
			return fmt.Errorf("config: duplicate channel name %q", ch.Name)
		}
		seenChannelNames[ch.Name] = true

		switch alert.RoutingPolicy(ch.Routing) {
		case alert.RoutingPrimary, alert.RoutingAll, alert.RoutingFallback:
		default:
			return fmt.Errorf("config: channel %q: unknown routing policy %q", ch.Name, ch.Routing)
		}
		if ch.SerialPort == "" && !ch.UseMQTT {
			return fmt.Errorf("config: channel %q: needs a serial_port, use_mqtt, or both", ch.Name)
		}
		if ch.UseMQTT && c.Dispatcher.MQTT.BrokerURL == "" {
			return fmt.Errorf("config: channel %q: use_mqtt is set but dispatcher.mqtt.broker_url is empty", ch.Name)
		}
		if ch.PSKBase64 != "" && !c.Dispatcher.EncryptionEnabled {
			return fmt.Errorf("config: channel %q: psk is set but dispatcher.encryption_enabled is false", ch.Name)
		}
	}

	if c.Dispatcher.DefaultChannel != "" && !seenChannelNames[c.Dispatcher.DefaultChannel] {
		return fmt.Errorf("config: dispatcher.default_channel %q does not name a configured channel", c.Dispatcher.DefaultChannel)
	}

	return nil
}

func watchlistKind(s string) (watchlist.Kind, error) {
	switch s {
	case "icao_exact":
		return watchlist.ICAOExact, nil
	case "icao_prefix":
		return watchlist.ICAOPrefix, nil
	case "callsign_exact":
		return watchlist.CallsignExact, nil
	case "callsign_regex":
		return watchlist.CallsignRegex, nil
	default:
		return 0, fmt.Errorf("unknown watchlist kind %q", s)
	}
}

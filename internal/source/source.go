// Package source implements the Source Manager (spec §4.1): concurrent,
// self-healing ingestion from heterogeneous feeders (Beast, AVR, JSON poll,
// raw file) normalized into a single RawFrame stream.
//
// Structured the way the teacher's internal/decoder clients are: one
// dedicated goroutine per source, an atomic started/closed latch, a
// mutex-guarded state string, and exponential backoff on reconnect. Unlike
// the teacher's fixed ReconnectDelay, the spec calls for full-jitter
// backoff capped at a configurable maximum, so Manager computes its own
// delay per attempt instead of sleeping a constant interval.
package source

import (
	"time"
)

// Type enumerates the feeder framings the Source Manager understands
// (spec §4.1).
type Type string

const (
	TypeBeastTCP Type = "beast_tcp"
	TypeAVRTCP   Type = "avr_tcp"
	TypeJSONPoll Type = "json_poll"
	TypeRawFile  Type = "raw_file"
)

// Config describes one configured feeder.
type Config struct {
	Name    string
	Type    Type
	Address string // host:port for *_tcp, path for raw_file, URL for json_poll

	ReconnectBackoffInitial time.Duration
	ReconnectBackoffMax     time.Duration
	ReadIdleTimeout         time.Duration

	// PollInterval is used only by json_poll sources.
	PollInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.ReconnectBackoffInitial <= 0 {
		c.ReconnectBackoffInitial = 500 * time.Millisecond
	}
	if c.ReconnectBackoffMax <= 0 {
		c.ReconnectBackoffMax = 30 * time.Second
	}
	if c.ReadIdleTimeout <= 0 {
		c.ReadIdleTimeout = 60 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
}

// RawFrame is the ephemeral unit handed from the Source Manager to the
// Frame Validator (spec §3).
type RawFrame struct {
	Bytes      []byte
	ReceivedAt time.Time
	SourceID   string
}

// JSONAircraft is one element of a json_poll snapshot's aircraft array
// (spec §6 Inbound — JSON snapshot). Fields mirror the documented shape
// field-by-field, following the teacher's dump1090 NDJSON parser's
// pointer-per-optional-field convention so a present-but-zero value (e.g.
// alt_baro: 0) is distinguishable from an absent field.
type JSONAircraft struct {
	Hex    string   `json:"hex"`
	Flight *string  `json:"flight"`
	AltBaro *int    `json:"alt_baro"`
	GS     *float64 `json:"gs"`
	Track  *float64 `json:"track"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Squawk *string  `json:"squawk"`
	Seen   *float64 `json:"seen"`
}

// JSONSnapshot is the top-level object returned by a json_poll feeder.
type JSONSnapshot struct {
	Now      float64        `json:"now"`
	Aircraft []JSONAircraft `json:"aircraft"`
}

// SourceFatal is returned by Manager.AddSource only for
// configuration errors; all runtime errors are recoverable and cause a
// reconnect instead of propagating (spec §4.1, §7).
type SourceFatal struct {
	Name   string
	Reason string
}

func (e *SourceFatal) Error() string {
	return "source: " + e.Name + ": " + e.Reason
}

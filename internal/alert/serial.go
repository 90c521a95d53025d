package alert

import (
	"fmt"
	"sync"

	"go.bug.st/serial"

	"sentinel1090/internal/radio"
)

// SerialConfig names one local serial delivery interface (spec §3 Channel
// Interface "serial").
type SerialConfig struct {
	Port         string
	BaudRate     int
	ChannelIndex byte
	PSKReference byte
}

// SerialInterface frames a payload with the radio packet format and writes
// it to a local serial port, the same Open/Write shape the banshee radar
// port uses, generalized from a 1-shot command port into a send-only
// delivery interface.
type SerialInterface struct {
	cfg SerialConfig

	mu   sync.Mutex
	port serial.Port
}

func NewSerialInterface(cfg SerialConfig) *SerialInterface {
	return &SerialInterface{cfg: cfg}
}

// Connect opens the serial port if it isn't already open.
func (s *SerialInterface) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	mode := &serial.Mode{BaudRate: s.cfg.BaudRate}
	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("alert: open serial port %s: %w", s.cfg.Port, err)
	}
	s.port = port
	return nil
}

// Send frames payload per internal/radio and writes it to the port,
// reconnecting first if the port was never opened or was torn down by a
// prior failure.
func (s *SerialInterface) Send(payload []byte) error {
	if err := s.Connect(); err != nil {
		return err
	}

	frame, err := radio.Frame(radio.Packet{
		ChannelIndex: s.cfg.ChannelIndex,
		PSKReference: s.cfg.PSKReference,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("alert: frame payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.port.Write(frame); err != nil {
		s.port.Close()
		s.port = nil
		return fmt.Errorf("alert: write serial frame: %w", err)
	}
	return nil
}

// Healthy probes interface health the way the dispatcher's state machine
// requires (spec §5): a closed port is unhealthy, an open one is assumed
// healthy until a write fails.
func (s *SerialInterface) Healthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *SerialInterface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

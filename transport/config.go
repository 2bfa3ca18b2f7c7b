// Package transport implements the Ethernet front end package xcp drives
// its protocol glue from: UDP and TCP framing of XCP CTO (command) and DTO
// (data) packets, a DTO send queue per connected tool, and a minimal command
// decoder covering the subset of commands the orchestrator understands
// natively. Decoding any command outside that subset is a documented
// callback surface (UnknownCommandHandler.Unknown) left to an external collaborator,
// matching the "wire-format compliance of every XCP command" Non-goal.
package transport

import (
	"errors"
	"time"
)

// range bounds for Config fields, loosely mirroring the scale of the
// IEC 60870-5-104 timeout/queue bounds this package's framing style is
// grounded on (cs104.Config), rechosen for XCP's local-network, high-rate
// measurement traffic rather than WAN telecontrol links.
const (
	CommandTimeoutMin = 1 * time.Millisecond
	CommandTimeoutMax = 60 * time.Second

	FlushIntervalMin = 1 * time.Millisecond
	FlushIntervalMax = 10 * time.Second

	QueueSizeMin = 1
	QueueSizeMax = 1 << 20

	MaxSegmentSizeMin = HeaderSize + 1
	MaxSegmentSizeMax = 1 << 16
)

// Config configures one transport Server. The zero value is invalid; call
// Valid to apply defaults for every unspecified field, the same contract as
// cs104.Config.
type Config struct {
	// CommandTimeout is range-checked and defaulted by Valid. Server and its
	// sessions do not read it: no command round trip is timed out and no
	// session is dropped for a slow command.
	CommandTimeout time.Duration

	// FlushInterval is the period at which the command handler's Flush is
	// called (by each session over TCP, once for the whole server over
	// UDP), publishing delayed calibration writes.
	FlushInterval time.Duration

	// QueueSize bounds the number of DTO frames buffered per session
	// before Sample starts dropping the newest frame.
	QueueSize int

	// MaxSegmentSize bounds a single CTO/DTO frame's encoded size,
	// including the HeaderSize-byte header.
	MaxSegmentSize uint16
}

// Valid applies the default for each unspecified field and rejects values
// outside their bounds, the same contract as cs104.Config.Valid.
func (c *Config) Valid() error {
	if c == nil {
		return errors.New("transport: nil config")
	}

	if c.CommandTimeout == 0 {
		c.CommandTimeout = 5 * time.Second
	} else if c.CommandTimeout < CommandTimeoutMin || c.CommandTimeout > CommandTimeoutMax {
		return errors.New("transport: CommandTimeout out of range")
	}

	if c.FlushInterval == 0 {
		c.FlushInterval = 100 * time.Millisecond
	} else if c.FlushInterval < FlushIntervalMin || c.FlushInterval > FlushIntervalMax {
		return errors.New("transport: FlushInterval out of range")
	}

	if c.QueueSize == 0 {
		c.QueueSize = 4096
	} else if c.QueueSize < QueueSizeMin || c.QueueSize > QueueSizeMax {
		return errors.New("transport: QueueSize out of range")
	}

	if c.MaxSegmentSize == 0 {
		c.MaxSegmentSize = 1400
	} else if c.MaxSegmentSize < MaxSegmentSizeMin || int(c.MaxSegmentSize) > MaxSegmentSizeMax {
		return errors.New("transport: MaxSegmentSize out of range")
	}

	return nil
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() Config {
	return Config{
		CommandTimeout: 5 * time.Second,
		FlushInterval:  100 * time.Millisecond,
		QueueSize:      4096,
		MaxSegmentSize: 1400,
	}
}

// Package version implements station protocol version negotiation.
package version

import (
	"fmt"
	"strconv"
)

// Current is the gateway software version.
const Current = "1.0"

// ServerMax is the highest station protocol version the gateway speaks.
const ServerMax Protocol = 17

// Protocol is a station protocol version.
type Protocol uint8

// Parse parses a decimal protocol version, e.g. from configuration.
func Parse(s string) (Protocol, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid protocol version %q: empty", s)
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid protocol version %q: %w", s, err)
	}
	if Protocol(n) > ServerMax {
		return 0, fmt.Errorf("invalid protocol version %q: above %d", s, ServerMax)
	}
	return Protocol(n), nil
}

// Negotiate picks the version for a registering station. Legacy register
// bodies predate version negotiation and always get version 0. limit caps the
// result below ServerMax when non-zero.
func Negotiate(requested uint8, legacy bool, limit Protocol) Protocol {
	if legacy {
		return 0
	}
	top := ServerMax
	if limit > 0 && limit < top {
		top = limit
	}
	return min(Protocol(requested), top)
}

// Features returns the three feature bytes sent in RegisterAck.
func (p Protocol) Features() [3]uint8 {
	switch {
	case p <= 3:
		return [3]uint8{0x00, 0x00, 0x00}
	case p <= 10:
		return [3]uint8{0x20, 0x00, 0xFE}
	default:
		return [3]uint8{0x20, 0xF1, 0xFF}
	}
}

// String returns the version as a decimal string.
func (p Protocol) String() string {
	return strconv.Itoa(int(p))
}

// Compatible reports whether a station at version p understands messages
// introduced at version since.
func (p Protocol) Compatible(since Protocol) bool {
	return p >= since
}

package discovery

import (
	"errors"
	"time"
)

const (
	// ServiceType is the DNS-SD service type of a gateway.
	ServiceType = "_sccp._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the station listener port.
	DefaultPort = 2000

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// DefaultTTL is the record TTL.
	DefaultTTL = 120 * time.Second
)

// TXT record keys.
const (
	TXTVersion  = "ver"
	TXTProtocol = "pv"
	TXTFraming  = "fr"
)

var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotAdvertising      = errors.New("not advertising")
)

// GatewayInfo is what the gateway publishes.
type GatewayInfo struct {
	Name     string
	Port     uint16
	Version  string
	Protocol uint8
	Framing  string
}

// GatewayService is a gateway found by browsing.
type GatewayService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	Info         GatewayInfo
}

// TXTRecordMap is a TXT record set keyed by name.
type TXTRecordMap map[string]string

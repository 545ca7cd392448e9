// Package discovery advertises the gateway over mDNS/DNS-SD.
//
// The gateway registers one _sccp._tcp service whose instance name is the
// configured gateway name. TXT records carry:
//
//	ver  gateway software version
//	pv   highest station protocol version
//	fr   framing ("plain" or "header-version")
//
// Provisioning tools browse for the service to find the listener port.
package discovery

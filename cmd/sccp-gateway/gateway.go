package main

import (
	"net"
	"strconv"

	"github.com/sccp-protocol/sccp-go/pkg/config"
	"github.com/sccp-protocol/sccp-go/pkg/discovery"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/service"
	"github.com/sccp-protocol/sccp-go/pkg/version"
)

// gatewayVersion is published in the mDNS TXT record.
const gatewayVersion = "1.0"

// applyOverrides applies command line flags on top of the file.
func applyOverrides(cfg *config.Config, o Options) {
	if o.Listen != "" {
		cfg.Gateway.Bind = o.Listen
	}
	if o.TraceFile != "" {
		cfg.Gateway.TraceFile = o.TraceFile
	}
	if o.MetricsAddr != "" {
		cfg.Gateway.MetricsAddr = o.MetricsAddr
	}
}

// serviceConfig maps the configuration file onto the gateway settings.
func serviceConfig(cfg *config.Config, reg *registry.Registry) (service.Config, error) {
	codec, err := cfg.Codec()
	if err != nil {
		return service.Config{}, err
	}
	sc := service.DefaultConfig()
	sc.Address = cfg.Gateway.Bind
	sc.Codec = codec
	sc.Registry = reg
	sc.ACL = cfg.ACL()
	sc.LocalNets = cfg.LocalNets()
	sc.KeepAlive = cfg.Gateway.KeepAlive
	sc.SecondaryKeepAlive = cfg.Gateway.SecondaryKeepAlive
	sc.DateTemplate = cfg.Gateway.DateFormat
	sc.MaxProtocol = version.Protocol(cfg.Gateway.MaxProtocol)
	sc.RestartInterval = cfg.Gateway.RestartInterval
	sc.DialTimer = cfg.DialTimer()
	sc.Features = cfg.Features
	sc.StopGrace = cfg.Gateway.StopGrace
	if cfg.Gateway.MDNSName != "" {
		sc.ServerName = cfg.Gateway.MDNSName
	}
	return sc, nil
}

// gatewayInfo describes the running listener for mDNS.
func gatewayInfo(cfg *config.Config, gw *service.Gateway) *discovery.GatewayInfo {
	info := &discovery.GatewayInfo{
		Name:     cfg.Gateway.MDNSName,
		Port:     discovery.DefaultPort,
		Version:  gatewayVersion,
		Protocol: uint8(version.ServerMax),
		Framing:  cfg.Gateway.Framing,
	}
	if cfg.Gateway.MaxProtocol != 0 {
		info.Protocol = cfg.Gateway.MaxProtocol
	}
	if info.Framing == "" {
		info.Framing = "plain"
	}
	if addr := gw.Addr(); addr != nil {
		if _, port, err := net.SplitHostPort(addr.String()); err == nil {
			if p, err := strconv.ParseUint(port, 10, 16); err == nil {
				info.Port = uint16(p)
			}
		}
	}
	return info
}

package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// server is the part of *zeroconf.Server the advertiser uses.
type server interface {
	SetText(text []string)
	Shutdown()
}

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (server, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface, opts ...zeroconf.ServerOption) (server, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces, opts...)
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	TTL time.Duration

	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}

// Advertiser publishes the gateway service.
type Advertiser struct {
	config   AdvertiserConfig
	logger   *slog.Logger
	register registerFunc

	mu     sync.Mutex
	server server
}

// NewAdvertiser creates an mDNS advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	a := &Advertiser{config: config, logger: config.Logger, register: zeroconfRegister}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	return a
}

func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		a.logger.Warn("mdns interface not found, using all", "interface", a.config.Interface, "err", err)
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts publishing info, replacing an earlier advertisement.
func (a *Advertiser) Advertise(info *GatewayInfo) error {
	if err := ValidateInstanceName(info.Name); err != nil {
		return err
	}
	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	srv, err := a.register(info.Name, ServiceType, Domain, port, TXTRecordsToStrings(EncodeGatewayTXT(info)), a.interfaces(), opts...)
	if err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceType, err)
	}
	a.server = srv
	a.logger.Info("mdns advertising", "name", info.Name, "port", port)
	return nil
}

// Update replaces the TXT records of the running advertisement.
func (a *Advertiser) Update(info *GatewayInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return ErrNotAdvertising
	}
	a.server.SetText(TXTRecordsToStrings(EncodeGatewayTXT(info)))
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Run advertises info until ctx is cancelled.
func (a *Advertiser) Run(ctx context.Context, info *GatewayInfo) error {
	if err := a.Advertise(info); err != nil {
		return err
	}
	<-ctx.Done()
	a.Stop()
	return nil
}

// Browse reports gateways until ctx is cancelled. Entries with unreadable
// TXT records are skipped.
func Browse(ctx context.Context, iface string, found func(GatewayService)) error {
	var opts []zeroconf.ClientOption
	if iface != "" {
		if i, err := net.InterfaceByName(iface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*i}))
		}
	}

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if svc, ok := entryToGateway(entry); ok {
					found(svc)
				}
			case <-removed:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...); err != nil {
		return err
	}
	<-done
	return nil
}

func entryToGateway(entry *zeroconf.ServiceEntry) (GatewayService, bool) {
	info, err := DecodeGatewayTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return GatewayService{}, false
	}
	info.Name = entry.Instance
	info.Port = uint16(entry.Port)

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return GatewayService{
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
		Info:         *info,
	}, true
}

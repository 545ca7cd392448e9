// Package service runs the SCCP gateway: it accepts station sessions and
// routes their messages to registration, call control and feature dispatch.
//
// # Gateway
//
// Gateway owns the listener, the keepalive sweeper and one worker per device.
// Every message of a registered station, every router report for one of its
// calls, busy lamp updates it subscribed to and its digit timer expiries run
// on that device's worker, one at a time and in arrival order. A panic in a
// handler is recovered on the worker and logged; the session stays up.
//
// Example usage:
//
//	reg := registry.New()
//	// add devices and lines from configuration
//
//	cfg := service.DefaultConfig()
//	cfg.Registry = reg
//	cfg.Logger = slog.Default()
//
//	gw, err := service.NewGateway(cfg)
//	if err != nil {
//		return err
//	}
//	if err := gw.Start(ctx); err != nil {
//		return err
//	}
//	defer gw.Stop()
//
// # Call routing
//
// Without a configured pbx.Router the gateway routes calls between its own
// lines through a pbx.LocalRouter, which also exchanges RTP addresses
// between the two legs. An external router reports back through the
// pbx.Calls methods of Gateway.
//
// # Management
//
// Snapshot, RestartDevice and DisplayMessage serve operator tools such as
// the console of cmd/sccp-gateway.
package service

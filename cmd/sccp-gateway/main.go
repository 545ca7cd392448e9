// Command sccp-gateway runs the SCCP station gateway.
//
// It loads the YAML configuration, registers the configured devices and
// lines, and serves Skinny stations until interrupted. Calls between the
// configured lines are bridged locally.
//
// Usage:
//
//	sccp-gateway [flags]
//
// Flags:
//
//	-config string      Configuration file path
//	-listen string      Listen address, overrides gateway.bind
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-trace string       Protocol trace file, overrides gateway.trace_file
//	-metrics string     Metrics listen address, overrides gateway.metrics_addr
//	-interactive        Start the operator console
//
// Examples:
//
//	# Serve the phones of a config file
//	sccp-gateway -config /etc/sccp/gateway.yaml
//
//	# Debug session with a protocol trace and the console
//	sccp-gateway -config gateway.yaml -log-level debug -trace gw.trace -interactive
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sccp-protocol/sccp-go/cmd/sccp-gateway/console"
	"github.com/sccp-protocol/sccp-go/pkg/config"
	"github.com/sccp-protocol/sccp-go/pkg/discovery"
	sccplog "github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/metrics"
	"github.com/sccp-protocol/sccp-go/pkg/persistence"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/service"
)

// Options holds the command line flags.
type Options struct {
	ConfigFile  string
	Listen      string
	LogLevel    string
	TraceFile   string
	MetricsAddr string
	Interactive bool
}

var opts Options

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&opts.Listen, "listen", "", "Listen address (overrides gateway.bind)")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&opts.TraceFile, "trace", "", "Protocol trace file (overrides gateway.trace_file)")
	flag.StringVar(&opts.MetricsAddr, "metrics", "", "Metrics listen address (overrides gateway.metrics_addr)")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Start the operator console")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}
	applyOverrides(cfg, opts)

	reg := registry.New()
	if err := cfg.Populate(reg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("SCCP Gateway: %d devices, %d lines", len(reg.Devices()), len(reg.Lines()))

	var con *console.Console
	var out io.Writer = os.Stderr
	if opts.Interactive {
		var err error
		if con, err = console.New(); err != nil {
			log.Fatalf("Failed to start console: %v", err)
		}
		out = con.Stdout()
		log.SetOutput(out)
	}
	logger := newLogger(out, opts.LogLevel)

	svcConfig, err := serviceConfig(cfg, reg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	svcConfig.Logger = logger

	m := metrics.New()
	svcConfig.Metrics = m

	if path := cfg.Gateway.TraceFile; path != "" {
		var traceOpts []sccplog.FileOption
		if cfg.Gateway.TraceSkipKeepAlives {
			traceOpts = append(traceOpts, sccplog.SkipKeepAlives())
		}
		fl, err := sccplog.NewFileLogger(path, traceOpts...)
		if err != nil {
			log.Fatalf("Failed to open trace file: %v", err)
		}
		defer func() {
			fl.Close()
			st := fl.Stats()
			log.Printf("Protocol trace closed: %d events, %d keepalives skipped, %d dropped", st.Written, st.KeepAlives, st.Dropped)
		}()
		svcConfig.Trace = fl
		log.Printf("Protocol trace: %s", path)
	}

	if path := cfg.Gateway.SettingsFile; path != "" {
		store := persistence.NewSettingsStore(path)
		if err := store.Load(); err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
		svcConfig.Settings = store
	}

	gw, err := service.NewGateway(svcConfig)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gw.Start(ctx); err != nil {
		log.Fatalf("Failed to start gateway: %v", err)
	}
	log.Printf("Listening on %s", gw.Addr())

	if addr := cfg.Gateway.MetricsAddr; addr != "" {
		srv, err := metrics.Listen(addr, m)
		if err != nil {
			log.Printf("Warning: metrics disabled: %v", err)
		} else {
			gw.Go("metrics", srv.Serve)
			log.Printf("Metrics on http://%s/metrics", srv.Addr())
		}
	}

	if cfg.Gateway.MDNS {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{TTL: discovery.DefaultTTL, Logger: logger})
		info := gatewayInfo(cfg, gw)
		gw.Go("mdns", func(ctx context.Context) error {
			if err := adv.Run(ctx, info); err != nil {
				logger.Warn("mdns advertising failed", "err", err)
			}
			return nil
		})
	}

	if con != nil {
		go con.Run(ctx, cancel, gw, gw.Features())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	case <-gw.Done():
		log.Println("Gateway stopped unexpectedly")
	}

	log.Println("Shutting down...")
	if err := gw.Stop(); err != nil {
		log.Printf("Error stopping gateway: %v", err)
	}
	reg.Shutdown()
	log.Println("Goodbye!")
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

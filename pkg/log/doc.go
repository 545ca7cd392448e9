// Package log provides the protocol trace of the gateway.
//
// The trace is separate from operational logging (slog): it records every
// frame, decoded message, state change and error per station session as a
// machine-readable event stream.
//
//	// Console during development.
//	cfg.TraceLogger = log.NewSlogAdapter(slog.Default())
//
//	// Trace file for later analysis with sccp-log.
//	fl, _ := log.NewFileLogger("/var/log/sccp/gateway.strace")
//	cfg.TraceLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// Trace files are sequences of CBOR-encoded Events with integer keys.
package log

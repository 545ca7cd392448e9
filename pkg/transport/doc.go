// Package transport manages station connections.
//
// Each TCP connection is a Session with its own receive accumulator. The
// Server runs one read goroutine per session on the runtime netpoller;
// decoded messages are handed to OnMessage in stream order. A read or
// write failure closes the session immediately: the station reconnects on
// its own.
//
// # Liveness
//
// A station sends KeepAlive within its negotiated interval. The Sweeper
// closes sessions that stay silent beyond keepalive + grace (10s).
//
// # Tracing
//
// Frames, decoded messages and session state changes are emitted to the
// configured log.Logger.
package transport

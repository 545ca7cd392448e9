// Package metrics exposes gateway counters to Prometheus.
//
// Metrics implements log.Logger: attached to the protocol trace it counts
// messages by kind and direction, session lifecycle, registration and
// channel transitions, and errors. Gauges for live sessions, registered
// devices and channels are sampled at scrape time.
package metrics

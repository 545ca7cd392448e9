package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sccp-protocol/sccp-go/pkg/log"
)

const namespace = "sccp"

// Metrics holds the gateway collectors.
type Metrics struct {
	registry *prometheus.Registry

	Messages           *prometheus.CounterVec
	SessionsOpened     prometheus.Counter
	SessionsClosed     *prometheus.CounterVec
	Registrations      *prometheus.CounterVec
	ChannelStates      *prometheus.CounterVec
	Errors             *prometheus.CounterVec
	HandlerDuration    *prometheus.HistogramVec
	HandlerPanics      prometheus.Counter
	RestartsSuppressed prometheus.Counter
}

// New creates the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wire",
				Name:      "messages_total",
				Help:      "Station messages by direction and kind",
			},
			[]string{"direction", "kind"},
		),

		SessionsOpened: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "opened_total",
				Help:      "Station connections accepted",
			},
		),

		SessionsClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "closed_total",
				Help:      "Station connections closed by reason",
			},
			[]string{"reason"},
		),

		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registration",
				Name:      "transitions_total",
				Help:      "Registration state changes by new state",
			},
			[]string{"state"},
		),

		ChannelStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "channel",
				Name:      "transitions_total",
				Help:      "Channel state changes by new state",
			},
			[]string{"state"},
		),

		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Errors by layer",
			},
			[]string{"layer"},
		),

		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "handler",
				Name:      "duration_seconds",
				Help:      "Time spent handling a station message",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"kind"},
		),

		HandlerPanics: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "handler",
				Name:      "panics_total",
				Help:      "Recovered panics in message handlers",
			},
		),

		RestartsSuppressed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "registration",
				Name:      "restarts_suppressed_total",
				Help:      "Restart instructions withheld by the per-address throttle",
			},
		),
	}

	m.registry.MustRegister(
		m.Messages,
		m.SessionsOpened,
		m.SessionsClosed,
		m.Registrations,
		m.ChannelStates,
		m.Errors,
		m.HandlerDuration,
		m.HandlerPanics,
		m.RestartsSuppressed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the Prometheus registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// AddGauge registers a gauge sampled from fn at scrape time.
func (m *Metrics) AddGauge(subsystem, name, help string, fn func() float64) error {
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		fn,
	))
}

// Log counts a trace event.
func (m *Metrics) Log(e log.Event) {
	if m == nil {
		return
	}
	switch {
	case e.Message != nil && e.Layer == log.LayerWire:
		m.Messages.WithLabelValues(strings.ToLower(e.Direction.String()), e.Message.Name).Inc()
	case e.StateChange != nil:
		m.stateChange(e.StateChange)
	case e.Error != nil:
		m.Errors.WithLabelValues(strings.ToLower(e.Error.Layer.String())).Inc()
	}
}

func (m *Metrics) stateChange(sc *log.StateChangeEvent) {
	switch sc.Entity {
	case log.StateEntitySession:
		if sc.NewState == log.SessionConnected {
			m.SessionsOpened.Inc()
		} else if reason, ok := strings.CutPrefix(sc.NewState, log.SessionClosed+": "); ok {
			m.SessionsClosed.WithLabelValues(reason).Inc()
		}
	case log.StateEntityRegistration:
		m.Registrations.WithLabelValues(sc.NewState).Inc()
	case log.StateEntityChannel:
		m.ChannelStates.WithLabelValues(sc.NewState).Inc()
	}
}

// ObserveHandler records how long a message handler ran.
func (m *Metrics) ObserveHandler(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.HandlerDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordPanic counts a recovered handler panic.
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.HandlerPanics.Inc()
}

// RecordRestartSuppressed counts a throttled restart instruction.
func (m *Metrics) RecordRestartSuppressed() {
	if m == nil {
		return
	}
	m.RestartsSuppressed.Inc()
}

var _ log.Logger = (*Metrics)(nil)

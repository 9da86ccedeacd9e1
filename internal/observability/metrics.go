package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionCollector bundles Prometheus metrics for the session driver and
// satisfies the session layer's Metrics interface.
type SessionCollector struct {
	gatherer prometheus.Gatherer

	Steps         prometheus.Counter
	CatchupAborts prometheus.Counter
	FrameDuration prometheus.Histogram
	ActivePlayers prometheus.Gauge
	Sessions      *prometheus.CounterVec
	SessionsEnded *prometheus.CounterVec
}

// NewSessionCollector registers session Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewSessionCollector(reg prometheus.Registerer) (*SessionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_steps_total",
		Help: "Total number of fixed simulation steps applied.",
	}), "session_steps_total")
	if err != nil {
		return nil, err
	}

	aborts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_catchup_aborts_total",
		Help: "Total number of catch-up bursts aborted for overrunning their wall-clock budget.",
	}), "session_catchup_aborts_total")
	if err != nil {
		return nil, err
	}

	frames, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_frame_duration_seconds",
		Help:    "Driver frame latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0167, 0.025, 0.05, 0.1},
	}), "session_frame_duration_seconds")
	if err != nil {
		return nil, err
	}

	players, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "session_active_players",
		Help: "Current number of active player slots in the input table.",
	}), "session_active_players")
	if err != nil {
		return nil, err
	}

	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sessions_started_total",
		Help: "Total sessions started, labeled by execution mode.",
	}, []string{"mode"})
	sessions, err = registerCounterVec(reg, sessions, "sessions_started_total")
	if err != nil {
		return nil, err
	}

	ended := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sessions_ended_total",
		Help: "Total sessions ended, labeled by reason.",
	}, []string{"reason"})
	ended, err = registerCounterVec(reg, ended, "sessions_ended_total")
	if err != nil {
		return nil, err
	}

	return &SessionCollector{
		gatherer:      gatherer,
		Steps:         steps,
		CatchupAborts: aborts,
		FrameDuration: frames,
		ActivePlayers: players,
		Sessions:      sessions,
		SessionsEnded: ended,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SessionCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// StepAdvanced satisfies the session Metrics interface.
func (c *SessionCollector) StepAdvanced() {
	if c == nil || c.Steps == nil {
		return
	}
	c.Steps.Inc()
}

// CatchupAborted satisfies the session Metrics interface.
func (c *SessionCollector) CatchupAborted() {
	if c == nil || c.CatchupAborts == nil {
		return
	}
	c.CatchupAborts.Inc()
}

// ObserveFrame satisfies the session Metrics interface.
func (c *SessionCollector) ObserveFrame(seconds float64) {
	if c == nil || c.FrameDuration == nil {
		return
	}
	c.FrameDuration.Observe(seconds)
}

// SetActivePlayers satisfies the session Metrics interface.
func (c *SessionCollector) SetActivePlayers(n int) {
	if c == nil || c.ActivePlayers == nil {
		return
	}
	c.ActivePlayers.Set(float64(n))
}

// SessionStarted satisfies the session Metrics interface.
func (c *SessionCollector) SessionStarted(mode string) {
	if c == nil || c.Sessions == nil {
		return
	}
	c.Sessions.WithLabelValues(mode).Inc()
}

// SessionEnded satisfies the session Metrics interface.
func (c *SessionCollector) SessionEnded(reason string) {
	if c == nil || c.SessionsEnded == nil {
		return
	}
	c.SessionsEnded.WithLabelValues(reason).Inc()
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

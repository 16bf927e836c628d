package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/kite-simulator/core"
)

// SimCollector bundles Prometheus metrics for the physics step pipeline
// and implements core.MetricsRecorder so the engine can drive it directly.
type SimCollector struct {
	gatherer prometheus.Gatherer

	StepDuration    prometheus.Histogram
	SolveIterations *prometheus.HistogramVec
	SolveDiverged   *prometheus.CounterVec
	LineTension     *prometheus.GaugeVec
	SlackBridles    *prometheus.CounterVec
	RejectedSteps   prometheus.Counter
	GroundContacts  prometheus.Counter
	Altitude        prometheus.Gauge
	Speed           prometheus.Gauge
	ApparentWind    prometheus.Gauge
}

// NewSimCollector registers the simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	stepDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock duration of one physics step.",
		Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
	}), "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	solveIterations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_solver_iterations",
		Help:    "Constraint solver iterations per control-point resolution, labeled by line side.",
		Buckets: []float64{1, 2, 3, 5, 10, 15, 20},
	}, []string{"side"})
	solveIterations, err = registerHistogramVec(reg, solveIterations, "sim_solver_iterations")
	if err != nil {
		return nil, err
	}

	solveDiverged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_solver_unconverged_total",
		Help: "Control-point resolutions that ended above tolerance, labeled by line side.",
	}, []string{"side"})
	solveDiverged, err = registerCounterVec(reg, solveDiverged, "sim_solver_unconverged_total")
	if err != nil {
		return nil, err
	}

	lineTension := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_line_tension_newtons",
		Help: "Smoothed line tension, labeled by line side.",
	}, []string{"side"})
	lineTension, err = registerGaugeVec(reg, lineTension, "sim_line_tension_newtons")
	if err != nil {
		return nil, err
	}

	slackBridles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_slack_bridles_total",
		Help: "Bridle tensions clamped to zero after solving negative, labeled by line side.",
	}, []string{"side"})
	slackBridles, err = registerCounterVec(reg, slackBridles, "sim_slack_bridles_total")
	if err != nil {
		return nil, err
	}

	rejectedSteps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_rejected_steps_total",
		Help: "Predicted states discarded for containing non-finite values.",
	}), "sim_rejected_steps_total")
	if err != nil {
		return nil, err
	}

	groundContacts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ground_contacts_total",
		Help: "Steps in which the ground clamp fired.",
	}), "sim_ground_contacts_total")
	if err != nil {
		return nil, err
	}

	altitude, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_body_altitude_meters",
		Help: "Current altitude of the body's centre of mass.",
	}), "sim_body_altitude_meters")
	if err != nil {
		return nil, err
	}
	speed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_body_speed_mps",
		Help: "Current speed of the body's centre of mass.",
	}), "sim_body_speed_mps")
	if err != nil {
		return nil, err
	}
	apparentWind, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_apparent_wind_mps",
		Help: "Current apparent wind speed seen by the body.",
	}), "sim_apparent_wind_mps")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:        gatherer,
		StepDuration:    stepDuration,
		SolveIterations: solveIterations,
		SolveDiverged:   solveDiverged,
		LineTension:     lineTension,
		SlackBridles:    slackBridles,
		RejectedSteps:   rejectedSteps,
		GroundContacts:  groundContacts,
		Altitude:        altitude,
		Speed:           speed,
		ApparentWind:    apparentWind,
	}, nil
}

// RecordStep satisfies core.MetricsRecorder.
func (c *SimCollector) RecordStep(duration time.Duration, snap *core.Snapshot) {
	if c == nil {
		return
	}
	if c.StepDuration != nil {
		c.StepDuration.Observe(duration.Seconds())
	}
	if snap == nil {
		return
	}
	if c.LineTension != nil {
		c.LineTension.WithLabelValues("left").Set(snap.Lines.LeftTension)
		c.LineTension.WithLabelValues("right").Set(snap.Lines.RightTension)
	}
	if c.Altitude != nil {
		c.Altitude.Set(snap.State.Position.Y)
	}
	if c.Speed != nil {
		c.Speed.Set(snap.State.Velocity.Norm())
	}
	if c.ApparentWind != nil {
		c.ApparentWind.Set(snap.Aero.ApparentWind.Norm())
	}
}

// RecordSolve satisfies core.MetricsRecorder.
func (c *SimCollector) RecordSolve(side string, iterations int, converged bool) {
	if c == nil {
		return
	}
	if c.SolveIterations != nil {
		c.SolveIterations.WithLabelValues(side).Observe(float64(iterations))
	}
	if !converged && c.SolveDiverged != nil {
		c.SolveDiverged.WithLabelValues(side).Inc()
	}
}

// RecordRejectedStep satisfies core.MetricsRecorder.
func (c *SimCollector) RecordRejectedStep() {
	if c == nil || c.RejectedSteps == nil {
		return
	}
	c.RejectedSteps.Inc()
}

// RecordSlackBridle satisfies core.MetricsRecorder.
func (c *SimCollector) RecordSlackBridle(side string, count int) {
	if c == nil || c.SlackBridles == nil {
		return
	}
	c.SlackBridles.WithLabelValues(side).Add(float64(count))
}

// RecordGroundContact satisfies core.MetricsRecorder.
func (c *SimCollector) RecordGroundContact() {
	if c == nil || c.GroundContacts == nil {
		return
	}
	c.GroundContacts.Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
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

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
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

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

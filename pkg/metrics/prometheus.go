package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions      *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	gateVotes      *prometheus.CounterVec
	noOps          *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	tickLatency    prometheus.Histogram
	validationRuns *prometheus.CounterVec
	intakeDepth    prometheus.Gauge
	fillLatency    prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepipe_decisions_total",
				Help: "Decision outcomes per ticker and action",
			},
			[]string{"ticker", "action"},
		),
		rejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepipe_risk_rejections_total",
				Help: "Risk rejections per ticker and named reason",
			},
			[]string{"ticker", "reason"},
		),
		gateVotes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepipe_gate_votes_total",
				Help: "Gate votes per gate and vote kind",
			},
			[]string{"gate", "vote"},
		),
		noOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepipe_sizing_noops_total",
				Help: "Approved decisions sized to zero notional",
			},
			[]string{"ticker"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepipe_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		tickLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradepipe_tick_duration_seconds",
				Help:    "Duration of one full decision tick in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		validationRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepipe_validation_runs_total",
				Help: "Walk-forward validation runs per verdict",
			},
			[]string{"verdict"},
		),
		intakeDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradepipe_intake_buffer_depth",
				Help: "Signals waiting in the intake retry buffer",
			},
		),
		fillLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tradepipe_fill_ingest_seconds",
				Help:    "Lag from fill time at the venue to portfolio apply",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}
}

// RecordDecision counts one per-ticker pipeline outcome.
func (r *Recorder) RecordDecision(ticker, action string) {
	r.decisions.WithLabelValues(ticker, action).Inc()
}

// RecordRejection counts a risk rejection under its named reason.
func (r *Recorder) RecordRejection(ticker, reason string) {
	r.rejections.WithLabelValues(ticker, reason).Inc()
}

// RecordGateVote counts one gate vote.
func (r *Recorder) RecordGateVote(gate, vote string) {
	r.gateVotes.WithLabelValues(gate, vote).Inc()
}

// RecordNoOp counts an approved decision that sized to nothing.
func (r *Recorder) RecordNoOp(ticker string) {
	r.noOps.WithLabelValues(ticker).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordTickLatency records one decision tick's duration in seconds.
func (r *Recorder) RecordTickLatency(seconds float64) {
	r.tickLatency.Observe(seconds)
}

// RecordValidationRun counts a finished walk-forward run by verdict.
func (r *Recorder) RecordValidationRun(verdict string) {
	r.validationRuns.WithLabelValues(verdict).Inc()
}

// RecordIntakeDepth sets the current intake retry buffer depth.
func (r *Recorder) RecordIntakeDepth(n int) {
	r.intakeDepth.Set(float64(n))
}

// RecordFillLatency records the venue-to-portfolio lag of one fill.
func (r *Recorder) RecordFillLatency(seconds float64) {
	r.fillLatency.Observe(seconds)
}

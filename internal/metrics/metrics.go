package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	filesParsed   *prometheus.CounterVec
	symbols       *prometheus.CounterVec
	oracleCalls   *prometheus.CounterVec
	oracleLatency prometheus.Histogram
	decisions     *prometheus.CounterVec
	applies       *prometheus.CounterVec
	backups       prometheus.Counter
	rollbacks     prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		filesParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docfill_files_parsed_total",
			Help: "Files parsed, by language and outcome",
		}, []string{"language", "outcome"}),
		symbols: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docfill_symbols_extracted_total",
			Help: "Symbols extracted, by language and documentation state",
		}, []string{"language", "documented"}),
		oracleCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docfill_oracle_calls_total",
			Help: "Documentation requests, by outcome",
		}, []string{"outcome"}),
		oracleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docfill_oracle_call_duration_seconds",
			Help:    "Time to obtain documentation for one symbol",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docfill_preview_decisions_total",
			Help: "Preview decisions, by decision",
		}, []string{"decision"}),
		applies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docfill_file_applies_total",
			Help: "File mutations, by final state",
		}, []string{"state"}),
		backups: factory.NewCounter(prometheus.CounterOpts{
			Name: "docfill_backups_created_total",
			Help: "Backups created before a write",
		}),
		rollbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "docfill_rollbacks_total",
			Help: "Files restored from a backup",
		}),
	}
}

func (m *Metrics) ObserveParse(language string, documented, undocumented int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.filesParsed.WithLabelValues(language, "error").Inc()
		return
	}
	m.filesParsed.WithLabelValues(language, "ok").Inc()
	m.symbols.WithLabelValues(language, "true").Add(float64(documented))
	m.symbols.WithLabelValues(language, "false").Add(float64(undocumented))
}

// ObserveOracle records one documentation request. outcome is "ok", "empty"
// or an oracle error type.
func (m *Metrics) ObserveOracle(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(outcome).Inc()
	m.oracleLatency.Observe(took.Seconds())
}

func (m *Metrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) ObserveApply(state string, backedUp bool) {
	if m == nil {
		return
	}
	m.applies.WithLabelValues(state).Inc()
	if backedUp {
		m.backups.Inc()
	}
}

func (m *Metrics) ObserveRollback() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

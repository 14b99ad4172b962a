package reconcile

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PromMetrics struct {
	PathwayOutcomes *prometheus.CounterVec
	Writes          *prometheus.CounterVec
	Diverged        *prometheus.GaugeVec
	RunDuration     prometheus.Histogram
}

// InitPromMetrics registers the metrics and serves them on /metrics.
func InitPromMetrics(port int16) *PromMetrics {
	reg := prometheus.NewRegistry()
	m := NewPromMetrics(reg)

	// Expose /metrics HTTP endpoint
	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), nil))
	}()

	return m
}

func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	// labels
	var (
		outcomeLabels = []string{"status"}
		writeLabels   = []string{"eid", "field"}
		pathwayLabels = []string{"pathway"}
	)

	m := &PromMetrics{
		PathwayOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oapp_wirer_pathway_outcomes_total",
			Help: "Pathway reconciliation outcomes by final status",
		}, outcomeLabels),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oapp_wirer_writes_total",
			Help: "State-changing transactions that converged a field",
		}, writeLabels),
		Diverged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oapp_wirer_pathway_diverged",
			Help: "1 if the last run left the pathway out of its declared state",
		}, pathwayLabels),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oapp_wirer_run_duration_seconds",
			Help:    "Duration of a full reconciliation run",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
	}

	reg.MustRegister(m.PathwayOutcomes, m.Writes, m.Diverged, m.RunDuration)

	return m
}

func (m *PromMetrics) observePathway(r PathwayResult) {
	m.PathwayOutcomes.WithLabelValues(string(r.Status)).Inc()
	for _, c := range r.Changes {
		if c.Applied {
			m.Writes.WithLabelValues(fmt.Sprint(r.From), c.Field).Inc()
		}
	}
	diverged := 0.0
	if r.Status != StatusConverged {
		diverged = 1
	}
	m.Diverged.WithLabelValues(r.Pathway).Set(diverged)
}

func (m *PromMetrics) observeRun(r *Report) {
	m.RunDuration.Observe(r.Duration.Seconds())
}

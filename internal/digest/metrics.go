package digest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts ticks and window runs. A nil *Metrics records nothing.
type Metrics struct {
	ticks    *prometheus.CounterVec
	items    *prometheus.CounterVec
	entries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the scheduler collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "ticks_total",
			Help:      "Scheduler ticks by window kind and outcome status.",
		}, []string{"kind", "status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "candidate_items_total",
			Help:      "Candidate items collected for a window.",
		}, []string{"kind"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsdigest",
			Name:      "delivered_entries_total",
			Help:      "Digest entries delivered to the channel.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newsdigest",
			Name:      "window_duration_seconds",
			Help:      "Wall time spent handling a pending window.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"kind"}),
	}
	reg.MustRegister(m.ticks, m.items, m.entries, m.duration)
	return m
}

func (m *Metrics) observeTick(out Outcome) {
	if m == nil {
		return
	}
	kind := string(out.Kind)
	if kind == "" {
		kind = "none"
	}
	m.ticks.WithLabelValues(kind, string(out.Status)).Inc()
}

func (m *Metrics) observeRun(out Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.observeTick(out)
	kind := string(out.Kind)
	m.items.WithLabelValues(kind).Add(float64(out.Items))
	m.entries.WithLabelValues(kind).Add(float64(out.Delivered))
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rentmap_sessions_active",
		Help: "Map sessions currently held in memory",
	})
	SessionsEvictedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentmap_sessions_evicted_total",
		Help: "Sessions removed from memory by reason",
	}, []string{"reason"})
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentmap_events_total",
		Help: "Interaction events dispatched by kind",
	}, []string{"kind"})
	RenderDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rentmap_render_duration_ms",
		Help:    "Visibility filter plus cluster build duration in milliseconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
	})
	SnapshotSavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentmap_snapshot_saves_total",
		Help: "Session snapshot writes by result",
	}, []string{"result"})
	NavigationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rentmap_navigations_total",
		Help: "View-details navigation requests emitted",
	})
)

func init() {
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(SessionsEvictedTotal)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(RenderDurationMs)
	prometheus.MustRegister(SnapshotSavesTotal)
	prometheus.MustRegister(NavigationsTotal)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }

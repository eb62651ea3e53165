package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ImportResultSucceeded = "succeeded"
	ImportResultFailed    = "failed"
	ImportResultLocked    = "locked"
)

// ImportMetrics records price-list import outcomes.
type ImportMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	goods    prometheus.Counter
}

// NewImportMetrics registers the catalog import metrics on reg.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_import_duration_seconds",
		Help:    "Duration of price-list imports in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"result"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_total",
		Help: "Price-list imports by result.",
	}, []string{"result"})
	goods := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_import_goods_total",
		Help: "Listings created by successful imports.",
	})
	reg.MustRegister(duration, total, goods)
	return &ImportMetrics{duration: duration, total: total, goods: goods}
}

// Observe records one finished import.
func (m *ImportMetrics) Observe(result string, duration time.Duration, goods int) {
	if m == nil || m.total == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.total.WithLabelValues(result).Inc()
	m.duration.WithLabelValues(result).Observe(duration.Seconds())
	if result == ImportResultSucceeded && goods > 0 {
		m.goods.Add(float64(goods))
	}
}

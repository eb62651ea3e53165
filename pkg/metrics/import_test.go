package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestImportMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewImportMetrics(reg)

	m.Observe(ImportResultSucceeded, 2*time.Second, 14)
	m.Observe(ImportResultFailed, time.Second, 3)
	m.Observe(ImportResultLocked, 0, 0)

	for result, want := range map[string]float64{ImportResultSucceeded: 1, ImportResultFailed: 1, ImportResultLocked: 1} {
		assert.Equal(t, want, sample(t, reg, "catalog_import_total", "result", result).GetCounter().GetValue(), result)
	}
	assert.Equal(t, 14.0, sample(t, reg, "catalog_import_goods_total").GetCounter().GetValue())
	assert.InDelta(t, 2.0, sample(t, reg, "catalog_import_duration_seconds", "result", ImportResultSucceeded).GetHistogram().GetSampleSum(), 0.001)
}

func TestImportMetricsNilSafe(t *testing.T) {
	var m *ImportMetrics
	assert.NotPanics(t, func() {
		m.Observe(ImportResultSucceeded, time.Second, 1)
		NewImportMetrics(nil).Observe(ImportResultFailed, time.Second, 0)
	})
}

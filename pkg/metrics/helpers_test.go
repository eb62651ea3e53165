package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// sample gathers reg and returns the series of family name whose labels
// include every key/value pair in kv.
func sample(t *testing.T, reg *prometheus.Registry, name string, kv ...string) *dto.Metric {
	t.Helper()
	require.Zero(t, len(kv)%2, "labels come in pairs")

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if hasLabels(m, kv) {
				return m
			}
		}
	}
	require.Failf(t, "series not found", "%s%v", name, kv)
	return nil
}

func hasLabels(m *dto.Metric, kv []string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for i := 0; i < len(kv); i += 2 {
		if got[kv[i]] != kv[i+1] {
			return false
		}
	}
	return true
}

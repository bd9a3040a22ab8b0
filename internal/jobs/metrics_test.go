package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	assert.NoError(t, m.Track("purge_month").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("purge_month").End(boom), boom)

	assert.Equal(t, 1.0, counterValue(t, reg, "octane_jobs_total", map[string]string{"job": "purge_month", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "octane_jobs_total", map[string]string{"job": "purge_month", "status": "failure"}))
}

func TestAddImageDeletes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AddImageDeletes(4, 1)
	m.AddImageDeletes(0, 0)

	assert.Equal(t, 4.0, counterValue(t, reg, "octane_purge_image_deletes_total", map[string]string{"outcome": "deleted"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "octane_purge_image_deletes_total", map[string]string{"outcome": "failed"}))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddImageDeletes(1, 1)
	assert.NoError(t, m.Track("x").End(nil))
}

package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/pkg/metrics"
)

func TestGatherIncludesCounters(t *testing.T) {
	m := metrics.NewMetrics()
	m.ClickRecorded("Mobile", "Safari")
	m.ClickRecorded("Mobile", "Safari")
	m.TrackingFailed(metrics.StageGeo)
	m.Redirect(metrics.OutcomeNotFound)

	out, err := m.Gather()
	require.NoError(t, err)

	assert.Contains(t, out, `linkbio_clicks_recorded_total{browser="Safari",device="Mobile"} 2`)
	assert.Contains(t, out, `linkbio_tracking_failures_total{stage="geo"} 1`)
	assert.Contains(t, out, `linkbio_redirects_total{outcome="not_found"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ClickRecorded("Desktop", "Chrome")
		m.TrackingFailed(metrics.StageWrite)
		m.Redirect(metrics.OutcomeRedirected)
	})
}

func TestInstancesAreIndependent(t *testing.T) {
	first := metrics.NewMetrics()
	second := metrics.NewMetrics()
	first.Redirect(metrics.OutcomeRedirected)

	out, err := second.Gather()
	require.NoError(t, err)
	assert.NotContains(t, out, `outcome="redirected"`)
}

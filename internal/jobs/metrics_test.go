package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, metrics.Track("album:resync").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, metrics.Track("album:resync").End(boom), boom)
	metrics.Skip("album:resync", "not_found")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("album:resync", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("album:resync", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("album:resync")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.skipped.WithLabelValues("album:resync", "not_found")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var metrics *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, metrics.Track("x").End(boom), boom)
	metrics.Skip("x", "y")
}

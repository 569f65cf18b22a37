package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transfer("assign", nil)
	m.Transfer("assign", nil)
	m.Transfer("return", errors.New("boom"))
	m.Rejected("policy_error")
	m.Rejected("")
	m.PreflightFailed()
	m.ObserveDashboard(15 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transfers.WithLabelValues("assign", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transfers.WithLabelValues("return", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("internal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.preflightFailures))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Transfer("assign", nil)
		m.Rejected("validation_error")
		m.PreflightFailed()
		m.ObserveDashboard(time.Second)
	})
}

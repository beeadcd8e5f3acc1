package metrics_test

import (
	"testing"

	"github.com/jrsteele09/go-match-client/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRefreshCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewRefresh(reg)

	m.ObserveOutcome(metrics.OutcomeSuccess)
	m.ObserveOutcome(metrics.OutcomeSuccess)
	m.ObserveOutcome(metrics.OutcomeFailure)
	m.ObserveCoalesced()
	m.ObserveResubmission()
	m.ObserveTerminated()

	require.Equal(t, 2.0, testutil.ToFloat64(m.Outcomes().WithLabelValues(metrics.OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes().WithLabelValues(metrics.OutcomeFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Coalesced()))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Resubmissions()))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Terminated()))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 5, count)
}

func TestNilRefreshIsNoop(t *testing.T) {
	var m *metrics.Refresh
	require.NotPanics(t, func() {
		m.ObserveOutcome(metrics.OutcomeSuccess)
		m.ObserveCoalesced()
		m.ObserveResubmission()
		m.ObserveTerminated()
	})
}

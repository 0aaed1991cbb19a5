package control

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestObserveEventIncrementsCounterByType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.ObserveEvent("conn_received")
	m.ObserveEvent("conn_received")
	m.ObserveEvent("conn_closed")

	got := counterValue(t, m.EventsTotal.WithLabelValues("conn_received"))
	require.Equal(t, 2.0, got)
	got = counterValue(t, m.EventsTotal.WithLabelValues("conn_closed"))
	require.Equal(t, 1.0, got)
}

func TestSetTxqAvailRecordsPerQueueGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.SetTxqAvail(0, 64)
	m.SetTxqAvail(1, 12)

	require.Equal(t, 64.0, gaugeValue(t, m.TxqAvail.WithLabelValues("0")))
	require.Equal(t, 12.0, gaugeValue(t, m.TxqAvail.WithLabelValues("1")))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var d dto.Metric
	require.NoError(t, c.Write(&d))
	return d.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var d dto.Metric
	require.NoError(t, g.Write(&d))
	return d.GetGauge().GetValue()
}

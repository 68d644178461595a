package observability

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestTippingMetrics(t *testing.T) {
	m := Tipping()
	if Tipping() != m {
		t.Fatalf("registry must be a singleton")
	}
	m.ObserveTransaction("tip", nil, time.Millisecond)
	m.ObserveTransaction("tip", errors.New("boom"), time.Millisecond)
	if got := testutil.ToFloat64(m.txs.WithLabelValues("tip", "error")); got != 1 {
		t.Fatalf("expected one failed tip, got %v", got)
	}
	m.RecordTip(big.NewInt(1000), big.NewInt(25))
	if got := testutil.ToFloat64(m.feeVolume); got != 25 {
		t.Fatalf("unexpected fee volume %v", got)
	}
	m.RecordSinkFailure("")
	if got := testutil.ToFloat64(m.sinkFailures.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("unexpected sink failures %v", got)
	}
	var nilMetrics *TippingMetrics
	nilMetrics.RecordRegistration("creator")
}

func TestRegistrationsGatheredByKind(t *testing.T) {
	Tipping().RecordRegistration(" Agent ")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var family *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "tipchain_tipping_registrations_total" {
			family = mf
		}
	}
	if family == nil {
		t.Fatalf("registrations family not exported")
	}
	for _, m := range family.GetMetric() {
		for _, label := range m.GetLabel() {
			if label.GetName() == "kind" && label.GetValue() == "agent" && m.GetCounter().GetValue() >= 1 {
				return
			}
		}
	}
	t.Fatalf("no agent registration sample in %v", family)
}

func TestTipsExportedThroughOtelMeter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	Tipping().RecordTip(big.NewInt(1000), big.NewInt(25))
	Tipping().RecordTip(big.NewInt(500), big.NewInt(12))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "tipchain.tips" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 2 {
				t.Fatalf("unexpected tips data %+v", m.Data)
			}
			return
		}
	}
	t.Fatalf("tipchain.tips not exported: %+v", rm)
}

package observability

import (
	"context"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "tipchain/observability"

// TippingMetrics tracks ledger transactions and event delivery.
type TippingMetrics struct {
	txs           *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	tipVolume     prometheus.Counter
	feeVolume     prometheus.Counter
	registrations *prometheus.CounterVec
	sinkFailures  *prometheus.CounterVec

	// OTLP mirrors, exported when telemetry metrics are enabled
	otel otelInstruments
}

type otelInstruments struct {
	tips          metric.Int64Counter
	volume        metric.Float64Counter
	registrations metric.Int64Counter
	sinkFailures  metric.Int64Counter
}

func newOtelInstruments(meter metric.Meter) (otelInstruments, error) {
	var (
		inst otelInstruments
		err  error
	)
	if inst.tips, err = meter.Int64Counter("tipchain.tips", metric.WithDescription("Settled tips.")); err != nil {
		return inst, err
	}
	if inst.volume, err = meter.Float64Counter("tipchain.tips.volume", metric.WithDescription("Tipped amounts in base units by kind.")); err != nil {
		return inst, err
	}
	if inst.registrations, err = meter.Int64Counter("tipchain.registrations", metric.WithDescription("Profile registrations.")); err != nil {
		return inst, err
	}
	if inst.sinkFailures, err = meter.Int64Counter("tipchain.events.sink_failures", metric.WithDescription("Rejected event deliveries.")); err != nil {
		return inst, err
	}
	return inst, nil
}

var (
	tippingMetricsOnce sync.Once
	tippingRegistry    *TippingMetrics
)

// Tipping returns the lazily registered tipping metrics.
func Tipping() *TippingMetrics {
	tippingMetricsOnce.Do(func() {
		tippingRegistry = &TippingMetrics{
			txs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tipchain",
				Subsystem: "ledger",
				Name:      "transactions_total",
				Help:      "Ledger transactions segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tipchain",
				Subsystem: "ledger",
				Name:      "transaction_duration_seconds",
				Help:      "Latency of ledger transactions including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			tipVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tipchain",
				Subsystem: "tipping",
				Name:      "gross_volume_total",
				Help:      "Gross amount tipped in base units.",
			}),
			feeVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tipchain",
				Subsystem: "tipping",
				Name:      "fees_total",
				Help:      "Platform fees collected in base units.",
			}),
			registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tipchain",
				Subsystem: "tipping",
				Name:      "registrations_total",
				Help:      "Profile registrations segmented by kind.",
			}, []string{"kind"}),
			sinkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tipchain",
				Subsystem: "events",
				Name:      "sink_failures_total",
				Help:      "Committed event batches a sink failed to accept.",
			}, []string{"sink"}),
		}
		inst, err := newOtelInstruments(otel.GetMeterProvider().Meter(meterName))
		if err != nil {
			inst, _ = newOtelInstruments(noop.NewMeterProvider().Meter(meterName))
		}
		tippingRegistry.otel = inst
		prometheus.MustRegister(
			tippingRegistry.txs,
			tippingRegistry.latency,
			tippingRegistry.tipVolume,
			tippingRegistry.feeVolume,
			tippingRegistry.registrations,
			tippingRegistry.sinkFailures,
		)
	})
	return tippingRegistry
}

// ObserveTransaction records the outcome of one ledger transaction.
func (m *TippingMetrics) ObserveTransaction(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.txs.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTip adds a settled tip to the volume counters.
func (m *TippingMetrics) RecordTip(gross, fee *big.Int) {
	if m == nil {
		return
	}
	m.tipVolume.Add(bigToFloat(gross))
	m.feeVolume.Add(bigToFloat(fee))
	ctx := context.Background()
	m.otel.tips.Add(ctx, 1)
	m.otel.volume.Add(ctx, bigToFloat(gross), metric.WithAttributes(attribute.String("kind", "gross")))
	m.otel.volume.Add(ctx, bigToFloat(fee), metric.WithAttributes(attribute.String("kind", "fee")))
}

func (m *TippingMetrics) RecordRegistration(kind string) {
	if m == nil {
		return
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	m.registrations.WithLabelValues(kind).Inc()
	m.otel.registrations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *TippingMetrics) RecordSinkFailure(sink string) {
	if m == nil {
		return
	}
	if sink == "" {
		sink = "unknown"
	}
	m.sinkFailures.WithLabelValues(sink).Inc()
	m.otel.sinkFailures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("sink", sink)))
}

func bigToFloat(value *big.Int) float64 {
	if value == nil || value.Sign() <= 0 {
		return 0
	}
	floatVal, _ := new(big.Float).SetInt(value).Float64()
	if math.IsInf(floatVal, 0) {
		return math.MaxFloat64
	}
	return floatVal
}

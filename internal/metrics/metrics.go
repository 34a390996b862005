package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "nebenkosten_"

	resultSuccess  = "success"
	resultInvalid  = "invalid"
	resultRejected = "allocation_failed"
	resultError    = "error"
)

var (
	registerOnce sync.Once

	settlementRunTotal   *prometheus.CounterVec
	settlementRunLatency *prometheus.HistogramVec
	settlementTenants    prometheus.Histogram

	statementExportTotal   *prometheus.CounterVec
	statementExportLatency *prometheus.HistogramVec

	emissionsTierTotal *prometheus.CounterVec
)

// Init registers the settlement metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		settlementRunTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_run_total",
				Help: "Total settlement runs by result",
			},
			[]string{"result"},
		)
		settlementRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_run_latency_seconds",
				Help:    "Settlement run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		settlementTenants = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_tenants",
				Help:    "Tenants settled per run",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
			},
		)

		statementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total statement export operations by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		emissionsTierTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "emissions_tier_total",
				Help: "Carbon cost splits by resolved tier",
			},
			[]string{"tier"},
		)

		prometheus.MustRegister(
			settlementRunTotal,
			settlementRunLatency,
			settlementTenants,
			statementExportTotal,
			statementExportLatency,
			emissionsTierTotal,
		)
	})
}

// ObserveSettlementRun records run latency and result.
func ObserveSettlementRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if settlementRunTotal != nil {
		settlementRunTotal.WithLabelValues(result).Inc()
	}
	if settlementRunLatency != nil {
		settlementRunLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveTenantsSettled records the number of tenants in a stored run.
func ObserveTenantsSettled(n int) {
	if settlementTenants != nil {
		settlementTenants.Observe(float64(n))
	}
}

// ObserveStatementExport records export latency and result.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if statementExportTotal != nil {
		statementExportTotal.WithLabelValues(format, result).Inc()
	}
	if statementExportLatency != nil {
		statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncEmissionsTier counts a resolved carbon cost tier.
func IncEmissionsTier(tier string) {
	if tier == "" {
		tier = "unknown"
	}
	if emissionsTierTotal != nil {
		emissionsTierTotal.WithLabelValues(tier).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultInvalid  = resultInvalid
	ResultRejected = resultRejected
	ResultError    = resultError
)

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on a per-run registry so a batch run can be
// written out as a node-exporter textfile.
type Metrics struct {
	Registry *prometheus.Registry

	RowsLoaded       *prometheus.CounterVec
	RowsDropped      *prometheus.CounterVec
	RowsCleaned      prometheus.Counter
	MonthsAggregated prometheus.Gauge
	CustomersScored  prometheus.Gauge
	ForecastRevenue  *prometheus.GaugeVec
	StageDuration    *prometheus.HistogramVec
	LastSuccess      prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RowsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_etl_rows_loaded_total",
			Help: "Rows read from each input table",
		}, []string{"table"}),
		RowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_etl_rows_dropped_total",
			Help: "Transaction rows removed by the cleaner",
		}, []string{"reason"}),
		RowsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Name: "retail_etl_rows_cleaned_total",
			Help: "Transaction rows retained after cleaning",
		}),
		MonthsAggregated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retail_etl_kpi_months",
			Help: "Number of months in the KPI series",
		}),
		CustomersScored: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retail_etl_rfm_customers",
			Help: "Number of customers with an RFM score",
		}),
		ForecastRevenue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "retail_etl_forecast_revenue",
			Help: "Forecast revenue for the next month",
		}, []string{"method"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "retail_etl_stage_duration_seconds",
			Help:    "Wall time spent in each pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retail_etl_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

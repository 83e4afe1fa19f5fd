package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "co2_"

	resultSuccess = "success"
	resultError   = "error"
	resultNoData  = "no_data"
	resultInvalid = "invalid"

	geocodeHit  = "hit"
	geocodeMiss = "miss"
	geocodeFail = "error"
)

var (
	registerOnce sync.Once

	dashboardRequests *prometheus.CounterVec
	dashboardLatency  *prometheus.HistogramVec

	ingestRequests *prometheus.CounterVec
	ingestReadings prometheus.Counter

	storeBatches *prometheus.CounterVec

	geocodeLookups *prometheus.CounterVec

	feedAppends  *prometheus.CounterVec
	feedLogDepth prometheus.Gauge
)

// Init registers service metrics and, when a database is wired, the reading count gauge.
func Init(db *sql.DB, table string, logger *log.Logger) {
	registerOnce.Do(func() {
		dashboardRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dashboard_requests_total",
				Help: "Total dashboard computations by operation and result",
			},
			[]string{"operation", "result"},
		)
		dashboardLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dashboard_latency_seconds",
				Help:    "Dashboard computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)

		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by result",
			},
			[]string{"result"},
		)
		ingestReadings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_readings_total",
				Help: "Total readings written by ingest",
			},
		)

		storeBatches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "store_batches_total",
				Help: "Total store write batches by operation and result",
			},
			[]string{"operation", "result"},
		)

		geocodeLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "geocode_lookups_total",
				Help: "Total reverse geocode lookups by result",
			},
			[]string{"result"},
		)

		feedAppends = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "feed_appends_total",
				Help: "Total feed log appends by result",
			},
			[]string{"result"},
		)
		feedLogDepth = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "feed_log_entries",
				Help: "Entries currently held in the feed log",
			},
		)

		prometheus.MustRegister(
			dashboardRequests,
			dashboardLatency,
			ingestRequests,
			ingestReadings,
			storeBatches,
			geocodeLookups,
			feedAppends,
			feedLogDepth,
		)

		if db != nil {
			registerDBMetrics(db, table, logger)
		}
	})
}

// ObserveDashboard records a dashboard computation.
func ObserveDashboard(operation, result string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if dashboardRequests != nil {
		dashboardRequests.WithLabelValues(operation, result).Inc()
	}
	if dashboardLatency != nil {
		dashboardLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// ObserveIngest records an ingest request and how many readings it wrote.
func ObserveIngest(result string, stored int) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestReadings != nil && stored > 0 {
		ingestReadings.Add(float64(stored))
	}
}

// IncStoreBatch counts one write batch.
func IncStoreBatch(operation, result string) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if storeBatches != nil {
		storeBatches.WithLabelValues(operation, result).Inc()
	}
}

// IncGeocode counts one reverse geocode lookup.
func IncGeocode(result string) {
	if result == "" {
		result = "unknown"
	}
	if geocodeLookups != nil {
		geocodeLookups.WithLabelValues(result).Inc()
	}
}

// ObserveFeedAppend counts a feed append and records the resulting log depth.
func ObserveFeedAppend(result string, depth int) {
	if result == "" {
		result = resultSuccess
	}
	if feedAppends != nil {
		feedAppends.WithLabelValues(result).Inc()
	}
	if feedLogDepth != nil {
		feedLogDepth.Set(float64(depth))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultNoData  = resultNoData
	ResultInvalid = resultInvalid

	GeocodeHit  = geocodeHit
	GeocodeMiss = geocodeMiss
	GeocodeFail = geocodeFail
)

package prometheus

import (
	"strconv"
	"time"
)

var (
	DefaultFetchDurationBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultHTTPDurationBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
)

// DashboardMetrics is the metric set of one dashboard session.
type DashboardMetrics struct {
	CyclesTotal          CounterVec
	CycleDuration        HistogramVec
	FetchRequestsTotal   CounterVec
	FetchDuration        HistogramVec
	InconsistenciesTotal CounterVec
	DegradedTotal        CounterVec
	PointsReturned       GaugeVec
	PointsTruncatedTotal CounterVec
	CacheRequestsTotal   CounterVec
	ArchiveWritesTotal   CounterVec
	HTTPRequestsTotal    CounterVec
	HTTPRequestDuration  HistogramVec
}

// NewDashboardMetrics registers the dashboard metric set on collector.
func NewDashboardMetrics(collector MetricsCollector) *DashboardMetrics {
	return &DashboardMetrics{
		CyclesTotal:          collector.RegisterCounter("cycles_total", "Request cycles by group and outcome", "group", "outcome"),
		CycleDuration:        collector.RegisterHistogram("cycle_duration_seconds", "Request cycle wall time", DefaultFetchDurationBuckets, "group"),
		FetchRequestsTotal:   collector.RegisterCounter("fetch_requests_total", "Aggregate API requests", "endpoint", "status_class"),
		FetchDuration:        collector.RegisterHistogram("fetch_duration_seconds", "Aggregate API request latency", DefaultFetchDurationBuckets, "endpoint"),
		InconsistenciesTotal: collector.RegisterCounter("inconsistencies_total", "Failed cross-checks of committed bundles", "check"),
		DegradedTotal:        collector.RegisterCounter("degraded_total", "Optional layers that failed and were degraded", "layer"),
		PointsReturned:       collector.RegisterGauge("points_returned", "Points in the last applied points bundle"),
		PointsTruncatedTotal: collector.RegisterCounter("points_truncated_total", "Points bundles capped by the server limit"),
		CacheRequestsTotal:   collector.RegisterCounter("cache_requests_total", "Response cache lookups", "result"),
		ArchiveWritesTotal:   collector.RegisterCounter("archive_writes_total", "Consistency archive writes", "result"),
		HTTPRequestsTotal:    collector.RegisterCounter("http_requests_total", "Requests served by the inspection API", "method", "route", "status_code"),
		HTTPRequestDuration:  collector.RegisterHistogram("http_request_duration_seconds", "Inspection API latency", DefaultHTTPDurationBuckets, "method", "route"),
	}
}

// ObserveRequest records one aggregate API attempt. statusCode 0 means the
// request failed before a response arrived.
func (m *DashboardMetrics) ObserveRequest(path string, statusCode int, d time.Duration) {
	m.FetchRequestsTotal.WithLabelValues(path, statusClass(statusCode)).Inc()
	m.FetchDuration.WithLabelValues(path).Observe(d.Seconds())
}

// CycleFinished records the outcome of a request cycle.
func (m *DashboardMetrics) CycleFinished(group, outcome string, d time.Duration) {
	m.CyclesTotal.WithLabelValues(group, outcome).Inc()
	m.CycleDuration.WithLabelValues(group).Observe(d.Seconds())
}

// Inconsistency records a failed cross-check.
func (m *DashboardMetrics) Inconsistency(check string) {
	m.InconsistenciesTotal.WithLabelValues(check).Inc()
}

// Degraded records an optional layer failure.
func (m *DashboardMetrics) Degraded(layer string) {
	m.DegradedTotal.WithLabelValues(layer).Inc()
}

// PointsApplied records the size of an applied points bundle.
func (m *DashboardMetrics) PointsApplied(returned int, truncated bool) {
	m.PointsReturned.WithLabelValues().Set(float64(returned))
	if truncated {
		m.PointsTruncatedTotal.WithLabelValues().Inc()
	}
}

// CacheAccess records a response cache lookup.
func (m *DashboardMetrics) CacheAccess(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(result).Inc()
}

// ArchiveWrite records a consistency archive insert.
func (m *DashboardMetrics) ArchiveWrite(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ArchiveWritesTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one request served by the inspection API.
func (m *DashboardMetrics) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(code int) string {
	switch {
	case code == 0:
		return "network_error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

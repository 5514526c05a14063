// Package metrics реализует экспорт метрик в Prometheus
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinery_requests_total",
			Help: "Total number of requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "machinery_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"endpoint", "method"},
	)

	// AggregateDuration время вычисления агрегатов
	AggregateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "machinery_aggregate_duration_seconds",
			Help:    "Aggregate computation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .5},
		},
		[]string{"operation"},
	)

	// ChartsRendered количество отрисованных графиков
	ChartsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinery_charts_rendered_total",
			Help: "Total number of charts rendered",
		},
		[]string{"kind", "quality"},
	)

	// ChartRenderLatency время отрисовки графика
	ChartRenderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "machinery_chart_render_seconds",
			Help:    "Chart render latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"kind"},
	)

	// ChartPlaceholders графики, замененные заглушкой из-за ошибки
	ChartPlaceholders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinery_chart_placeholders_total",
			Help: "Total number of charts degraded to a placeholder image",
		},
		[]string{"kind"},
	)

	// AnomaliesDetected количество обнаруженных аномалий датчиков
	AnomaliesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "machinery_sensor_anomalies_detected_total",
			Help: "Total number of sensor anomalies detected",
		},
	)

	// CacheHits попадания в кэш графиков
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "machinery_cache_hits_total",
			Help: "Total number of chart cache hits",
		},
	)

	// CacheMisses промахи кэша графиков
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "machinery_cache_misses_total",
			Help: "Total number of chart cache misses",
		},
	)

	// LoginAttempts попытки входа по результату
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinery_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions текущее число сессий in-memory бэкенда
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "machinery_active_sessions",
			Help: "Number of active sessions held in memory",
		},
	)
)

// ObserveAggregate записывает длительность операции агрегатора.
// Использование: defer metrics.ObserveAggregate("oee", time.Now())
func ObserveAggregate(operation string, start time.Time) {
	AggregateDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveChart записывает отрисовку графика
func ObserveChart(kind, quality string, start time.Time) {
	ChartsRendered.WithLabelValues(kind, quality).Inc()
	ChartRenderLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

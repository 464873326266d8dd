package prometheus

import (
	"strconv"
	"time"

	"ledger-service/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tenant metrics
	TenantRegistrationCounter prometheus.Counter
	RegisteredTenantsGauge    prometheus.Gauge
	DuplicateTenantsRemoved   prometheus.Counter

	// Authentication metrics
	AuthAttemptsCounter         prometheus.Counter
	AuthSuccessCounter          prometheus.Counter
	AuthErrorsCounter           prometheus.Counter
	LoginCounter                *prometheus.CounterVec
	PermissionDeniedCounter     prometheus.Counter
	TenantContextMissingCounter prometheus.Counter

	// Ledger metrics
	LedgerOperationCounter *prometheus.CounterVec
	LegacySeedCounter      prometheus.Counter

	// Store operation metrics
	StoreOperationHistogram *prometheus.HistogramVec

	// Request metrics
	RequestDurationHistogram *prometheus.HistogramVec
	APIRequestCounter        *prometheus.CounterVec
	APIErrorCounter          *prometheus.CounterVec

	// Namespace prefix for metrics
	namespace string
)

// InitMetrics initializes all Prometheus metrics
func InitMetrics(cfg *config.Config) {
	namespace = cfg.Metrics.Prefix

	// Tenant metrics
	TenantRegistrationCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tenant_registration_total",
		Help:      "Total number of tenant registrations",
	})

	RegisteredTenantsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registered_tenants",
		Help:      "Number of tenants in the directory",
	})

	DuplicateTenantsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_tenants_removed_total",
		Help:      "Total number of duplicate tenant records removed by dedup",
	})

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of token validation attempts",
	})

	AuthSuccessCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_success_total",
		Help:      "Total number of successful token validations",
	})

	AuthErrorsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_errors_total",
		Help:      "Total number of failed token validations",
	})

	LoginCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Total number of login attempts by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	PermissionDeniedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_denied_total",
		Help:      "Total number of requests rejected by role checks",
	})

	TenantContextMissingCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tenant_context_missing_total",
		Help:      "Total number of requests missing tenant context",
	})

	// Ledger metrics
	LedgerOperationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Total number of ledger operations by record type",
		},
		[]string{"record_type", "operation"},
	)

	LegacySeedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "legacy_seed_total",
		Help:      "Total number of tenants seeded from legacy collections",
	})

	// Store operation metrics
	StoreOperationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of key-value store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Request metrics
	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	APIRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path"},
	)

	APIErrorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of API errors",
		},
		[]string{"method", "path", "status"},
	)
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Track API request count
			APIRequestCounter.With(prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
			}).Inc()

			// Process the request
			err := next(c)

			// Track request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			RequestDurationHistogram.With(prometheus.Labels{
				"method": c.Request().Method,
				"path":   c.Path(),
				"status": status,
			}).Observe(duration)

			// Track errors
			if c.Response().Status >= 400 {
				APIErrorCounter.With(prometheus.Labels{
					"method": c.Request().Method,
					"path":   c.Path(),
					"status": status,
				}).Inc()
			}

			return err
		}
	}
}

// HandlerFunc returns a HTTP handler for metrics endpoint
func HandlerFunc() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}

// TrackStoreOperation returns a function that tracks store operation duration
func TrackStoreOperation(operation string) func(time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		StoreOperationHistogram.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// RecordLogin increments the login counter for a method and outcome
func RecordLogin(method, outcome string) {
	LoginCounter.With(prometheus.Labels{
		"method":  method,
		"outcome": outcome,
	}).Inc()
}

// RecordLedgerOperation increments the ledger operation counter
func RecordLedgerOperation(recordType, operation string) {
	LedgerOperationCounter.With(prometheus.Labels{
		"record_type": recordType,
		"operation":   operation,
	}).Inc()
}

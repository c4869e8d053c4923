package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quotaflow_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quotaflow_http_inflight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	PanicsRecoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_panics_recovered_total",
			Help: "Total number of recovered panics",
		},
		[]string{"where"},
	)

	// 凭证池指标
	CredentialRotationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotaflow_credential_rotations_total",
			Help: "Total number of credential pool rotations",
		},
	)

	CredentialPoolResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_credential_pool_resets_total",
			Help: "Total number of times the exhausted set was cleared",
		},
		[]string{"reason"},
	)

	CredentialExhausted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quotaflow_credential_exhausted",
			Help: "Number of credentials currently marked exhausted",
		},
	)

	// 执行核心指标
	UpstreamAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_upstream_attempts_total",
			Help: "Total number of operation attempts by outcome",
		},
		[]string{"feature", "tier", "outcome"},
	)

	BackoffSecondsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_backoff_seconds_total",
			Help: "Total time spent waiting before a retry",
		},
		[]string{"path"},
	)

	TierFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_tier_fallbacks_total",
			Help: "Total number of tier fallbacks",
		},
		[]string{"feature", "from_tier", "to_tier"},
	)

	TerminalErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_terminal_errors_total",
			Help: "Total number of calls that ended in an error",
		},
		[]string{"feature", "kind"},
	)

	OverrideRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_override_requests_total",
			Help: "Total number of calls served with an override credential",
		},
		[]string{"outcome"},
	)

	// 上游API调用指标
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quotaflow_upstream_request_duration_seconds",
			Help:    "Upstream API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model", "status_class"},
	)

	// 偏好存储指标
	PreferenceLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotaflow_preference_lookups_total",
			Help: "Total number of preference store lookups",
		},
		[]string{"backend", "result"},
	)

	PreferenceLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quotaflow_preference_lookup_duration_seconds",
			Help:    "Preference store lookup latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"backend"},
	)

	// 限流指标
	RateLimitKeysGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quotaflow_ratelimit_keys",
			Help: "Number of client keys currently tracked by the rate limiter",
		},
	)

	RateLimitRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotaflow_ratelimit_rejected_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	RateLimitSweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotaflow_ratelimit_sweeps_total",
			Help: "Total number of rate limiter cache sweeps",
		},
	)
)

// StatusClass buckets an HTTP status into 2xx/4xx/5xx style labels.
func StatusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

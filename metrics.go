package tomeauth

import internalmetrics "github.com/maantoa/tomeauth/internal/metrics"

// MetricID identifies an engine counter or histogram.
type MetricID = internalmetrics.ID

const (
	MetricSignInSuccess        = internalmetrics.SignInSuccess
	MetricSignInFailure        = internalmetrics.SignInFailure
	MetricSignInRateLimited    = internalmetrics.SignInRateLimited
	MetricSignInInvalidFormat  = internalmetrics.SignInInvalidFormat
	MetricSignOut              = internalmetrics.SignOut
	MetricSessionCreated       = internalmetrics.SessionCreated
	MetricSessionVerified      = internalmetrics.SessionVerified
	MetricSessionForcedSignOut = internalmetrics.SessionForcedSignOut
	MetricRefreshSuccess       = internalmetrics.RefreshSuccess
	MetricRefreshFailure       = internalmetrics.RefreshFailure
	MetricRefreshSkipped       = internalmetrics.RefreshSkipped
	MetricStorageError         = internalmetrics.StorageError
	MetricSignInLatency        = internalmetrics.SignInLatency
)

// Metrics is the lock-free counter set of one engine.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metric values.
type MetricsSnapshot = internalmetrics.Snapshot

// HistogramBounds are the inclusive upper bounds of latency buckets.
var HistogramBounds = internalmetrics.BucketBounds

// NewMetrics creates a metric set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}

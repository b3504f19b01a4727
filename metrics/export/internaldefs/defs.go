package internaldefs

import "github.com/maantoa/tomeauth"

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   tomeauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   tomeauth.MetricID
	Name string
	Help string
}

// BucketCount is the number of histogram buckets, the unbounded one included.
const BucketCount = len(tomeauth.HistogramBounds) + 1

var CounterDefs = []CounterDef{
	{ID: tomeauth.MetricSignInSuccess, Name: "tomeauth_sign_in_success_total", Help: "Successful sign-ins."},
	{ID: tomeauth.MetricSignInFailure, Name: "tomeauth_sign_in_failure_total", Help: "Sign-ins rejected for invalid credentials."},
	{ID: tomeauth.MetricSignInRateLimited, Name: "tomeauth_sign_in_rate_limited_total", Help: "Sign-ins refused while the profile was throttled."},
	{ID: tomeauth.MetricSignInInvalidFormat, Name: "tomeauth_sign_in_invalid_format_total", Help: "Sign-ins rejected for malformed input."},
	{ID: tomeauth.MetricSignOut, Name: "tomeauth_sign_out_total", Help: "Explicit sign-outs."},
	{ID: tomeauth.MetricSessionCreated, Name: "tomeauth_session_created_total", Help: "Created sessions."},
	{ID: tomeauth.MetricSessionVerified, Name: "tomeauth_session_verified_total", Help: "Sessions that passed full verification."},
	{ID: tomeauth.MetricSessionForcedSignOut, Name: "tomeauth_session_forced_sign_out_total", Help: "Sessions signed out after a failed check."},
	{ID: tomeauth.MetricRefreshSuccess, Name: "tomeauth_refresh_success_total", Help: "Successful session refreshes."},
	{ID: tomeauth.MetricRefreshFailure, Name: "tomeauth_refresh_failure_total", Help: "Failed session refreshes."},
	{ID: tomeauth.MetricRefreshSkipped, Name: "tomeauth_refresh_skipped_total", Help: "Refreshes skipped because one was already running."},
	{ID: tomeauth.MetricStorageError, Name: "tomeauth_storage_error_total", Help: "Storage operations that failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: tomeauth.MetricSignInLatency, Name: "tomeauth_sign_in_latency_seconds", Help: "Sign-in latency histogram."},
}

// HistogramBoundsSeconds returns the bucket upper bounds in seconds,
// without the unbounded bucket.
func HistogramBoundsSeconds() []float64 {
	out := make([]float64, 0, len(tomeauth.HistogramBounds))
	for _, b := range tomeauth.HistogramBounds {
		out = append(out, b.Seconds())
	}
	return out
}

// HistogramBoundSuffix names each bucket in instrument names.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"0_75",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling a short
// or missing slice.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// Package prometheus exposes engine metrics through prometheus/client_golang.
//
// [NewPrometheusExporter] wraps an engine in a [prometheus.Collector] and
// serves it from a private registry. Counter names are tomeauth_*_total; the
// sign-in latency histogram is tomeauth_sign_in_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers mount the
//     Handler or register the Collector themselves.
//   - Mutate engine state.
package prometheus

// Package prometheus provides Prometheus collectors for goVerify metrics.
//
// [NewPrometheusExporter] accepts a [goVerify.Engine] and exposes an [http.Handler]
// that renders all goVerify counters and histograms in Prometheus text exposition format.
// Counter names are prefixed goverify_*_total; the single histogram is
// goverify_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus

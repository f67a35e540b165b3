package internaldefs

import (
	goVerify "github.com/MrEthical07/goVerify"
)

// CounterDef defines a public type used by goVerify APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goVerify.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goVerify APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goVerify.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the verification engine.
var CounterDefs = []CounterDef{
	{ID: goVerify.MetricIssueSuccess, Name: "goverify_issue_success_total", Help: "Successfully issued verification codes."},
	{ID: goVerify.MetricIssueFailure, Name: "goverify_issue_failure_total", Help: "Failed code issuances."},
	{ID: goVerify.MetricIssueCooldown, Name: "goverify_issue_cooldown_total", Help: "Issuances rejected by the resend cooldown."},
	{ID: goVerify.MetricIssueRateLimited, Name: "goverify_issue_rate_limited_total", Help: "Rate-limited issuance attempts."},
	{ID: goVerify.MetricResendSuccess, Name: "goverify_resend_success_total", Help: "Successful code resends."},
	{ID: goVerify.MetricMailDispatchFailure, Name: "goverify_mail_dispatch_failure_total", Help: "Outbound mail dispatch failures."},
	{ID: goVerify.MetricVerifySuccess, Name: "goverify_verify_success_total", Help: "Successful code verifications."},
	{ID: goVerify.MetricVerifyFailure, Name: "goverify_verify_failure_total", Help: "Failed code verifications."},
	{ID: goVerify.MetricVerifyExpired, Name: "goverify_verify_expired_total", Help: "Verifications rejected on an expired challenge."},
	{ID: goVerify.MetricVerifyAttemptsExceeded, Name: "goverify_verify_attempts_exceeded_total", Help: "Challenges invalidated due to the attempt cap."},
	{ID: goVerify.MetricConsumeSuccess, Name: "goverify_consume_success_total", Help: "Successful challenge consumptions."},
	{ID: goVerify.MetricConsumeFailure, Name: "goverify_consume_failure_total", Help: "Failed challenge consumptions."},
	{ID: goVerify.MetricSweepEvicted, Name: "goverify_sweep_evicted_total", Help: "Expired challenge records evicted by the sweeper."},
}

// HistogramDefs is an exported constant or variable used by the verification engine.
var HistogramDefs = []HistogramDef{
	{ID: goVerify.MetricVerifyLatency, Name: "goverify_verify_latency_seconds", Help: "Verify latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the verification engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the verification engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

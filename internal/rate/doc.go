// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for the code issuance workflow.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - vik:  — issue per-key
//   - vip:  — issue per-IP
//
// # What this package must NOT do
//
//   - Implement per-challenge cooldowns (those derive from stored challenge state).
//   - Be imported outside the goVerify module.
package rate

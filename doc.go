// Package goVerify provides an ephemeral verification-code engine for
// email-ownership proofs: registration verification and password-recovery
// challenges backed by short-lived, one-way-hashed numeric secrets.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goVerify is the public surface. It exposes [Engine], [Builder], [Config],
// the injectable [ChallengeStore], and value types (IssueReceipt,
// ChallengeStatus, MetricsSnapshot). Helper code — secret generation, the
// issue throttle — lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Store a plaintext code anywhere; only the argon2id hash of a secret
//     survives the issuing call.
//   - Render or deliver mail. Delivery goes through the [Mailer] contract.
//   - Mutate accounts directly. Consumption goes through [AccountProvider].
//   - Hold the challenge-store critical section across hashing or mail
//     dispatch.
//
// # Performance contract
//
// Verify is bounded by one argon2id comparison plus two short store
// operations. Issue additionally pays one argon2id hash and one outbound
// mail call; the mail call is bounded by Config.Mail.SendTimeout.
package goVerify

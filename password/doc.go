// Package password implements hashing and verification with Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The same primitive covers two inputs: account passwords ([Argon2.Hash],
// minimum-length enforced) and short numeric verification codes
// ([Argon2.HashSecret], no length policy — the adaptive cost plus the
// engine's online attempt cap is the defense for a 6-digit space).
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Code format and password
// policy are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve secrets — callers supply plaintext and receive hashes.
//   - Import any other goVerify package.
//   - Log plaintext secrets or hash parameters at runtime.
package password

// Package yggauth provides a Yggdrasil-style authentication engine for
// game-client/game-server handshakes: opaque access tokens with two-tier
// expiry, login throttling, the join/hasJoined session handshake, and
// RSA-SHA1 profile property signing.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// yggauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Profile, AuthResult, MetricsSnapshot, etc.). Cache
// structures, token generation, and rate limiting live under token/,
// handshake/, and internal/ and are wired only through the builder.
//
// User and profile storage is an external collaborator supplied through
// [UserProvider]; the engine never owns persistence. The only state that
// survives a restart is the signing key pair on disk; every token, counter,
// and handshake is memory-resident, so a restart revokes them all.
//
// # What this package must NOT do
//
//   - Parse HTTP requests or own routing (see cmd/yggauth-server for that).
//   - Persist tokens, sessions, or rate counters.
//   - Implement password cryptography beyond the password package boundary.
package yggauth

// Package rate provides the fixed-window login throttle behind yggauth's
// authenticate and signout flows.
//
// # Design
//
// A counter is kept per identifier for a fixed window. Check reads the
// current count without mutating it; Increment bumps it, starting the window
// on the first hit. Callers compare Check against their attempt budget and
// reject before incrementing, so the check-then-increment sequence is not
// atomic — the resulting race admits at most a handful of extra attempts
// under heavy concurrency and is accepted.
//
// Two implementations share the [Limiter] interface: [Memory] (default,
// process-local, no I/O) and [Redis] (fleet-shared counters). A process
// restart resets Memory counters; Redis counters live for their window
// regardless of process lifetime.
//
// # What this package must NOT do
//
//   - Decide what error a rejected caller sees (that is engine policy).
//   - Persist anything beyond the window TTL.
package rate

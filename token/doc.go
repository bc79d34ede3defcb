// Package token implements the in-process access token cache.
//
// Tokens live through two windows measured from issuance. Inside the valid
// window a token passes validation and can start sessions. Between the valid
// window and the keep window it is temporally invalid: still resolvable, and
// still good enough to be refreshed into a fresh token, but rejected by
// validation. Past the keep window the record is dropped and the token is
// indistinguishable from one that never existed.
//
// Expiry is lazy. No background timer runs; records age out when they are
// next looked up, and the per-user index is pruned on the same path. The
// store performs no I/O and never blocks on anything but its own lock.
package token

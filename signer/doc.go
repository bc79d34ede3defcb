// Package signer manages the server's RSA key pair and countersigns profile
// properties with it.
//
// The key pair is materialized once per process, on first use: loaded from
// the configured PEM file if it exists, otherwise generated and persisted
// there so signatures stay verifiable across restarts. Signatures are
// RSASSA-PKCS1-v1_5 over SHA-1, base64 encoded, which is what launcher-side
// verifiers expect.
package signer

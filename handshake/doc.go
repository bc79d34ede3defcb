// Package handshake implements the short-lived join/hasJoined session store.
//
// A game client calls join with its access token and the server id it is
// connecting to; the record lives for a few seconds while the game server
// calls hasJoined to confirm the client really authenticated. Records expire
// lazily on lookup and, by default, are consumed by the first successful
// resolution so a captured server id cannot be replayed.
package handshake

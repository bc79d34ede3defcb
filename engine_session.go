package yggauth

import (
	"context"

	"github.com/hollowell/yggauth/internal"
	"github.com/hollowell/yggauth/token"
)

// Join records a session handshake: the game client proves it holds a fully
// valid access token bound to the profile it is about to play as, and the
// engine remembers the serverID so the game server can confirm the handshake
// through [Engine.HasJoined] within the handshake TTL.
//
// The claimed profile must be the token's bound profile; a token with no
// profile cannot join. The caller's IP, when attached via [WithClientIP], is
// stored with the handshake for the game server to cross-check.
func (e *Engine) Join(ctx context.Context, accessToken, profileID, serverID string) error {
	if err := e.checkReady(); err != nil {
		return err
	}

	rec, ok := e.tokens.Get(accessToken)
	if !ok || e.tokens.State(accessToken, "") != token.StateValid {
		e.metrics.Inc(MetricJoinFailure)
		e.emitAudit(ctx, auditEventJoinFailure, "", false, ErrInvalidToken, map[string]string{"server_id": serverID})
		return ErrInvalidToken
	}

	if rec.ProfileID == "" || internal.CompactUUID(rec.ProfileID) != internal.CompactUUID(profileID) {
		e.metrics.Inc(MetricJoinFailure)
		e.emitAudit(ctx, auditEventJoinFailure, rec.UserID, false, ErrAlreadyBind, map[string]string{"server_id": serverID})
		return ErrAlreadyBind
	}

	e.handshakes.Put(serverID, accessToken, clientIPFromContext(ctx))

	e.metrics.Inc(MetricJoinSuccess)
	e.emitAudit(ctx, auditEventJoinSuccess, rec.UserID, true, nil, map[string]string{"server_id": serverID})

	return nil
}

// HasJoined resolves a pending handshake for serverID and returns the signed
// profile of the player who joined. A nil profile with a nil error means no
// matching handshake exists; absence is an expected outcome of the protocol,
// not a failure. The handshake misses when it expired, when the profile name
// does not match username, or when ip is non-empty and differs from the
// joining client's recorded address.
func (e *Engine) HasJoined(ctx context.Context, username, serverID, ip string) (*Profile, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}

	hs, ok := e.handshakes.Get(serverID)
	if !ok {
		e.metrics.Inc(MetricHasJoinedMiss)
		return nil, nil
	}

	rec, ok := e.tokens.Get(hs.AccessToken)
	if !ok || rec.ProfileID == "" {
		e.metrics.Inc(MetricHasJoinedMiss)
		return nil, nil
	}

	profile, err := e.users.GetProfileByID(ctx, rec.ProfileID)
	if err != nil {
		e.metrics.Inc(MetricHasJoinedMiss)
		return nil, nil
	}
	if profile.Name != username {
		e.metrics.Inc(MetricHasJoinedMiss)
		return nil, nil
	}
	if ip != "" && ip != hs.ClientIP {
		e.metrics.Inc(MetricHasJoinedMiss)
		return nil, nil
	}

	serialized, err := serializeProfile(profile, e.cfg.Textures, e.signer, true)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricProfileSigned)

	e.metrics.Inc(MetricHasJoinedHit)
	e.emitAudit(ctx, auditEventHasJoined, rec.UserID, true, nil, map[string]string{
		"server_id": serverID,
		"profile":   profile.Name,
	})

	return &serialized, nil
}

// Profile returns the serialized profile for a profile id, countersigned
// when signed is set. Unknown ids return [ErrProfileNotFound].
func (e *Engine) Profile(ctx context.Context, profileID string, signed bool) (*Profile, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}

	rec, err := e.users.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, ErrProfileNotFound
	}

	serialized, err := serializeProfile(rec, e.cfg.Textures, e.signer, signed)
	if err != nil {
		return nil, err
	}
	if signed {
		e.metrics.Inc(MetricProfileSigned)
	}

	return &serialized, nil
}

package yggauth

import (
	"context"
	"fmt"

	"github.com/hollowell/yggauth/internal"
	"github.com/hollowell/yggauth/token"
)

// Refresh trades an access token for a fresh one bound to the same client
// token. The spent token may already be past the valid window; only tokens
// past the keep window, explicitly invalidated, or paired with a different
// client token are refused. The spent token is invalidated, so a token
// refreshes at most once.
//
// selectedProfileID optionally binds a profile to the new token. Selection
// is only legal while the token has no profile yet; the chosen profile must
// exist and belong to the token's user.
//
// The lookup and the invalidation of the spent token are two steps, not one.
// Two concurrent refreshes of the same token can therefore both succeed,
// each minting its own replacement. This window is accepted; the per-user
// cap still bounds the total number of live tokens.
func (e *Engine) Refresh(ctx context.Context, accessToken, clientToken, selectedProfileID string, withUser bool) (RefreshResult, error) {
	if err := e.checkReady(); err != nil {
		return RefreshResult{}, err
	}

	rec, ok := e.tokens.Get(accessToken)
	if !ok {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, "", false, ErrInvalidToken, nil)
		return RefreshResult{}, ErrInvalidToken
	}
	if clientToken != "" && clientToken != rec.ClientToken {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshFailure, rec.UserID, false, ErrInvalidToken, nil)
		return RefreshResult{}, ErrInvalidToken
	}

	profileID := rec.ProfileID
	if selectedProfileID != "" {
		newProfileID, err := e.selectProfile(ctx, rec, selectedProfileID)
		if err != nil {
			e.metrics.Inc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshFailure, rec.UserID, false, err, nil)
			return RefreshResult{}, err
		}
		profileID = newProfileID
	}

	e.tokens.Invalidate(accessToken)

	fresh := token.Record{
		AccessToken: internal.NewTokenID(),
		ClientToken: rec.ClientToken,
		UserID:      rec.UserID,
		ProfileID:   profileID,
		IssuedAt:    e.now(),
		Available:   true,
	}
	e.tokens.Put(fresh)
	e.metrics.Inc(MetricTokenIssued)

	result := RefreshResult{
		AccessToken: fresh.AccessToken,
		ClientToken: fresh.ClientToken,
	}

	if profileID != "" {
		profile, err := e.users.GetProfileByID(ctx, profileID)
		if err == nil {
			serialized, serr := serializeProfile(profile, e.cfg.Textures, e.signer, false)
			if serr != nil {
				return RefreshResult{}, serr
			}
			result.SelectedProfile = &serialized
		}
	}

	if withUser {
		user, err := e.users.GetUserByID(ctx, rec.UserID)
		if err != nil {
			return RefreshResult{}, fmt.Errorf("load user: %w", err)
		}
		result.User = buildUserView(user)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, rec.UserID, true, nil, nil)

	return result, nil
}

// selectProfile validates a profile selection during refresh and persists it
// as the user's selected profile.
func (e *Engine) selectProfile(ctx context.Context, rec token.Record, selectedProfileID string) (string, error) {
	if rec.ProfileID != "" {
		return "", ErrInvalidProfile
	}

	profile, err := e.users.GetProfileByID(ctx, selectedProfileID)
	if err != nil {
		return "", ErrInvalidProfile
	}
	if profile.OwnerID != rec.UserID {
		return "", ErrNoOwnership
	}

	if err := e.users.UpdateSelectedProfile(ctx, rec.UserID, profile.ProfileID); err != nil {
		return "", fmt.Errorf("persist selected profile: %w", err)
	}

	return profile.ProfileID, nil
}

// Validate reports whether an access token is fully valid: known, inside the
// valid window, and paired with clientToken when one is supplied. A token
// past the valid window fails validation even though it could still refresh.
func (e *Engine) Validate(ctx context.Context, accessToken, clientToken string) error {
	if err := e.checkReady(); err != nil {
		return err
	}

	started := e.now()
	state := e.tokens.State(accessToken, clientToken)
	e.metrics.Observe(MetricValidateLatency, e.now().Sub(started))

	if state != token.StateValid {
		e.metrics.Inc(MetricValidateFailure)
		return ErrInvalidToken
	}

	e.metrics.Inc(MetricValidateSuccess)
	return nil
}

// Invalidate revokes a single access token. Unknown tokens revoke as a
// no-op; the operation never reveals whether the token existed.
func (e *Engine) Invalidate(ctx context.Context, accessToken string) error {
	if err := e.checkReady(); err != nil {
		return err
	}

	rec, ok := e.tokens.Get(accessToken)
	e.tokens.Invalidate(accessToken)

	if ok {
		e.metrics.Inc(MetricTokenInvalidated)
		e.emitAudit(ctx, auditEventInvalidate, rec.UserID, true, nil, nil)
	}

	return nil
}

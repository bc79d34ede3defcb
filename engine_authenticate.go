package yggauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hollowell/yggauth/internal"
	"github.com/hollowell/yggauth/token"
)

// Authenticate verifies a username/password pair and issues a fresh access
// token. clientToken pairs the token to the caller's installation; when
// empty, the engine generates one. withUser attaches the account view to the
// result.
//
// Failed lookups, wrong passwords, exceeded rate limits, and an unreachable
// rate limiter backend all surface as [ErrInvalidCredentials]: the error is
// deliberately not an oracle for which of them happened. Every attempt,
// successful or not, counts against the caller's rate window.
func (e *Engine) Authenticate(ctx context.Context, identifier, pass, clientToken string, withUser bool) (AuthResult, error) {
	if err := e.checkReady(); err != nil {
		return AuthResult{}, err
	}

	user, err := e.checkCredentials(ctx, auditEventAuthFailure, identifier, pass)
	if err != nil {
		e.metrics.Inc(MetricAuthFailure)
		return AuthResult{}, err
	}

	if clientToken == "" {
		clientToken = internal.NewTokenID()
	}

	rec := token.Record{
		AccessToken: internal.NewTokenID(),
		ClientToken: clientToken,
		UserID:      user.UserID,
		ProfileID:   user.SelectedProfileID,
		IssuedAt:    e.now(),
		Available:   true,
	}
	e.tokens.Put(rec)
	e.metrics.Inc(MetricTokenIssued)

	result := AuthResult{
		AccessToken: rec.AccessToken,
		ClientToken: rec.ClientToken,
	}

	profiles, err := e.users.ProfilesByOwner(ctx, user.UserID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("list profiles: %w", err)
	}
	result.AvailableProfiles = make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		serialized, err := serializeProfile(p, e.cfg.Textures, e.signer, false)
		if err != nil {
			return AuthResult{}, err
		}
		result.AvailableProfiles = append(result.AvailableProfiles, serialized)
		if p.ProfileID == user.SelectedProfileID {
			selected := serialized
			result.SelectedProfile = &selected
		}
	}

	if withUser {
		result.User = buildUserView(user)
	}

	e.metrics.Inc(MetricAuthSuccess)
	e.emitAudit(ctx, auditEventAuthSuccess, user.UserID, true, nil, map[string]string{
		"identifier": identifier,
	})

	return result, nil
}

// Signout verifies credentials like [Engine.Authenticate], then revokes every
// access token the user holds. It is throttled by the same login rate window
// so it cannot be used to probe passwords faster than authenticate.
func (e *Engine) Signout(ctx context.Context, identifier, pass string) error {
	if err := e.checkReady(); err != nil {
		return err
	}

	user, err := e.checkCredentials(ctx, auditEventAuthFailure, identifier, pass)
	if err != nil {
		e.metrics.Inc(MetricAuthFailure)
		return err
	}

	removed := e.tokens.InvalidateAllForUser(user.UserID, 0)

	e.metrics.Inc(MetricSignout)
	e.emitAudit(ctx, auditEventSignout, user.UserID, true, nil, map[string]string{
		"identifier": identifier,
		"revoked":    fmt.Sprintf("%d", removed),
	})

	return nil
}

// checkCredentials runs the rate-limit gate and the password check shared by
// Authenticate and Signout. The attempt is counted before the outcome is
// known, so successful logins consume rate budget too.
func (e *Engine) checkCredentials(ctx context.Context, failEvent, identifier, pass string) (UserRecord, error) {
	count, err := e.limiter.Check(ctx, identifier)
	if err != nil {
		// Fail closed: an unreachable limiter must not open the login gate.
		e.logger.Printf("rate limiter check failed: %v", err)
		e.emitAudit(ctx, failEvent, "", false, err, map[string]string{"identifier": identifier})
		return UserRecord{}, ErrInvalidCredentials
	}
	if count >= e.cfg.RateLimit.MaxAttempts {
		e.metrics.Inc(MetricAuthRateLimited)
		e.emitAudit(ctx, auditEventAuthRateLimited, "", false, nil, map[string]string{"identifier": identifier})
		return UserRecord{}, ErrInvalidCredentials
	}

	if _, err := e.limiter.Increment(ctx, identifier); err != nil {
		e.logger.Printf("rate limiter increment failed: %v", err)
		e.emitAudit(ctx, failEvent, "", false, err, map[string]string{"identifier": identifier})
		return UserRecord{}, ErrInvalidCredentials
	}

	user, err := e.users.GetUserByIdentifier(ctx, identifier)
	if err != nil {
		e.emitAudit(ctx, failEvent, "", false, errors.New("unknown identifier"), map[string]string{"identifier": identifier})
		return UserRecord{}, ErrInvalidCredentials
	}

	ok, err := e.passwords.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		e.emitAudit(ctx, failEvent, user.UserID, false, errors.New("password mismatch"), map[string]string{"identifier": identifier})
		return UserRecord{}, ErrInvalidCredentials
	}

	return user, nil
}

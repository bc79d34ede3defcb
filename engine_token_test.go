package yggauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func authenticate(t *testing.T, env *testEnv, identifier string) AuthResult {
	t.Helper()

	result, err := env.engine.Authenticate(context.Background(), identifier, testPassword, "", false)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	return result
}

func TestValidateProfilelessAccountToken(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	// An account without a selected profile still gets a fully usable token;
	// only session joining is gated on the profile.
	if err := env.engine.Validate(ctx, result.AccessToken, result.ClientToken); err != nil {
		t.Fatalf("token for profile-less account should validate: %v", err)
	}
}

func TestValidateTwoTierExpiry(t *testing.T) {
	cfg := testConfig(t)
	env := newTestEngine(t, cfg)
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Validate(ctx, result.AccessToken, result.ClientToken); err != nil {
		t.Fatalf("fresh token should validate: %v", err)
	}

	// Past the valid window validation fails, but the token still resolves
	// and can be refreshed.
	env.clock.Advance(cfg.Token.ValidWindow)
	if err := env.engine.Validate(ctx, result.AccessToken, result.ClientToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("aged token should fail validation, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, result.AccessToken, result.ClientToken, "", false); err != nil {
		t.Fatalf("temporally invalid token should refresh: %v", err)
	}
}

func TestValidatePastKeepWindow(t *testing.T) {
	cfg := testConfig(t)
	env := newTestEngine(t, cfg)
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	env.clock.Advance(cfg.Token.KeepWindow)

	if err := env.engine.Validate(ctx, result.AccessToken, result.ClientToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := env.engine.Refresh(ctx, result.AccessToken, result.ClientToken, "", false); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token past keep window must not refresh, got %v", err)
	}
}

func TestValidateClientTokenPairing(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Validate(ctx, result.AccessToken, "other-client"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected pairing mismatch to fail, got %v", err)
	}
	if err := env.engine.Validate(ctx, result.AccessToken, ""); err != nil {
		t.Fatalf("empty client token should skip pairing: %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	refreshed, err := env.engine.Refresh(ctx, result.AccessToken, result.ClientToken, "", false)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if refreshed.AccessToken == result.AccessToken {
		t.Fatal("refresh must mint a new access token")
	}
	if refreshed.ClientToken != result.ClientToken {
		t.Fatalf("client token must carry forward, got %q", refreshed.ClientToken)
	}

	// The spent token is gone; the replacement validates.
	if err := env.engine.Validate(ctx, result.AccessToken, result.ClientToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("spent token should be invalid, got %v", err)
	}
	if err := env.engine.Validate(ctx, refreshed.AccessToken, refreshed.ClientToken); err != nil {
		t.Fatalf("replacement token should validate: %v", err)
	}
}

func TestRefreshIsSingleUse(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if _, err := env.engine.Refresh(ctx, result.AccessToken, result.ClientToken, "", false); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, result.AccessToken, result.ClientToken, "", false); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("second refresh of spent token should fail, got %v", err)
	}
}

func TestRefreshRejectsClientTokenMismatch(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if _, err := env.engine.Refresh(ctx, result.AccessToken, "other-client", "", false); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	// A failed refresh must not spend the token.
	if err := env.engine.Validate(ctx, result.AccessToken, result.ClientToken); err != nil {
		t.Fatalf("token spent by failed refresh: %v", err)
	}
}

func TestRefreshSelectsProfile(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "", "")
	env.provider.PutProfile(ProfileRecord{
		ProfileID: "profile-1",
		Name:      "Steve",
		OwnerID:   "user-1",
		CreatedAt: env.clock.Now(),
	})

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	refreshed, err := env.engine.Refresh(ctx, result.AccessToken, result.ClientToken, "profile-1", true)
	if err != nil {
		t.Fatalf("refresh with selection failed: %v", err)
	}
	if refreshed.SelectedProfile == nil || refreshed.SelectedProfile.Name != "Steve" {
		t.Fatalf("expected selected profile, got %+v", refreshed.SelectedProfile)
	}

	// Selection is persisted to the provider.
	user, err := env.provider.GetUserByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.SelectedProfileID != "profile-1" {
		t.Fatalf("selection not persisted, got %q", user.SelectedProfileID)
	}
}

func TestRefreshSelectionRules(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "profile-1", "Steve")
	env.seedUser(t, "user-2", "alex@example.com", "", "")
	env.provider.PutProfile(ProfileRecord{
		ProfileID: "profile-2",
		Name:      "Alex",
		OwnerID:   "user-2",
		CreatedAt: env.clock.Now(),
	})

	ctx := context.Background()

	// A token that already carries a profile refuses re-selection.
	bound := authenticate(t, env, "steve@example.com")
	if _, err := env.engine.Refresh(ctx, bound.AccessToken, bound.ClientToken, "profile-2", false); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for re-selection, got %v", err)
	}

	// Selecting another user's profile is an ownership failure.
	free := authenticate(t, env, "alex@example.com")
	if _, err := env.engine.Refresh(ctx, free.AccessToken, free.ClientToken, "profile-1", false); !errors.Is(err, ErrNoOwnership) {
		t.Fatalf("expected ErrNoOwnership, got %v", err)
	}

	// Selecting a profile that does not exist is invalid.
	free2 := authenticate(t, env, "alex@example.com")
	if _, err := env.engine.Refresh(ctx, free2.AccessToken, free2.ClientToken, "missing", false); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestInvalidateToken(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Invalidate(ctx, result.AccessToken); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if err := env.engine.Validate(ctx, result.AccessToken, result.ClientToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after invalidate, got %v", err)
	}

	// Unknown tokens invalidate silently.
	if err := env.engine.Invalidate(ctx, "unknown"); err != nil {
		t.Fatalf("invalidate of unknown token should be a no-op, got %v", err)
	}
}

func TestTokenCapEvictsOldest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Token.MaxTokensPerUser = 10
	// Generous rate window so repeated logins do not trip the throttle.
	cfg.RateLimit.MaxAttempts = 100
	env := newTestEngine(t, cfg)
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()

	first := authenticate(t, env, "steve@example.com")
	env.clock.Advance(time.Minute)

	// Ten more logins push the first token over the cap.
	var last AuthResult
	for i := 0; i < 10; i++ {
		last = authenticate(t, env, "steve@example.com")
		env.clock.Advance(time.Minute)
	}

	if err := env.engine.Validate(ctx, first.AccessToken, first.ClientToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("oldest token should be evicted, got %v", err)
	}
	if err := env.engine.Validate(ctx, last.AccessToken, last.ClientToken); err != nil {
		t.Fatalf("newest token should survive: %v", err)
	}
}

func TestTokenCapIsConfigurable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Token.MaxTokensPerUser = 2
	cfg.RateLimit.MaxAttempts = 100
	env := newTestEngine(t, cfg)
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()

	first := authenticate(t, env, "steve@example.com")
	env.clock.Advance(time.Minute)
	second := authenticate(t, env, "steve@example.com")
	env.clock.Advance(time.Minute)
	third := authenticate(t, env, "steve@example.com")

	if err := env.engine.Validate(ctx, first.AccessToken, first.ClientToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected eviction at cap 2, got %v", err)
	}
	if err := env.engine.Validate(ctx, second.AccessToken, second.ClientToken); err != nil {
		t.Fatalf("second token should survive: %v", err)
	}
	if err := env.engine.Validate(ctx, third.AccessToken, third.ClientToken); err != nil {
		t.Fatalf("third token should survive: %v", err)
	}
}

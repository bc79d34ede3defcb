package yggauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

const sessionProfileID = "df24f4f4f4f44e68a7f9f3b1e0a2b4c8"

func newSessionEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	env := newTestEngine(t, cfg)
	env.seedUser(t, "user-1", "steve@example.com", sessionProfileID, "Steve")
	return env
}

func TestJoinHasJoinedHandshake(t *testing.T) {
	env := newSessionEnv(t, testConfig(t))

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Join(ctx, result.AccessToken, sessionProfileID, "server-abc"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	profile, err := env.engine.HasJoined(ctx, "Steve", "server-abc", "")
	if err != nil {
		t.Fatalf("hasJoined failed: %v", err)
	}
	if profile == nil {
		t.Fatal("expected resolved profile")
	}
	if profile.Name != "Steve" || profile.ID != sessionProfileID {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	// The returned profile carries a verifiable textures signature.
	var textures *Property
	for i := range profile.Properties {
		if profile.Properties[i].Name == "textures" {
			textures = &profile.Properties[i]
		}
	}
	if textures == nil || textures.Signature == "" {
		t.Fatal("expected signed textures property")
	}
	if err := env.engine.signer.Verify([]byte(textures.Value), textures.Signature); err != nil {
		t.Fatalf("textures signature does not verify: %v", err)
	}
}

func TestHasJoinedAbsenceIsNotAnError(t *testing.T) {
	env := newSessionEnv(t, testConfig(t))

	profile, err := env.engine.HasJoined(context.Background(), "Steve", "never-joined", "")
	if err != nil {
		t.Fatalf("expected nil error for absent handshake, got %v", err)
	}
	if profile != nil {
		t.Fatalf("expected nil profile, got %+v", profile)
	}
}

func TestHasJoinedNameMismatch(t *testing.T) {
	env := newSessionEnv(t, testConfig(t))

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Join(ctx, result.AccessToken, sessionProfileID, "server-abc"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	profile, err := env.engine.HasJoined(ctx, "NotSteve", "server-abc", "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if profile != nil {
		t.Fatal("name mismatch must resolve as absent")
	}
}

func TestHasJoinedIPMismatch(t *testing.T) {
	env := newSessionEnv(t, testConfig(t))

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Join(ctx, result.AccessToken, sessionProfileID, "server-abc"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	profile, err := env.engine.HasJoined(ctx, "Steve", "server-abc", "198.51.100.9")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if profile != nil {
		t.Fatal("IP mismatch must resolve as absent")
	}
}

func TestHasJoinedExpiry(t *testing.T) {
	cfg := testConfig(t)
	env := newSessionEnv(t, cfg)

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Join(ctx, result.AccessToken, sessionProfileID, "server-abc"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	env.clock.Advance(cfg.Handshake.TTL + time.Second)

	profile, err := env.engine.HasJoined(ctx, "Steve", "server-abc", "")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if profile != nil {
		t.Fatal("expired handshake must resolve as absent")
	}
}

func TestHasJoinedConsumesHandshake(t *testing.T) {
	cfg := testConfig(t)
	cfg.Handshake.ConsumeOnRead = true
	env := newSessionEnv(t, cfg)

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Join(ctx, result.AccessToken, sessionProfileID, "server-abc"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	if profile, err := env.engine.HasJoined(ctx, "Steve", "server-abc", ""); err != nil || profile == nil {
		t.Fatalf("first resolution should succeed, got %v %v", profile, err)
	}
	if profile, _ := env.engine.HasJoined(ctx, "Steve", "server-abc", ""); profile != nil {
		t.Fatal("second resolution should find the handshake consumed")
	}
}

func TestJoinRequiresFullyValidToken(t *testing.T) {
	cfg := testConfig(t)
	env := newSessionEnv(t, cfg)

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	// Temporally invalid tokens may refresh but not join.
	env.clock.Advance(cfg.Token.ValidWindow)
	if err := env.engine.Join(ctx, result.AccessToken, sessionProfileID, "server-abc"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJoinRejectsUnboundProfile(t *testing.T) {
	env := newTestEngine(t, testConfig(t))
	env.seedUser(t, "user-1", "steve@example.com", "", "")

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Join(ctx, result.AccessToken, sessionProfileID, "server-abc"); !errors.Is(err, ErrAlreadyBind) {
		t.Fatalf("token without a profile must not join, got %v", err)
	}
}

func TestJoinRejectsForeignProfile(t *testing.T) {
	env := newSessionEnv(t, testConfig(t))

	ctx := context.Background()
	result := authenticate(t, env, "steve@example.com")

	if err := env.engine.Join(ctx, result.AccessToken, "someone-elses-profile", "server-abc"); !errors.Is(err, ErrAlreadyBind) {
		t.Fatalf("expected ErrAlreadyBind, got %v", err)
	}
}

func TestProfileLookup(t *testing.T) {
	env := newSessionEnv(t, testConfig(t))
	ctx := context.Background()

	unsigned, err := env.engine.Profile(ctx, sessionProfileID, false)
	if err != nil {
		t.Fatalf("profile lookup failed: %v", err)
	}
	for _, prop := range unsigned.Properties {
		if prop.Signature != "" {
			t.Fatalf("unsigned lookup returned a signature: %+v", prop)
		}
	}

	signed, err := env.engine.Profile(ctx, sessionProfileID, true)
	if err != nil {
		t.Fatalf("signed profile lookup failed: %v", err)
	}
	if len(signed.Properties) == 0 {
		t.Fatal("signed lookup returned no properties")
	}
	// Signing covers every property, not just textures.
	for _, prop := range signed.Properties {
		if prop.Signature == "" {
			t.Fatalf("signed lookup left %s unsigned", prop.Name)
		}
		if err := env.engine.signer.Verify([]byte(prop.Value), prop.Signature); err != nil {
			t.Fatalf("%s signature does not verify: %v", prop.Name, err)
		}
	}

	if _, err := env.engine.Profile(ctx, "missing", false); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestSignatureKeyPEM(t *testing.T) {
	env := newSessionEnv(t, testConfig(t))

	pem, err := env.engine.SignatureKeyPEM()
	if err != nil {
		t.Fatalf("public key failed: %v", err)
	}
	if pem == "" {
		t.Fatal("expected PEM output")
	}
}

package yggauth

import (
	"errors"
	"time"
)

// Config defines the tunable behavior of an [Engine].
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	Token     TokenConfig
	RateLimit RateLimitConfig
	Handshake HandshakeConfig
	Signing   SigningConfig
	Password  PasswordConfig
	Textures  TexturesConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the token cache's two-tier expiry and the per-user
// concurrent-token cap.
//
// A token is fully usable until ValidWindow elapses, then remains resolvable
// but flagged until KeepWindow elapses, then is indistinguishable from never
// having existed. KeepWindow must be strictly longer than ValidWindow.
type TokenConfig struct {
	ValidWindow      time.Duration
	KeepWindow       time.Duration
	MaxTokensPerUser int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls the fixed-window login throttle. Window is
// independent of every other configured duration; counters reset implicitly
// when the window expires and never survive a restart.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
}

/*
====================================
HANDSHAKE CONFIG
====================================
*/

// HandshakeConfig controls the join/hasJoined session handshake store.
//
// ConsumeOnRead deletes a handshake on its first successful hasJoined
// resolution, closing the replay window the reference behavior leaves open;
// set it to false to keep the record readable for its full TTL.
type HandshakeConfig struct {
	TTL           time.Duration
	ConsumeOnRead bool
}

/*
====================================
SIGNING CONFIG
====================================
*/

// SigningConfig locates the persisted RSA key pair. The key is generated at
// KeyFile on first use and reloaded on every restart.
type SigningConfig struct {
	KeyFile string
	KeyBits int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries the Argon2id parameters for the password hashing
// boundary. Memory is in KB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
TEXTURES CONFIG
====================================
*/

// TexturesConfig shapes the signed textures property of serialized profiles.
// BaseURL prefixes stored texture paths; AllowSkin/AllowCape drive the
// uploadableTextures property.
type TexturesConfig struct {
	BaseURL   string
	AllowSkin bool
	AllowCape bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the library defaults: launcher-compatible expiry
// windows, a conservative login throttle, and audit disabled.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			ValidWindow:      7 * 24 * time.Hour,
			KeepWindow:       14 * 24 * time.Hour,
			MaxTokensPerUser: 10,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts: 10,
			Window:      60 * time.Second,
		},
		Handshake: HandshakeConfig{
			TTL:           30 * time.Second,
			ConsumeOnRead: true,
		},
		Signing: SigningConfig{
			KeyFile: "keys/private.pem",
			KeyBits: 4096,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Textures: TexturesConfig{
			AllowSkin: true,
			AllowCape: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks cross-field invariants. It is called by [Builder.Build];
// direct callers only need it when constructing configs programmatically.
func (c Config) Validate() error {
	if c.Token.ValidWindow <= 0 {
		return errors.New("Token.ValidWindow must be positive")
	}
	if c.Token.KeepWindow <= c.Token.ValidWindow {
		return errors.New("Token.KeepWindow must be strictly longer than Token.ValidWindow")
	}
	if c.Token.MaxTokensPerUser <= 0 {
		return errors.New("Token.MaxTokensPerUser must be positive")
	}
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RateLimit.MaxAttempts must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit.Window must be positive")
	}
	if c.Handshake.TTL <= 0 {
		return errors.New("Handshake.TTL must be positive")
	}
	if c.Signing.KeyFile == "" {
		return errors.New("Signing.KeyFile must be set")
	}
	if c.Signing.KeyBits < 2048 {
		return errors.New("Signing.KeyBits must be >= 2048")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types; a shallow copy is a full copy.
	return cfg
}

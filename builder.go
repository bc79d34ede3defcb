package yggauth

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hollowell/yggauth/handshake"
	"github.com/hollowell/yggauth/internal/rate"
	"github.com/hollowell/yggauth/password"
	"github.com/hollowell/yggauth/signer"
	"github.com/hollowell/yggauth/token"
)

// Builder assembles an [Engine]. A Builder is single-use: configure it with
// the With* setters and call [Builder.Build] once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	auditSink    AuditSink
	logger       *log.Logger
	clock        func() time.Time

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserProvider sets the account store the engine authenticates against.
// A provider is required; Build fails without one.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithRedis switches the login rate limiter to shared Redis counters, so a
// fleet of engine instances throttles each identifier as one. Without it the
// limiter is per-process and in-memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events. It only matters when
// Audit.Enabled is set in the configuration.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine's operational logger. Defaults to a stderr
// logger with a "yggauth: " prefix.
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides the engine's time source. Tests use it to age tokens
// and handshakes deterministically.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles metric collection without replacing the config.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and assembles the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	logger := b.logger
	if logger == nil {
		logger = log.New(os.Stderr, "yggauth: ", log.LstdFlags)
	}

	// -------- RATE LIMITER --------
	var limiter rate.Limiter
	if b.redis != nil {
		limiter = rate.NewRedis(b.redis, cfg.RateLimit.Window)
	} else {
		limiter = rate.NewMemoryWithClock(cfg.RateLimit.Window, clock)
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// -------- STORES --------
	tokens := token.NewWithClock(
		cfg.Token.ValidWindow,
		cfg.Token.KeepWindow,
		cfg.Token.MaxTokensPerUser,
		clock,
	)
	handshakes := handshake.NewWithClock(
		cfg.Handshake.TTL,
		cfg.Handshake.ConsumeOnRead,
		clock,
	)

	b.built = true

	engine := &Engine{
		cfg:        cfg,
		users:      b.userProvider,
		tokens:     tokens,
		handshakes: handshakes,
		limiter:    limiter,
		signer:     signer.New(cfg.Signing.KeyFile, cfg.Signing.KeyBits),
		passwords:  hasher,
		metrics:    NewMetrics(cfg.Metrics),
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		logger:     logger,
		now:        clock,
		ready:      true,
	}

	return engine, nil
}

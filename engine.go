package yggauth

import (
	"context"
	"log"
	"time"

	"github.com/hollowell/yggauth/handshake"
	"github.com/hollowell/yggauth/internal/rate"
	"github.com/hollowell/yggauth/password"
	"github.com/hollowell/yggauth/signer"
	"github.com/hollowell/yggauth/token"
)

// Engine is the authentication core: it issues and ages access tokens,
// throttles login attempts, brokers the join/hasJoined session handshake,
// and countersigns profiles. Engines are immutable after [Builder.Build] and
// safe for concurrent use.
type Engine struct {
	cfg        Config
	users      UserProvider
	tokens     *token.Store
	handshakes *handshake.Store
	limiter    rate.Limiter
	signer     *signer.Manager
	passwords  *password.Hasher
	metrics    *Metrics
	audit      *auditDispatcher
	logger     *log.Logger
	now        func() time.Time
	ready      bool
}

func (e *Engine) checkReady() error {
	if e == nil || !e.ready {
		return ErrEngineNotReady
	}
	return nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.cfg)
}

// SignatureKeyPEM returns the public half of the signing key pair in PKIX
// PEM form. Launchers fetch it to verify profile property signatures.
func (e *Engine) SignatureKeyPEM() (string, error) {
	if err := e.checkReady(); err != nil {
		return "", err
	}

	return e.signer.PublicKeyPEM()
}

// Metrics returns a point-in-time snapshot of the engine's counters.
func (e *Engine) Metrics() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close stops the audit dispatcher after draining queued events. The engine
// must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func (e *Engine) emitAudit(ctx context.Context, eventType, userID string, success bool, opErr error, metadata map[string]string) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}

	e.audit.Emit(ctx, event)
}

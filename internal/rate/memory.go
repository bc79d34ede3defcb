package rate

import (
	"context"
	"sync"
	"time"
)

// Limiter is the counter interface consumed by the engine.
type Limiter interface {
	// Check returns the identifier's attempt count in the current window
	// without mutating it. Unknown and expired identifiers count as zero.
	Check(ctx context.Context, identifier string) (int, error)
	// Increment records an attempt and returns the new count. The first
	// attempt of a window starts the window.
	Increment(ctx context.Context, identifier string) (int, error)
}

type memoryEntry struct {
	count   int
	resetAt time.Time
}

// Memory is the default in-process [Limiter]: a mutex-guarded map with lazy
// window reset. Expired entries are dropped on access and by an opportunistic
// sweep when the map is touched, so memory stays bounded by the number of
// distinct identifiers seen per window.
type Memory struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[string]memoryEntry

	sweepEvery int
	opCount    int
}

// NewMemory creates a [Memory] limiter with the given fixed window.
func NewMemory(window time.Duration) *Memory {
	return NewMemoryWithClock(window, time.Now)
}

// NewMemoryWithClock creates a [Memory] limiter with an injected clock.
// Tests use it to step through window boundaries deterministically.
func NewMemoryWithClock(window time.Duration, now func() time.Time) *Memory {
	return &Memory{
		window:     window,
		now:        now,
		entries:    make(map[string]memoryEntry),
		sweepEvery: 1024,
	}
}

// Check implements [Limiter]. It never returns an error.
func (m *Memory) Check(_ context.Context, identifier string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[identifier]
	if !ok {
		return 0, nil
	}
	if !m.now().Before(entry.resetAt) {
		delete(m.entries, identifier)
		return 0, nil
	}

	return entry.count, nil
}

// Increment implements [Limiter]. It never returns an error.
func (m *Memory) Increment(_ context.Context, identifier string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.maybeSweep(now)

	entry, ok := m.entries[identifier]
	if !ok || !now.Before(entry.resetAt) {
		m.entries[identifier] = memoryEntry{count: 1, resetAt: now.Add(m.window)}
		return 1, nil
	}

	entry.count++
	m.entries[identifier] = entry
	return entry.count, nil
}

// maybeSweep drops expired entries every sweepEvery mutations. Callers hold mu.
func (m *Memory) maybeSweep(now time.Time) {
	m.opCount++
	if m.opCount < m.sweepEvery {
		return
	}
	m.opCount = 0

	for id, entry := range m.entries {
		if !now.Before(entry.resetAt) {
			delete(m.entries, id)
		}
	}
}

package handshake

import (
	"sync"
	"time"
)

// Record is a pending session handshake keyed by server id. ClientIP is the
// address the joining client was seen from; it is echoed to the game server
// so it can cross-check the connecting socket.
type Record struct {
	AccessToken string
	ClientIP    string
	storedAt    time.Time
}

// Store holds pending handshakes in memory. All methods are safe for
// concurrent use.
type Store struct {
	mu sync.Mutex

	ttl           time.Duration
	consumeOnRead bool
	now           func() time.Time

	byServerID map[string]Record
}

// New creates a Store with the given record lifetime. consumeOnRead makes
// Get delete a record on its first hit.
func New(ttl time.Duration, consumeOnRead bool) *Store {
	return NewWithClock(ttl, consumeOnRead, time.Now)
}

// NewWithClock is [New] with an injected clock for deterministic tests.
func NewWithClock(ttl time.Duration, consumeOnRead bool, now func() time.Time) *Store {
	return &Store{
		ttl:           ttl,
		consumeOnRead: consumeOnRead,
		now:           now,
		byServerID:    make(map[string]Record),
	}
}

// Put records a handshake for the server id, replacing any pending one. The
// latest join wins; a client reconnecting to the same server id overwrites
// its earlier attempt.
func (s *Store) Put(serverID, accessToken, clientIP string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byServerID[serverID] = Record{
		AccessToken: accessToken,
		ClientIP:    clientIP,
		storedAt:    s.now(),
	}
}

// Get resolves a pending handshake. Expired records are dropped on this path
// and reported as absent. With consumeOnRead set, a hit also deletes the
// record, so only the first resolution succeeds.
func (s *Store) Get(serverID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byServerID[serverID]
	if !ok {
		return Record{}, false
	}
	if s.now().Sub(rec.storedAt) >= s.ttl {
		delete(s.byServerID, serverID)
		return Record{}, false
	}
	if s.consumeOnRead {
		delete(s.byServerID, serverID)
	}

	return rec, true
}

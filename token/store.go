package token

import (
	"sort"
	"sync"
	"time"
)

// Store holds issued tokens in memory, keyed by access token with a per-user
// index for bulk invalidation and the concurrent-token cap. All methods are
// safe for concurrent use.
type Store struct {
	mu sync.Mutex

	validWindow time.Duration
	keepWindow  time.Duration
	maxPerUser  int
	now         func() time.Time

	byToken map[string]Record
	byUser  map[string][]string
}

// New creates a Store with the given expiry windows and per-user cap.
// keepWindow must be strictly longer than validWindow; the caller validates
// that before construction.
func New(validWindow, keepWindow time.Duration, maxPerUser int) *Store {
	return NewWithClock(validWindow, keepWindow, maxPerUser, time.Now)
}

// NewWithClock is [New] with an injected clock for deterministic tests.
func NewWithClock(validWindow, keepWindow time.Duration, maxPerUser int, now func() time.Time) *Store {
	return &Store{
		validWindow: validWindow,
		keepWindow:  keepWindow,
		maxPerUser:  maxPerUser,
		now:         now,
		byToken:     make(map[string]Record),
		byUser:      make(map[string][]string),
	}
}

// Put inserts a token record. If the owner now exceeds the per-user cap, the
// oldest surviving tokens are evicted until exactly maxPerUser remain, so a
// user's newest sessions always win over the stale ones.
func (s *Store) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byToken[rec.AccessToken] = rec
	s.byUser[rec.UserID] = append(s.byUser[rec.UserID], rec.AccessToken)

	s.capUserLocked(rec.UserID, s.maxPerUser)
}

// Get resolves an access token. Records past the keep window are dropped on
// this path and reported as absent.
func (s *Store) Get(accessToken string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(accessToken)
}

// State classifies the token for the given client token pairing. An empty
// clientToken skips the pairing check; a non-empty mismatch is invalid
// regardless of age.
func (s *Store) State(accessToken, clientToken string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.getLocked(accessToken)
	if !ok {
		return StateInvalid
	}
	if clientToken != "" && clientToken != rec.ClientToken {
		return StateInvalid
	}
	if !rec.Available {
		return StateTemporallyInvalid
	}
	if s.now().Sub(rec.IssuedAt) >= s.validWindow {
		return StateTemporallyInvalid
	}

	return StateValid
}

// Invalidate removes a single token. Removing an unknown token is a no-op.
func (s *Store) Invalidate(accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(accessToken)
}

// InvalidateAllForUser removes the user's tokens, sparing the keepNewest most
// recently issued ones, and returns how many were removed. keepNewest zero
// clears the user entirely.
func (s *Store) InvalidateAllForUser(userID string, keepNewest int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.capUserLocked(userID, keepNewest)
}

// Count returns the number of live tokens the user holds.
func (s *Store) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.liveUserRecordsLocked(userID))
}

func (s *Store) getLocked(accessToken string) (Record, bool) {
	rec, ok := s.byToken[accessToken]
	if !ok {
		return Record{}, false
	}
	if s.now().Sub(rec.IssuedAt) >= s.keepWindow {
		s.deleteLocked(accessToken)
		return Record{}, false
	}

	return rec, true
}

func (s *Store) deleteLocked(accessToken string) {
	rec, ok := s.byToken[accessToken]
	if !ok {
		return
	}
	delete(s.byToken, accessToken)

	index := s.byUser[rec.UserID]
	for i, id := range index {
		if id == accessToken {
			index = append(index[:i], index[i+1:]...)
			break
		}
	}
	if len(index) == 0 {
		delete(s.byUser, rec.UserID)
	} else {
		s.byUser[rec.UserID] = index
	}
}

// capUserLocked evicts the user's oldest live tokens until at most keep
// remain, and returns the number evicted. It also drops any index entries
// that already aged past the keep window.
func (s *Store) capUserLocked(userID string, keep int) int {
	live := s.liveUserRecordsLocked(userID)
	if len(live) <= keep {
		return 0
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].IssuedAt.Before(live[j].IssuedAt)
	})

	evicted := len(live) - keep
	for _, rec := range live[:evicted] {
		s.deleteLocked(rec.AccessToken)
	}

	return evicted
}

// liveUserRecordsLocked resolves the user's index through getLocked so that
// keep-window expiry prunes stale entries as a side effect.
func (s *Store) liveUserRecordsLocked(userID string) []Record {
	index := s.byUser[userID]
	live := make([]Record, 0, len(index))
	// getLocked may shrink the index; iterate over a snapshot.
	for _, id := range append([]string(nil), index...) {
		if rec, ok := s.getLocked(id); ok {
			live = append(live, rec)
		}
	}

	return live
}

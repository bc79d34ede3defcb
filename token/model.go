package token

import "time"

// State classifies a token at a point in time.
type State int

const (
	// StateInvalid covers unknown tokens, tokens past the keep window,
	// explicitly invalidated tokens, and client token mismatches.
	StateInvalid State = iota
	// StateTemporallyInvalid marks a token past the valid window but inside
	// the keep window. It fails validation but may still be refreshed.
	StateTemporallyInvalid
	// StateValid marks a token inside the valid window.
	StateValid
)

// String returns the state name for logs and test output.
func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateTemporallyInvalid:
		return "temporally_invalid"
	default:
		return "invalid"
	}
}

// Record is a stored access token.
//
// ClientToken is the caller-supplied pairing token carried forward across
// refreshes. Available gates validation: a token flagged unavailable is
// temporally invalid regardless of age, so it still resolves and refreshes
// but never validates. Tokens are issued available.
type Record struct {
	AccessToken string
	ClientToken string
	UserID      string
	ProfileID   string
	IssuedAt    time.Time
	Available   bool
}

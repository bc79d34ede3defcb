package yggauth

import "errors"

var (
	// ErrInvalidCredentials covers bad username/password pairs and exceeded
	// login rate limits. The two causes are intentionally indistinguishable to
	// callers so the error is never an account-enumeration or throttling oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when an access token is absent, aged past the
	// valid window, or bound to a different client token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidProfile is returned when a selected profile does not exist.
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrNoOwnership is returned when a selected profile belongs to another user.
	ErrNoOwnership = errors.New("profile not owned by user")
	// ErrAlreadyBind is returned by Join when the claimed profile is not the
	// user's currently selected profile.
	ErrAlreadyBind = errors.New("profile already bound to a different user")
	// ErrProfileNotFound is returned by Profile for an unknown profile id.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEngineNotReady is returned when the Engine was not built through Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// APIError is the wire-level shape of an engine failure: a machine-readable
// exception kind plus a human message, matching the Yggdrasil protocol's
// error envelope.
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"errorMessage"`
}

// Error implements the error interface.
func (e APIError) Error() string {
	return e.Code + ": " + e.Message
}

// APIErrorFor maps an engine error to its [APIError] envelope. Unknown errors
// map to a generic IllegalArgumentException so internal detail never leaks.
func APIErrorFor(err error) APIError {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return APIError{
			Code:    "ForbiddenOperationException",
			Message: "Invalid credentials. Invalid username or password.",
		}
	case errors.Is(err, ErrInvalidToken):
		return APIError{
			Code:    "ForbiddenOperationException",
			Message: "Invalid token.",
		}
	case errors.Is(err, ErrInvalidProfile):
		return APIError{
			Code:    "IllegalArgumentException",
			Message: "Invalid profile.",
		}
	case errors.Is(err, ErrNoOwnership):
		return APIError{
			Code:    "ForbiddenOperationException",
			Message: "The profile is not owned by the authenticated user.",
		}
	case errors.Is(err, ErrAlreadyBind):
		return APIError{
			Code:    "ForbiddenOperationException",
			Message: "The profile is already bound to a different user.",
		}
	case errors.Is(err, ErrProfileNotFound):
		return APIError{
			Code:    "IllegalArgumentException",
			Message: "Profile not found.",
		}
	default:
		return APIError{
			Code:    "IllegalArgumentException",
			Message: "Invalid request.",
		}
	}
}

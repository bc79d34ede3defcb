package rate

import "errors"

// ErrUnavailable is returned by the Redis-backed limiter when the backend
// cannot be reached. Callers fail closed on it.
var ErrUnavailable = errors.New("rate limiter backend unavailable")

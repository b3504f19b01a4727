package rate

import "errors"

// ErrStorageUnavailable wraps backend failures surfaced by the limiter. The
// backend error stays in the chain.
var ErrStorageUnavailable = errors.New("rate limit storage unavailable")

package ratelimit

import (
	"context"
	"time"
)

// Limiter is the admission-control contract shared by the upload and
// realtime entry points. Identity is the client's network origin; both
// protocols consult the same backing store for the same identity.
type Limiter interface {
	// Allow records cost requests for the identity and reports whether they
	// fit in the current window. When refused, retryAfter hints how long
	// until the window rolls over.
	Allow(ctx context.Context, identity string, cost int) (ok bool, retryAfter time.Duration, err error)
}

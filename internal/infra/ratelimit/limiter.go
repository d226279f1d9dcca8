package ratelimit

import "context"

// Defaults for the gateway: 60 requests per fixed 60-second window per
// identity key.
const (
	DefaultLimit  = 60
	DefaultWindow = 60
)

// Limiter is a fixed-window counter per identity key. Allow reports whether
// this request still fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

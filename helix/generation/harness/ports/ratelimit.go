package harnessports

import "context"

// RateLimiter coordinates backend throughput per key (one key per session).
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

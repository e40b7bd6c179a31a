// Package idempotency remembers which order an Idempotency-Key produced so a
// retried request returns the same order instead of placing a second one.
package idempotency

import "context"

type Store interface {
	// TryLock claims key within scope. It returns false if another request holds it.
	TryLock(ctx context.Context, scope, key string) (bool, error)
	// Unlock gives up a claim whose request failed, so the client may retry.
	Unlock(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

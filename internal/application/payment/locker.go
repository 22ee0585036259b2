package payment

import (
	"context"
	"time"
)

// PaymentLocker serializes the workflow operations of a single payment.
// Approvals, execution and cancellation of the same payment run one at a
// time; operations on different payments proceed concurrently.
type PaymentLocker interface {
	// Acquire blocks until the lock for key is held, the bounded wait
	// elapses, or ctx is cancelled. On timeout it returns a
	// *payment.LockTimeoutError. The returned release function must be
	// called exactly once when the critical section ends.
	Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error)
}

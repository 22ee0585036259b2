package payment

import (
	"context"
)

// PostingResult is the outcome of requesting an accounting entry for an
// executed payment.
type PostingResult struct {
	JournalRef string `json:"journal_ref"`
	Success    bool   `json:"success"`
	Err        error  `json:"-"`
}

// PostingTrigger is the consumed interface to the bookkeeping subsystem.
// It is invoked exactly once per successful execution, outside the
// per-payment critical section. A posting failure never reverses the
// already-committed ledger mutation; the payment is flagged for
// reconciliation instead.
type PostingTrigger interface {
	Post(ctx context.Context, p *Payment) PostingResult
}

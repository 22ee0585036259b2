package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DuplicateApprovalError is returned when an approver tries to sign the
// same payment twice. One signature per distinct approver.
type DuplicateApprovalError struct {
	PaymentID  uuid.UUID
	ApproverID uuid.UUID
}

// Error implements the error interface
func (e *DuplicateApprovalError) Error() string {
	return fmt.Sprintf("approver %s has already signed payment %s", e.ApproverID, e.PaymentID)
}

// PaymentNotExecutableError is returned when execution is attempted on a
// payment that is not in APPROVED status. AlreadyExecuted distinguishes the
// idempotent re-execution case from a genuinely illegal attempt.
type PaymentNotExecutableError struct {
	PaymentID       uuid.UUID
	Status          PaymentStatus
	AlreadyExecuted bool
}

// Error implements the error interface
func (e *PaymentNotExecutableError) Error() string {
	if e.AlreadyExecuted {
		return fmt.Sprintf("payment %s has already been executed", e.PaymentID)
	}
	return fmt.Sprintf("payment %s is not executable in %s status", e.PaymentID, e.Status)
}

// LockTimeoutError is returned when the per-payment critical section could
// not be acquired within the configured wait. Safe to retry.
type LockTimeoutError struct {
	Key     string
	Timeout time.Duration
}

// Error implements the error interface
func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for lock %q", e.Timeout, e.Key)
}

// PostingFailedWarning signals that the accounting entry for an executed
// payment could not be created. The execution itself stands; the payment is
// flagged for reconciliation. Callers should treat this as a warning, not a
// failure of the payment.
type PostingFailedWarning struct {
	PaymentID uuid.UUID
	Cause     error
}

// Error implements the error interface
func (e *PostingFailedWarning) Error() string {
	return fmt.Sprintf("payment %s executed but posting failed: %v", e.PaymentID, e.Cause)
}

// Unwrap returns the underlying posting error
func (e *PostingFailedWarning) Unwrap() error {
	return e.Cause
}

package payment

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	// PaymentStatusDraft is the initial state; the payment is still editable
	PaymentStatusDraft PaymentStatus = "DRAFT"
	// PaymentStatusPendingApproval means the payment is collecting signatures
	PaymentStatusPendingApproval PaymentStatus = "PENDING_APPROVAL"
	// PaymentStatusApproved means the signature threshold is met and the payment may execute
	PaymentStatusApproved PaymentStatus = "APPROVED"
	// PaymentStatusExecuted means the balance mutation has been committed
	PaymentStatusExecuted PaymentStatus = "EXECUTED"
	// PaymentStatusConfirmed means external settlement confirmation arrived
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	// PaymentStatusCancelled means the payment was cancelled before execution
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	// PaymentStatusFailed means execution was attempted and permanently rejected
	PaymentStatusFailed PaymentStatus = "FAILED"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusDraft, PaymentStatusPendingApproval, PaymentStatusApproved,
		PaymentStatusExecuted, PaymentStatusConfirmed, PaymentStatusCancelled, PaymentStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
// EXECUTED is terminal for balance purposes but may still move to CONFIRMED.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusCancelled || s == PaymentStatusFailed
}

// CanSubmit returns true if the payment can be submitted for approval
func (s PaymentStatus) CanSubmit() bool {
	return s == PaymentStatusDraft
}

// CanApprove returns true if signatures can be recorded in this status
func (s PaymentStatus) CanApprove() bool {
	return s == PaymentStatusPendingApproval
}

// CanExecute returns true if execution may be attempted in this status
func (s PaymentStatus) CanExecute() bool {
	return s == PaymentStatusApproved
}

// CanCancel returns true if the payment can be cancelled in this status
func (s PaymentStatus) CanCancel() bool {
	return s == PaymentStatusDraft || s == PaymentStatusPendingApproval || s == PaymentStatusApproved
}

// CanConfirm returns true if settlement confirmation can be recorded
func (s PaymentStatus) CanConfirm() bool {
	return s == PaymentStatusExecuted
}

// Direction represents which way a payment moves money relative to the bank account
type Direction string

const (
	// DirectionInbound credits the bank account
	DirectionInbound Direction = "INBOUND"
	// DirectionOutbound debits the bank account
	DirectionOutbound Direction = "OUTBOUND"
)

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// PostingState tracks whether the accounting entry for an executed payment
// has been created. A failed posting never reverses the execution; it is
// surfaced here for reconciliation.
type PostingState string

const (
	// PostingStateNone means no posting has been attempted yet
	PostingStateNone PostingState = "NONE"
	// PostingStatePosted means the journal entry was created
	PostingStatePosted PostingState = "POSTED"
	// PostingStatePendingReconciliation means posting failed and needs manual follow-up
	PostingStatePendingReconciliation PostingState = "PENDING_RECONCILIATION"
)

// String returns the string representation of PostingState
func (p PostingState) String() string {
	return string(p)
}

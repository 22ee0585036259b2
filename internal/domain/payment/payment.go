package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/shared"
	"github.com/treasury/backend/internal/domain/shared/valueobject"
)

// ApprovalRecord is one signature event against a payment. The list is
// append-only and exists to prevent the same approver from signing twice;
// the count, not the list, drives the state machine.
type ApprovalRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	PaymentID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ApproverID uuid.UUID `gorm:"type:uuid;not null;index"`
	Ordinal    int       `gorm:"not null"` // 1-based position in the signature sequence
	SignedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ApprovalRecord) TableName() string {
	return "payment_approvals"
}

// NewApprovalRecord creates a new approval record
func NewApprovalRecord(paymentID, approverID uuid.UUID, ordinal int) *ApprovalRecord {
	return &ApprovalRecord{
		ID:         uuid.New(),
		PaymentID:  paymentID,
		ApproverID: approverID,
		Ordinal:    ordinal,
		SignedAt:   time.Now(),
	}
}

// ApprovalProgress reports the signature ratio after a recorded approval
type ApprovalProgress struct {
	CurrentSignatures  int  `json:"current_signatures"`
	RequiredSignatures int  `json:"required_signatures"`
	FullyApproved      bool `json:"fully_approved"`
}

// String returns the ratio in "n/m" form
func (p ApprovalProgress) String() string {
	return fmt.Sprintf("%d/%d", p.CurrentSignatures, p.RequiredSignatures)
}

// Payment represents one instruction to move money between a bank account
// and a counterparty. It is the aggregate root of the approval workflow:
// status, signature count and timestamps only change through its methods.
// Once out of DRAFT a payment is never physically deleted.
type Payment struct {
	shared.CompanyAggregateRoot
	Reference          string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_company_ref,priority:2"`
	Direction          Direction            `gorm:"type:varchar(10);not null"`
	Amount             decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency           valueobject.Currency `gorm:"type:varchar(3);not null;default:'EUR'"`
	BeneficiaryName    string               `gorm:"type:varchar(200)"`
	BeneficiaryAccount string               `gorm:"type:varchar(34)"` // Counterparty IBAN
	BankAccountID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	Status             PaymentStatus        `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	CurrentSignatures  int                  `gorm:"not null;default:0"`
	RequiredSignatures int                  `gorm:"not null;default:0"` // Frozen at submission
	Approvals          []ApprovalRecord     `gorm:"foreignKey:PaymentID;references:ID"`
	Purpose            string               `gorm:"type:varchar(500)"`
	SubmittedAt        *time.Time
	ExecutedAt         *time.Time
	ConfirmedAt        *time.Time
	SettlementRef      string `gorm:"type:varchar(100)"`
	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID `gorm:"type:uuid"`
	CancelReason       string     `gorm:"type:varchar(500)"`
	FailedAt           *time.Time
	FailureReason      string       `gorm:"type:varchar(500)"`
	PostingState       PostingState `gorm:"type:varchar(30);not null;default:'NONE'"`
	JournalRef         string       `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a new payment in DRAFT status
func NewPayment(
	companyID uuid.UUID,
	reference string,
	direction Direction,
	amount valueobject.Money,
	bankAccountID uuid.UUID,
	beneficiaryName string,
	beneficiaryAccount string,
) (*Payment, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Payment reference cannot be empty")
	}
	if len(reference) > 50 {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Payment reference cannot exceed 50 characters")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Payment direction is not valid")
	}
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if bankAccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID cannot be empty")
	}

	p := &Payment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Reference:            reference,
		Direction:            direction,
		Amount:               amount.Amount(),
		Currency:             amount.Currency(),
		BeneficiaryName:      beneficiaryName,
		BeneficiaryAccount:   beneficiaryAccount,
		BankAccountID:        bankAccountID,
		Status:               PaymentStatusDraft,
		PostingState:         PostingStateNone,
		Approvals:            make([]ApprovalRecord, 0),
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return p, nil
}

// SubmitForApproval moves a DRAFT payment into the approval workflow.
// The required signature count is computed from the policy here, once, and
// frozen for the payment's whole lifetime.
func (p *Payment) SubmitForApproval(policy *SignaturePolicy) error {
	if !p.Status.CanSubmit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit payment in %s status", p.Status))
	}
	if p.BeneficiaryName == "" {
		return shared.NewDomainError("MISSING_BENEFICIARY", "Beneficiary name is required for submission")
	}
	if p.BeneficiaryAccount == "" {
		return shared.NewDomainError("MISSING_BENEFICIARY_ACCOUNT", "Beneficiary account is required for submission")
	}
	if policy == nil {
		return shared.NewDomainError("INVALID_POLICY", "Signature policy is required")
	}

	now := time.Now()
	p.RequiredSignatures = policy.RequiredSignatures(p.Amount)
	p.CurrentSignatures = 0
	p.Status = PaymentStatusPendingApproval
	p.SubmittedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentSubmittedEvent(p))

	return nil
}

// HasApprovalFrom returns true if the approver has already signed
func (p *Payment) HasApprovalFrom(approverID uuid.UUID) bool {
	for i := range p.Approvals {
		if p.Approvals[i].ApproverID == approverID {
			return true
		}
	}
	return false
}

// RecordApproval appends one signature. Each distinct approver may sign at
// most once. When the frozen threshold is reached the payment transitions
// to APPROVED. Returns the new signature ratio for caller feedback.
func (p *Payment) RecordApproval(approverID uuid.UUID) (ApprovalProgress, error) {
	progress := ApprovalProgress{
		CurrentSignatures:  p.CurrentSignatures,
		RequiredSignatures: p.RequiredSignatures,
	}

	if !p.Status.CanApprove() {
		return progress, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve payment in %s status", p.Status))
	}
	if approverID == uuid.Nil {
		return progress, shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}
	if p.HasApprovalFrom(approverID) {
		return progress, &DuplicateApprovalError{PaymentID: p.ID, ApproverID: approverID}
	}

	record := NewApprovalRecord(p.ID, approverID, p.CurrentSignatures+1)
	p.Approvals = append(p.Approvals, *record)
	p.CurrentSignatures++
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentApprovalRecordedEvent(p, record))

	if p.CurrentSignatures >= p.RequiredSignatures {
		p.Status = PaymentStatusApproved
		p.AddDomainEvent(NewPaymentFullyApprovedEvent(p))
	}

	progress.CurrentSignatures = p.CurrentSignatures
	progress.FullyApproved = p.Status == PaymentStatusApproved

	return progress, nil
}

// Cancel soft-cancels the payment. Legal only before execution.
func (p *Payment) Cancel(cancelledBy uuid.UUID, reason string) error {
	if !p.Status.CanCancel() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel payment in %s status", p.Status))
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Cancelling user ID is required")
	}

	now := time.Now()
	previousStatus := p.Status
	p.Status = PaymentStatusCancelled
	p.CancelledAt = &now
	p.CancelledBy = &cancelledBy
	p.CancelReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentCancelledEvent(p, previousStatus))

	return nil
}

// MarkExecuted records the committed balance mutation. Invoked only by the
// execution flow inside the per-payment critical section, never directly by
// external callers.
func (p *Payment) MarkExecuted(executionTime time.Time) error {
	if !p.Status.CanExecute() {
		if p.Status == PaymentStatusExecuted || p.Status == PaymentStatusConfirmed {
			return &PaymentNotExecutableError{PaymentID: p.ID, Status: p.Status, AlreadyExecuted: true}
		}
		return &PaymentNotExecutableError{PaymentID: p.ID, Status: p.Status}
	}
	if executionTime.IsZero() {
		executionTime = time.Now()
	}

	p.Status = PaymentStatusExecuted
	p.ExecutedAt = &executionTime
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentExecutedEvent(p))

	return nil
}

// MarkFailed records a permanent execution rejection. Retriable conditions
// (insufficient balance) leave the payment APPROVED instead.
func (p *Payment) MarkFailed(reason string) error {
	if !p.Status.CanExecute() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail payment in %s status", p.Status))
	}

	now := time.Now()
	p.Status = PaymentStatusFailed
	p.FailedAt = &now
	p.FailureReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentFailedEvent(p))

	return nil
}

// Confirm records external settlement confirmation for an executed payment
func (p *Payment) Confirm(settlementRef string) error {
	if !p.Status.CanConfirm() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm payment in %s status", p.Status))
	}

	now := time.Now()
	p.Status = PaymentStatusConfirmed
	p.ConfirmedAt = &now
	p.SettlementRef = settlementRef
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentConfirmedEvent(p))

	return nil
}

// MarkPosted records the journal reference of a successful posting
func (p *Payment) MarkPosted(journalRef string) {
	p.PostingState = PostingStatePosted
	p.JournalRef = journalRef
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// MarkPostingFailed flags the payment for reconciliation after a failed
// posting. The executed status is untouched.
func (p *Payment) MarkPostingFailed() {
	p.PostingState = PostingStatePendingReconciliation
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// SetPurpose sets the free-text payment purpose. Only allowed in DRAFT;
// amount, beneficiary and account are immutable after execution and frozen
// for edits once the payment enters the approval workflow.
func (p *Payment) SetPurpose(purpose string) error {
	if p.Status != PaymentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Payment details can only be edited in DRAFT status")
	}
	if len(purpose) > 500 {
		return shared.NewDomainError("INVALID_PURPOSE", "Purpose cannot exceed 500 characters")
	}
	p.Purpose = purpose
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// AmountMoney returns the payment amount as a Money value object
func (p *Payment) AmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, p.Currency)
	return m
}

// IsOutbound returns true if execution debits the bank account
func (p *Payment) IsOutbound() bool {
	return p.Direction == DirectionOutbound
}

// Progress returns the current signature ratio
func (p *Payment) Progress() ApprovalProgress {
	return ApprovalProgress{
		CurrentSignatures:  p.CurrentSignatures,
		RequiredSignatures: p.RequiredSignatures,
		FullyApproved:      p.Status == PaymentStatusApproved,
	}
}

package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/shared"
)

// PaymentCreatedEvent is raised when a new payment is created in DRAFT
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	Reference     string          `json:"reference"`
	Direction     Direction       `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
}

// EventType returns the event type name
func (e *PaymentCreatedEvent) EventType() string {
	return "PaymentCreated"
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentCreated", "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		Reference:       p.Reference,
		Direction:       p.Direction,
		Amount:          p.Amount,
		BankAccountID:   p.BankAccountID,
	}
}

// PaymentSubmittedEvent is raised when a payment enters the approval workflow
type PaymentSubmittedEvent struct {
	shared.BaseDomainEvent
	PaymentID          uuid.UUID       `json:"payment_id"`
	Reference          string          `json:"reference"`
	Amount             decimal.Decimal `json:"amount"`
	RequiredSignatures int             `json:"required_signatures"`
}

// EventType returns the event type name
func (e *PaymentSubmittedEvent) EventType() string {
	return "PaymentSubmitted"
}

// NewPaymentSubmittedEvent creates a new PaymentSubmittedEvent
func NewPaymentSubmittedEvent(p *Payment) *PaymentSubmittedEvent {
	return &PaymentSubmittedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent("PaymentSubmitted", "Payment", p.ID, p.CompanyID),
		PaymentID:          p.ID,
		Reference:          p.Reference,
		Amount:             p.Amount,
		RequiredSignatures: p.RequiredSignatures,
	}
}

// PaymentApprovalRecordedEvent is raised for every recorded signature
type PaymentApprovalRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID          uuid.UUID `json:"payment_id"`
	Reference          string    `json:"reference"`
	ApproverID         uuid.UUID `json:"approver_id"`
	CurrentSignatures  int       `json:"current_signatures"`
	RequiredSignatures int       `json:"required_signatures"`
	SignedAt           time.Time `json:"signed_at"`
}

// EventType returns the event type name
func (e *PaymentApprovalRecordedEvent) EventType() string {
	return "PaymentApprovalRecorded"
}

// NewPaymentApprovalRecordedEvent creates a new PaymentApprovalRecordedEvent
func NewPaymentApprovalRecordedEvent(p *Payment, record *ApprovalRecord) *PaymentApprovalRecordedEvent {
	return &PaymentApprovalRecordedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent("PaymentApprovalRecorded", "Payment", p.ID, p.CompanyID),
		PaymentID:          p.ID,
		Reference:          p.Reference,
		ApproverID:         record.ApproverID,
		CurrentSignatures:  p.CurrentSignatures,
		RequiredSignatures: p.RequiredSignatures,
		SignedAt:           record.SignedAt,
	}
}

// PaymentFullyApprovedEvent is raised when the signature threshold is met
type PaymentFullyApprovedEvent struct {
	shared.BaseDomainEvent
	PaymentID  uuid.UUID       `json:"payment_id"`
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	Signatures int             `json:"signatures"`
}

// EventType returns the event type name
func (e *PaymentFullyApprovedEvent) EventType() string {
	return "PaymentFullyApproved"
}

// NewPaymentFullyApprovedEvent creates a new PaymentFullyApprovedEvent
func NewPaymentFullyApprovedEvent(p *Payment) *PaymentFullyApprovedEvent {
	return &PaymentFullyApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentFullyApproved", "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		Reference:       p.Reference,
		Amount:          p.Amount,
		Signatures:      p.CurrentSignatures,
	}
}

// PaymentExecutedEvent is raised when the balance mutation has committed
type PaymentExecutedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	Reference     string          `json:"reference"`
	Direction     Direction       `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	ExecutedAt    time.Time       `json:"executed_at"`
}

// EventType returns the event type name
func (e *PaymentExecutedEvent) EventType() string {
	return "PaymentExecuted"
}

// NewPaymentExecutedEvent creates a new PaymentExecutedEvent
func NewPaymentExecutedEvent(p *Payment) *PaymentExecutedEvent {
	executedAt := time.Now()
	if p.ExecutedAt != nil {
		executedAt = *p.ExecutedAt
	}
	return &PaymentExecutedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentExecuted", "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		Reference:       p.Reference,
		Direction:       p.Direction,
		Amount:          p.Amount,
		BankAccountID:   p.BankAccountID,
		ExecutedAt:      executedAt,
	}
}

// PaymentFailedEvent is raised when execution is permanently rejected
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID `json:"payment_id"`
	Reference string    `json:"reference"`
	Reason    string    `json:"reason"`
}

// EventType returns the event type name
func (e *PaymentFailedEvent) EventType() string {
	return "PaymentFailed"
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(p *Payment) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentFailed", "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		Reference:       p.Reference,
		Reason:          p.FailureReason,
	}
}

// PaymentCancelledEvent is raised when a payment is cancelled
type PaymentCancelledEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID     `json:"payment_id"`
	Reference      string        `json:"reference"`
	PreviousStatus PaymentStatus `json:"previous_status"`
	CancelledBy    uuid.UUID     `json:"cancelled_by"`
	CancelReason   string        `json:"cancel_reason"`
}

// EventType returns the event type name
func (e *PaymentCancelledEvent) EventType() string {
	return "PaymentCancelled"
}

// NewPaymentCancelledEvent creates a new PaymentCancelledEvent
func NewPaymentCancelledEvent(p *Payment, previousStatus PaymentStatus) *PaymentCancelledEvent {
	var cancelledBy uuid.UUID
	if p.CancelledBy != nil {
		cancelledBy = *p.CancelledBy
	}
	return &PaymentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentCancelled", "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		Reference:       p.Reference,
		PreviousStatus:  previousStatus,
		CancelledBy:     cancelledBy,
		CancelReason:    p.CancelReason,
	}
}

// PaymentConfirmedEvent is raised when settlement confirmation arrives
type PaymentConfirmedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID `json:"payment_id"`
	Reference     string    `json:"reference"`
	SettlementRef string    `json:"settlement_ref"`
}

// EventType returns the event type name
func (e *PaymentConfirmedEvent) EventType() string {
	return "PaymentConfirmed"
}

// NewPaymentConfirmedEvent creates a new PaymentConfirmedEvent
func NewPaymentConfirmedEvent(p *Payment) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentConfirmed", "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		Reference:       p.Reference,
		SettlementRef:   p.SettlementRef,
	}
}

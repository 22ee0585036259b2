package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/payment"
)

// CreatePaymentRequest represents a request to create a payment draft
type CreatePaymentRequest struct {
	CompanyID          uuid.UUID
	Direction          payment.Direction
	Amount             decimal.Decimal
	Currency           string
	BankAccountID      uuid.UUID
	BeneficiaryName    string
	BeneficiaryAccount string
	Purpose            string
	CreatedBy          *uuid.UUID
}

// ApprovalResult reports the outcome of one recorded approval
type ApprovalResult struct {
	PaymentID          uuid.UUID `json:"payment_id"`
	Reference          string    `json:"reference"`
	ApproverID         uuid.UUID `json:"approver_id"`
	CurrentSignatures  int       `json:"current_signatures"`
	RequiredSignatures int       `json:"required_signatures"`
	FullyApproved      bool      `json:"fully_approved"`
	Status             string    `json:"status"`
}

// ExecutionResult reports the outcome of a payment execution
type ExecutionResult struct {
	PaymentID       uuid.UUID       `json:"payment_id"`
	Reference       string          `json:"reference"`
	AlreadyExecuted bool            `json:"already_executed"`
	BalanceBefore   decimal.Decimal `json:"balance_before"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	LedgerEntryID   uuid.UUID       `json:"ledger_entry_id"`
	ExecutedAt      *time.Time      `json:"executed_at,omitempty"`
	PostingState    string          `json:"posting_state"`
	JournalRef      string          `json:"journal_ref,omitempty"`
}

// ApprovalResponse represents one approval record in API responses
type ApprovalResponse struct {
	ApproverID uuid.UUID `json:"approver_id"`
	Ordinal    int       `json:"ordinal"`
	SignedAt   time.Time `json:"signed_at"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                 uuid.UUID          `json:"id"`
	CompanyID          uuid.UUID          `json:"company_id"`
	Reference          string             `json:"reference"`
	Direction          string             `json:"direction"`
	Amount             decimal.Decimal    `json:"amount"`
	Currency           string             `json:"currency"`
	BeneficiaryName    string             `json:"beneficiary_name"`
	BeneficiaryAccount string             `json:"beneficiary_account"`
	BankAccountID      uuid.UUID          `json:"bank_account_id"`
	Status             string             `json:"status"`
	CurrentSignatures  int                `json:"current_signatures"`
	RequiredSignatures int                `json:"required_signatures"`
	Approvals          []ApprovalResponse `json:"approvals"`
	Purpose            string             `json:"purpose,omitempty"`
	SubmittedAt        *time.Time         `json:"submitted_at,omitempty"`
	ExecutedAt         *time.Time         `json:"executed_at,omitempty"`
	ConfirmedAt        *time.Time         `json:"confirmed_at,omitempty"`
	SettlementRef      string             `json:"settlement_ref,omitempty"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason       string             `json:"cancel_reason,omitempty"`
	FailureReason      string             `json:"failure_reason,omitempty"`
	PostingState       string             `json:"posting_state"`
	JournalRef         string             `json:"journal_ref,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	Version            int                `json:"version"`
}

// ToPaymentResponse converts a payment aggregate to its API representation
func ToPaymentResponse(p *payment.Payment) *PaymentResponse {
	approvals := make([]ApprovalResponse, 0, len(p.Approvals))
	for _, a := range p.Approvals {
		approvals = append(approvals, ApprovalResponse{
			ApproverID: a.ApproverID,
			Ordinal:    a.Ordinal,
			SignedAt:   a.SignedAt,
		})
	}

	return &PaymentResponse{
		ID:                 p.ID,
		CompanyID:          p.CompanyID,
		Reference:          p.Reference,
		Direction:          string(p.Direction),
		Amount:             p.Amount,
		Currency:           string(p.Currency),
		BeneficiaryName:    p.BeneficiaryName,
		BeneficiaryAccount: p.BeneficiaryAccount,
		BankAccountID:      p.BankAccountID,
		Status:             string(p.Status),
		CurrentSignatures:  p.CurrentSignatures,
		RequiredSignatures: p.RequiredSignatures,
		Approvals:          approvals,
		Purpose:            p.Purpose,
		SubmittedAt:        p.SubmittedAt,
		ExecutedAt:         p.ExecutedAt,
		ConfirmedAt:        p.ConfirmedAt,
		SettlementRef:      p.SettlementRef,
		CancelledAt:        p.CancelledAt,
		CancelReason:       p.CancelReason,
		FailureReason:      p.FailureReason,
		PostingState:       string(p.PostingState),
		JournalRef:         p.JournalRef,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
		Version:            p.Version,
	}
}

// PaymentListFilter represents filter options for payment lists
type PaymentListFilter struct {
	Status        string     `form:"status"`
	Direction     string     `form:"direction"`
	BankAccountID *uuid.UUID `form:"bank_account_id"`
	PostingState  string     `form:"posting_state"`
	Page          int        `form:"page" binding:"omitempty,min=1"`
	PageSize      int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

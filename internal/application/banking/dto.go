package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/banking"
)

// CreateAccountRequest represents a request to open a bank account
type CreateAccountRequest struct {
	CompanyID      uuid.UUID
	Name           string
	IBAN           string
	OpeningBalance decimal.Decimal
	OverdraftLimit decimal.Decimal
	Currency       string
}

// AccountResponse represents a bank account in API responses
type AccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	CompanyID      uuid.UUID       `json:"company_id"`
	Name           string          `json:"name"`
	IBAN           string          `json:"iban"`
	Balance        decimal.Decimal `json:"balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
	Available      decimal.Decimal `json:"available"`
	Currency       string          `json:"currency"`
	Active         bool            `json:"active"`
	DeactivatedAt  *time.Time      `json:"deactivated_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ToAccountResponse converts a bank account aggregate to its API representation
func ToAccountResponse(a *banking.BankAccount) *AccountResponse {
	return &AccountResponse{
		ID:             a.ID,
		CompanyID:      a.CompanyID,
		Name:           a.Name,
		IBAN:           a.IBAN,
		Balance:        a.Balance,
		OverdraftLimit: a.OverdraftLimit,
		Available:      a.Available(),
		Currency:       string(a.Currency),
		Active:         a.Active,
		DeactivatedAt:  a.DeactivatedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		Version:        a.Version,
	}
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID            uuid.UUID       `json:"id"`
	BankAccountID uuid.UUID       `json:"bank_account_id"`
	PaymentID     *uuid.UUID      `json:"payment_id,omitempty"`
	Direction     string          `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	SignedAmount  decimal.Decimal `json:"signed_amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Reference     string          `json:"reference,omitempty"`
	EntryDate     time.Time       `json:"entry_date"`
}

// ToLedgerEntryResponse converts a ledger entry to its API representation
func ToLedgerEntryResponse(e *banking.LedgerEntry) *LedgerEntryResponse {
	return &LedgerEntryResponse{
		ID:            e.ID,
		BankAccountID: e.BankAccountID,
		PaymentID:     e.PaymentID,
		Direction:     string(e.Direction),
		Amount:        e.Amount,
		SignedAmount:  e.SignedAmount(),
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Reference:     e.Reference,
		EntryDate:     e.EntryDate,
	}
}

// LedgerListFilter represents filter options for ledger entry lists
type LedgerListFilter struct {
	Direction string     `form:"direction"`
	PaymentID *uuid.UUID `form:"payment_id"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/shared"
)

// EntryDirection represents the direction of a ledger entry
type EntryDirection string

const (
	// EntryDirectionDebit represents money leaving the account
	EntryDirectionDebit EntryDirection = "DEBIT"
	// EntryDirectionCredit represents money arriving on the account
	EntryDirectionCredit EntryDirection = "CREDIT"
)

// String returns the string representation of EntryDirection
func (d EntryDirection) String() string {
	return string(d)
}

// IsValid returns true if the direction is valid
func (d EntryDirection) IsValid() bool {
	return d == EntryDirectionDebit || d == EntryDirectionCredit
}

// LedgerEntry is an immutable record of one balance change on a bank account.
// Once created, entries cannot be modified; corrections require new entries.
// Summing all entries of an account reconstructs its balance.
type LedgerEntry struct {
	shared.BaseEntity
	CompanyID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	BankAccountID uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentID     *uuid.UUID      `gorm:"type:uuid;index"` // Set when the entry was caused by a payment execution
	Direction     EntryDirection  `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Always positive
	BalanceBefore decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reference     string          `gorm:"type:varchar(100)"`
	EntryDate     time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry creates a new ledger entry
func NewLedgerEntry(
	companyID uuid.UUID,
	accountID uuid.UUID,
	direction EntryDirection,
	amount decimal.Decimal,
	balanceBefore decimal.Decimal,
	balanceAfter decimal.Decimal,
) (*LedgerEntry, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_COMPANY", "Company ID cannot be empty")
	}
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Bank account ID cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Invalid ledger entry direction")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}

	return &LedgerEntry{
		BaseEntity:    shared.NewBaseEntity(),
		CompanyID:     companyID,
		BankAccountID: accountID,
		Direction:     direction,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		EntryDate:     time.Now(),
	}, nil
}

// WithPaymentID links the entry to the payment that caused it
func (e *LedgerEntry) WithPaymentID(paymentID uuid.UUID) *LedgerEntry {
	e.PaymentID = &paymentID
	return e
}

// WithReference sets the human-readable reference for the entry
func (e *LedgerEntry) WithReference(reference string) *LedgerEntry {
	e.Reference = reference
	return e
}

// SignedAmount returns the amount with sign: negative for debits, positive for credits
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == EntryDirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// BalanceChange returns the net balance change recorded by the entry
func (e *LedgerEntry) BalanceChange() decimal.Decimal {
	return e.BalanceAfter.Sub(e.BalanceBefore)
}

// IsConsistent returns true if the recorded before/after pair matches the
// signed amount, the per-entry slice of the reconstruction invariant
func (e *LedgerEntry) IsConsistent() bool {
	return e.BalanceBefore.Add(e.SignedAmount()).Equal(e.BalanceAfter)
}

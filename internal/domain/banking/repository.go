package banking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/shared"
)

// BankAccountRepository defines the interface for bank account persistence
type BankAccountRepository interface {
	// FindByID finds a bank account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*BankAccount, error)

	// FindByIDForCompany finds a bank account by ID for a specific company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*BankAccount, error)

	// FindByIBAN finds a bank account by IBAN for a company
	FindByIBAN(ctx context.Context, companyID uuid.UUID, iban string) (*BankAccount, error)

	// FindAllForCompany finds all bank accounts for a company
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]BankAccount, error)

	// Save creates or updates a bank account
	Save(ctx context.Context, account *BankAccount) error

	// SaveWithLock saves with optimistic locking (version check).
	// Returns shared.ErrConcurrencyConflict semantics when the stored
	// version no longer matches.
	SaveWithLock(ctx context.Context, account *BankAccount) error

	// CountForCompany counts bank accounts for a company
	CountForCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// LedgerEntryFilter defines filtering options for ledger entry queries
type LedgerEntryFilter struct {
	shared.Filter
	Direction *EntryDirection
	PaymentID *uuid.UUID
	FromDate  *time.Time
	ToDate    *time.Time
}

// LedgerEntryRepository defines the interface for the append-only ledger.
// Entries are never updated or deleted.
type LedgerEntryRepository interface {
	// Create appends a new ledger entry
	Create(ctx context.Context, entry *LedgerEntry) error

	// FindByID finds a ledger entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*LedgerEntry, error)

	// FindByAccount finds entries for a bank account, oldest first
	FindByAccount(ctx context.Context, companyID, accountID uuid.UUID, filter LedgerEntryFilter) ([]LedgerEntry, error)

	// FindByPayment finds the entries caused by a payment execution
	FindByPayment(ctx context.Context, companyID, paymentID uuid.UUID) ([]LedgerEntry, error)

	// SumByAccount sums the signed amounts of all entries for an account
	SumByAccount(ctx context.Context, companyID, accountID uuid.UUID) (decimal.Decimal, error)

	// CountByAccount counts entries for an account
	CountByAccount(ctx context.Context, companyID, accountID uuid.UUID) (int64, error)
}

package persistence

import (
	"context"

	"gorm.io/gorm"

	apppayment "github.com/treasury/backend/internal/application/payment"
	"github.com/treasury/backend/internal/domain/banking"
	"github.com/treasury/backend/internal/domain/payment"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Payment execution writes the balance mutation, the ledger entry and the
// status change through one scope so they commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apppayment.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() payment.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// AccountRepo returns the bank account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AccountRepo() banking.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

// LedgerRepo returns the ledger entry repository scoped to the current transaction.
func (r *gormTransactionalRepositories) LedgerRepo() banking.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apppayment.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ apppayment.TransactionalRepositories = (*gormTransactionalRepositories)(nil)

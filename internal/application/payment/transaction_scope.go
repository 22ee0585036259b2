package payment

import (
	"context"

	"github.com/treasury/backend/internal/domain/banking"
	"github.com/treasury/backend/internal/domain/payment"
)

// TransactionScope provides transactional access to the execution repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories touched by a
// payment execution within one transaction. All repositories returned share
// the same underlying database transaction.
//
// Aggregate boundary notes:
//   - PaymentRepo: Repository for the Payment aggregate root. Approval
//     records are children of the payment and are persisted through it.
//   - AccountRepo: Repository for the BankAccount aggregate root. The
//     balance mutation and the payment status change commit together.
//   - LedgerRepo: Append-only repository for ledger entries. Entries are
//     created in the same transaction as the balance they record.
type TransactionalRepositories interface {
	// PaymentRepo returns the payment repository scoped to the current transaction
	PaymentRepo() payment.PaymentRepository
	// AccountRepo returns the bank account repository scoped to the current transaction
	AccountRepo() banking.BankAccountRepository
	// LedgerRepo returns the ledger entry repository scoped to the current transaction
	LedgerRepo() banking.LedgerEntryRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	paymentRepo payment.PaymentRepository
	accountRepo banking.BankAccountRepository
	ledgerRepo  banking.LedgerEntryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	paymentRepo payment.PaymentRepository,
	accountRepo banking.BankAccountRepository,
	ledgerRepo banking.LedgerEntryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		paymentRepo: paymentRepo,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() payment.PaymentRepository {
	return s.paymentRepo
}

// AccountRepo returns the bank account repository.
func (s *NoOpTransactionScope) AccountRepo() banking.BankAccountRepository {
	return s.accountRepo
}

// LedgerRepo returns the ledger entry repository.
func (s *NoOpTransactionScope) LedgerRepo() banking.LedgerEntryRepository {
	return s.ledgerRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

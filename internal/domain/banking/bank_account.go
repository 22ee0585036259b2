package banking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/shared"
	"github.com/treasury/backend/internal/domain/shared/valueobject"
)

// AccountInactiveError is returned when an operation targets a deactivated account
type AccountInactiveError struct {
	AccountID uuid.UUID
}

// Error implements the error interface
func (e *AccountInactiveError) Error() string {
	return fmt.Sprintf("bank account %s is inactive", e.AccountID)
}

// InsufficientBalanceError is returned when a debit would push the balance
// below the overdraft limit. It carries the shortfall so callers can decide
// whether to retry after funding.
type InsufficientBalanceError struct {
	AccountID        uuid.UUID       `json:"account_id"`
	RequiredAmount   decimal.Decimal `json:"required_amount"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Shortfall        decimal.Decimal `json:"shortfall"`
}

// Error implements the error interface
func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on account %s: required %s, available %s, shortfall %s",
		e.AccountID, e.RequiredAmount.StringFixed(2), e.AvailableBalance.StringFixed(2), e.Shortfall.StringFixed(2))
}

// NewInsufficientBalanceError creates an InsufficientBalanceError for the given debit attempt
func NewInsufficientBalanceError(accountID uuid.UUID, required, available decimal.Decimal) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		AccountID:        accountID,
		RequiredAmount:   required,
		AvailableBalance: available,
		Shortfall:        required.Sub(available),
	}
}

// BankAccount represents a ledger-bearing account aggregate root.
// The balance is only mutated through Debit and Credit; the availability
// check and the mutation are one indivisible operation on the aggregate.
type BankAccount struct {
	shared.CompanyAggregateRoot
	Name           string               `gorm:"type:varchar(200);not null"`
	IBAN           string               `gorm:"type:varchar(34);not null;uniqueIndex:idx_account_company_iban,priority:2"`
	Balance        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	OverdraftLimit decimal.Decimal      `gorm:"type:decimal(18,4);not null"` // Always >= 0
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null;default:'EUR'"`
	Active         bool                 `gorm:"not null;default:true;index"`
	DeactivatedAt  *time.Time
}

// TableName returns the table name for GORM
func (BankAccount) TableName() string {
	return "bank_accounts"
}

// NewBankAccount creates a new bank account
func NewBankAccount(
	companyID uuid.UUID,
	name string,
	iban string,
	openingBalance decimal.Decimal,
	overdraftLimit decimal.Decimal,
	currency valueobject.Currency,
) (*BankAccount, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_NAME", "Account name cannot be empty")
	}
	if iban == "" {
		return nil, shared.NewDomainError("INVALID_IBAN", "IBAN cannot be empty")
	}
	if len(iban) > 34 {
		return nil, shared.NewDomainError("INVALID_IBAN", "IBAN cannot exceed 34 characters")
	}
	if overdraftLimit.IsNegative() {
		return nil, shared.NewDomainError("INVALID_OVERDRAFT_LIMIT", "Overdraft limit cannot be negative")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency is not valid")
	}

	account := &BankAccount{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Name:                 name,
		IBAN:                 iban,
		Balance:              openingBalance,
		OverdraftLimit:       overdraftLimit,
		Currency:             currency,
		Active:               true,
	}

	account.AddDomainEvent(NewBankAccountOpenedEvent(account))

	return account, nil
}

// Available returns the amount that can still be debited: balance plus overdraft headroom
func (a *BankAccount) Available() decimal.Decimal {
	return a.Balance.Add(a.OverdraftLimit)
}

// Debit reduces the balance by amount and returns the new balance.
// The check `balance - amount >= -overdraft` and the mutation are a single
// operation; callers never see a separate read-then-write pair.
func (a *BankAccount) Debit(amount decimal.Decimal) (decimal.Decimal, error) {
	if !a.Active {
		return a.Balance, &AccountInactiveError{AccountID: a.ID}
	}
	if amount.IsNegative() || amount.IsZero() {
		return a.Balance, shared.NewDomainError("INVALID_AMOUNT", "Debit amount must be positive")
	}
	if amount.GreaterThan(a.Available()) {
		return a.Balance, NewInsufficientBalanceError(a.ID, amount, a.Available())
	}

	a.Balance = a.Balance.Sub(amount)
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return a.Balance, nil
}

// Credit increases the balance by amount and returns the new balance
func (a *BankAccount) Credit(amount decimal.Decimal) (decimal.Decimal, error) {
	if !a.Active {
		return a.Balance, &AccountInactiveError{AccountID: a.ID}
	}
	if amount.IsNegative() || amount.IsZero() {
		return a.Balance, shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}

	a.Balance = a.Balance.Add(amount)
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return a.Balance, nil
}

// Deactivate blocks all future executions against the account.
// The balance is untouched.
func (a *BankAccount) Deactivate() error {
	if !a.Active {
		return shared.NewDomainError("INVALID_STATE", "Account is already inactive")
	}
	now := time.Now()
	a.Active = false
	a.DeactivatedAt = &now
	a.UpdatedAt = now
	a.IncrementVersion()

	a.AddDomainEvent(NewBankAccountDeactivatedEvent(a))

	return nil
}

// Activate re-enables a previously deactivated account
func (a *BankAccount) Activate() error {
	if a.Active {
		return shared.NewDomainError("INVALID_STATE", "Account is already active")
	}
	a.Active = true
	a.DeactivatedAt = nil
	a.UpdatedAt = time.Now()
	a.IncrementVersion()

	return nil
}

// BalanceMoney returns the balance as a Money value object
func (a *BankAccount) BalanceMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(a.Balance, a.Currency)
	return m
}

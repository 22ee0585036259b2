package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/treasury/backend/internal/domain/shared"
)

// BankAccountOpenedEvent is raised when a new bank account is opened
type BankAccountOpenedEvent struct {
	shared.BaseDomainEvent
	AccountID      uuid.UUID       `json:"account_id"`
	Name           string          `json:"name"`
	IBAN           string          `json:"iban"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// EventType returns the event type name
func (e *BankAccountOpenedEvent) EventType() string {
	return "BankAccountOpened"
}

// NewBankAccountOpenedEvent creates a new BankAccountOpenedEvent
func NewBankAccountOpenedEvent(a *BankAccount) *BankAccountOpenedEvent {
	return &BankAccountOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BankAccountOpened", "BankAccount", a.ID, a.CompanyID),
		AccountID:       a.ID,
		Name:            a.Name,
		IBAN:            a.IBAN,
		OpeningBalance:  a.Balance,
	}
}

// BankAccountDeactivatedEvent is raised when a bank account is deactivated
type BankAccountDeactivatedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	Balance       decimal.Decimal `json:"balance"`
	DeactivatedAt time.Time       `json:"deactivated_at"`
}

// EventType returns the event type name
func (e *BankAccountDeactivatedEvent) EventType() string {
	return "BankAccountDeactivated"
}

// NewBankAccountDeactivatedEvent creates a new BankAccountDeactivatedEvent
func NewBankAccountDeactivatedEvent(a *BankAccount) *BankAccountDeactivatedEvent {
	deactivatedAt := time.Now()
	if a.DeactivatedAt != nil {
		deactivatedAt = *a.DeactivatedAt
	}
	return &BankAccountDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BankAccountDeactivated", "BankAccount", a.ID, a.CompanyID),
		AccountID:       a.ID,
		Balance:         a.Balance,
		DeactivatedAt:   deactivatedAt,
	}
}

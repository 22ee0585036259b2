package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/treasury/backend/internal/domain/shared"
)

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	Status        *PaymentStatus
	Direction     *Direction
	BankAccountID *uuid.UUID
	PostingState  *PostingState
}

// PaymentRepository defines the interface for payment persistence.
// Approval records are children of the payment aggregate and are persisted
// with it; they are never updated or deleted once written.
type PaymentRepository interface {
	// FindByID finds a payment by ID, approvals included
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForCompany finds a payment by ID for a specific company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)

	// FindByReference finds a payment by its human-readable reference
	FindByReference(ctx context.Context, companyID uuid.UUID, reference string) (*Payment, error)

	// FindAllForCompany finds payments for a company with filtering
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// FindByStatus finds payments in a given status for a company
	FindByStatus(ctx context.Context, companyID uuid.UUID, status PaymentStatus, filter PaymentFilter) ([]Payment, error)

	// Save creates or updates a payment together with new approval records
	Save(ctx context.Context, p *Payment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, p *Payment) error

	// CountForCompany counts payments for a company with optional filters
	CountForCompany(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) (int64, error)

	// GenerateReference generates the next unique payment reference for a company
	GenerateReference(ctx context.Context, companyID uuid.UUID) (string, error)
}

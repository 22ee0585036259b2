package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/treasury/backend/internal/domain/payment"
	"github.com/treasury/backend/internal/domain/shared"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID, approvals included
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindByIDForCompany finds a payment by ID for a specific company
func (r *GormPaymentRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		First(&p, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindByReference finds a payment by its human-readable reference
func (r *GormPaymentRepository) FindByReference(ctx context.Context, companyID uuid.UUID, reference string) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		First(&p, "reference = ? AND company_id = ?", reference, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindAllForCompany finds payments for a company with filtering
func (r *GormPaymentRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter payment.PaymentFilter) ([]payment.Payment, error) {
	var payments []payment.Payment
	query := r.applyFilter(r.db.WithContext(ctx).Where("company_id = ?", companyID), filter)

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Limit(filter.Limit()).Offset(filter.Offset())
	}

	if err := query.Preload("Approvals").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindByStatus finds payments in a given status for a company
func (r *GormPaymentRepository) FindByStatus(ctx context.Context, companyID uuid.UUID, status payment.PaymentStatus, filter payment.PaymentFilter) ([]payment.Payment, error) {
	filter.Status = &status
	return r.FindAllForCompany(ctx, companyID, filter)
}

// Save creates or updates a payment together with its approval records
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Approvals").Save(p).Error; err != nil {
			return err
		}
		return saveNewApprovals(tx, p)
	})
}

// SaveWithLock saves the payment with optimistic locking. The update only
// applies when the stored version still matches the version the aggregate was
// loaded at; otherwise the write is rejected as a concurrency conflict.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&payment.Payment{}).
			Where("id = ? AND version = ?", p.ID, p.Version-1).
			Select("*").Omit("id", "company_id", "created_at", "Approvals").
			Updates(p)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return saveNewApprovals(tx, p)
	})
}

// saveNewApprovals inserts approval records that do not exist yet. Approvals
// are append-only, so conflicts on already persisted records are ignored.
func saveNewApprovals(tx *gorm.DB, p *payment.Payment) error {
	if len(p.Approvals) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&p.Approvals).Error
}

// CountForCompany counts payments for a company with optional filters
func (r *GormPaymentRepository) CountForCompany(ctx context.Context, companyID uuid.UUID, filter payment.PaymentFilter) (int64, error) {
	var count int64
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&payment.Payment{}).Where("company_id = ?", companyID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateReference generates the next payment reference for a company in the
// form PAY-YYYYMM-NNNN, where NNNN restarts at 0001 each month.
func (r *GormPaymentRepository) GenerateReference(ctx context.Context, companyID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("PAY-%s", time.Now().Format("200601"))

	var lastReference string
	err := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("company_id = ? AND reference LIKE ?", companyID, prefix+"-%").
		Order("reference DESC").
		Limit(1).
		Pluck("reference", &lastReference).Error
	if err != nil {
		return "", err
	}

	sequence := 1
	if lastReference != "" {
		var lastSequence int
		if _, err := fmt.Sscanf(lastReference, prefix+"-%04d", &lastSequence); err == nil {
			sequence = lastSequence + 1
		}
	}

	return fmt.Sprintf("%s-%04d", prefix, sequence), nil
}

func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter payment.PaymentFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.PostingState != nil {
		query = query.Where("posting_state = ?", *filter.PostingState)
	}
	return query
}

// Ensure GormPaymentRepository implements the PaymentRepository interface
var _ payment.PaymentRepository = (*GormPaymentRepository)(nil)

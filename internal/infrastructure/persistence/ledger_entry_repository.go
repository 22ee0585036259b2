package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/treasury/backend/internal/domain/banking"
)

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM.
// The ledger is append-only: entries are created, never updated or deleted.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Create appends a new ledger entry
func (r *GormLedgerEntryRepository) Create(ctx context.Context, entry *banking.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByID finds a ledger entry by ID
func (r *GormLedgerEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.LedgerEntry, error) {
	var entry banking.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindByAccount finds entries for a bank account, oldest first
func (r *GormLedgerEntryRepository) FindByAccount(ctx context.Context, companyID, accountID uuid.UUID, filter banking.LedgerEntryFilter) ([]banking.LedgerEntry, error) {
	var entries []banking.LedgerEntry
	query := r.db.WithContext(ctx).
		Where("company_id = ? AND bank_account_id = ?", companyID, accountID)

	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.PaymentID != nil {
		query = query.Where("payment_id = ?", *filter.PaymentID)
	}
	if filter.FromDate != nil {
		query = query.Where("entry_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("entry_date <= ?", *filter.ToDate)
	}

	if filter.PageSize > 0 {
		query = query.Limit(filter.Limit()).Offset(filter.Offset())
	}

	if err := query.Order("entry_date ASC, created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByPayment finds the entries caused by a payment execution
func (r *GormLedgerEntryRepository) FindByPayment(ctx context.Context, companyID, paymentID uuid.UUID) ([]banking.LedgerEntry, error) {
	var entries []banking.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND payment_id = ?", companyID, paymentID).
		Order("entry_date ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByAccount sums the signed amounts of all entries for an account.
// Summing every entry reconstructs the account balance from zero.
func (r *GormLedgerEntryRepository) SumByAccount(ctx context.Context, companyID, accountID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&banking.LedgerEntry{}).
		Where("company_id = ? AND bank_account_id = ?", companyID, accountID).
		Select("COALESCE(SUM(CASE WHEN direction = 'DEBIT' THEN -amount ELSE amount END), 0)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// CountByAccount counts entries for an account
func (r *GormLedgerEntryRepository) CountByAccount(ctx context.Context, companyID, accountID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&banking.LedgerEntry{}).
		Where("company_id = ? AND bank_account_id = ?", companyID, accountID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormLedgerEntryRepository implements the LedgerEntryRepository interface
var _ banking.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/treasury/backend/internal/domain/banking"
	"github.com/treasury/backend/internal/domain/shared"
)

// GormBankAccountRepository implements BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByID finds a bank account by ID
func (r *GormBankAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.BankAccount, error) {
	var account banking.BankAccount
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByIDForCompany finds a bank account by ID for a specific company
func (r *GormBankAccountRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*banking.BankAccount, error) {
	var account banking.BankAccount
	if err := r.db.WithContext(ctx).
		First(&account, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindByIBAN finds a bank account by IBAN for a company
func (r *GormBankAccountRepository) FindByIBAN(ctx context.Context, companyID uuid.UUID, iban string) (*banking.BankAccount, error) {
	var account banking.BankAccount
	if err := r.db.WithContext(ctx).
		First(&account, "iban = ? AND company_id = ?", iban, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FindAllForCompany finds all bank accounts for a company
func (r *GormBankAccountRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]banking.BankAccount, error) {
	var accounts []banking.BankAccount
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID)

	orderBy := ValidateSortField(filter.OrderBy, BankAccountSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Limit(filter.Limit()).Offset(filter.Offset())
	}

	if err := query.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Save creates or updates a bank account
func (r *GormBankAccountRepository) Save(ctx context.Context, account *banking.BankAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// SaveWithLock saves the bank account with optimistic locking. Balance writes
// race with concurrent payment executions, so a stale version is rejected
// rather than silently overwritten.
func (r *GormBankAccountRepository) SaveWithLock(ctx context.Context, account *banking.BankAccount) error {
	// Select("*") forces zero-valued columns (Active=false, zero balance)
	// into the update; immutable columns stay untouched.
	result := r.db.WithContext(ctx).Model(&banking.BankAccount{}).
		Where("id = ? AND version = ?", account.ID, account.Version-1).
		Select("*").Omit("id", "company_id", "created_at").
		Updates(account)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountForCompany counts bank accounts for a company
func (r *GormBankAccountRepository) CountForCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&banking.BankAccount{}).
		Where("company_id = ?", companyID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormBankAccountRepository implements the BankAccountRepository interface
var _ banking.BankAccountRepository = (*GormBankAccountRepository)(nil)

// Package posting implements the bookkeeping side of payment execution.
// It consumes executed payments and records journal entries; the payment
// engine only sees the PostingTrigger interface.
package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/treasury/backend/internal/domain/payment"
)

// JournalEntry is one double-entry bookkeeping record created for an
// executed payment. Entries live in their own table and are never the
// source of truth for balances; the ledger is.
type JournalEntry struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	CompanyID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	JournalRef string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Reference  string          `gorm:"type:varchar(50);not null"`
	Direction  string          `gorm:"type:varchar(10);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency   string          `gorm:"type:varchar(3);not null"`
	PostedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// GormJournalPoster implements PostingTrigger by writing journal entries
// to the database. Posting runs outside the payment critical section, so a
// failure here only flags the payment for reconciliation.
type GormJournalPoster struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormJournalPoster creates a new GormJournalPoster
func NewGormJournalPoster(db *gorm.DB, logger *zap.Logger) *GormJournalPoster {
	return &GormJournalPoster{db: db, logger: logger}
}

// Post records a journal entry for an executed payment and returns its
// journal reference. The unique index on payment_id makes posting
// idempotent at the storage level.
func (j *GormJournalPoster) Post(ctx context.Context, p *payment.Payment) payment.PostingResult {
	entry := JournalEntry{
		ID:         uuid.New(),
		CompanyID:  p.CompanyID,
		PaymentID:  p.ID,
		JournalRef: fmt.Sprintf("JRN-%s", p.Reference),
		Reference:  p.Reference,
		Direction:  p.Direction.String(),
		Amount:     p.Amount,
		Currency:   p.Currency.String(),
		PostedAt:   time.Now(),
	}

	if err := j.db.WithContext(ctx).Create(&entry).Error; err != nil {
		j.logger.Error("journal posting failed",
			zap.String("payment_id", p.ID.String()),
			zap.String("reference", p.Reference),
			zap.Error(err),
		)
		return payment.PostingResult{Success: false, Err: err}
	}

	j.logger.Info("journal entry posted",
		zap.String("payment_id", p.ID.String()),
		zap.String("journal_ref", entry.JournalRef),
	)

	return payment.PostingResult{JournalRef: entry.JournalRef, Success: true}
}

// Ensure GormJournalPoster implements PostingTrigger
var _ payment.PostingTrigger = (*GormJournalPoster)(nil)

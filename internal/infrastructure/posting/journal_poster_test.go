package posting

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/treasury/backend/internal/domain/payment"
	"github.com/treasury/backend/internal/domain/shared"
	"github.com/treasury/backend/internal/domain/shared/valueobject"
)

func newMockJournalPoster(t *testing.T) (*GormJournalPoster, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormJournalPoster(gormDB, zap.NewNop()), mock, mockDB
}

func executedPayment() *payment.Payment {
	p := &payment.Payment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(uuid.New()),
		Reference:            "PAY-202608-0001",
		Direction:            payment.DirectionOutbound,
		Amount:               decimal.NewFromInt(30000),
		Currency:             valueobject.EUR,
		Status:               payment.PaymentStatusExecuted,
	}
	return p
}

func TestGormJournalPoster_Post(t *testing.T) {
	t.Run("writes journal entry and returns reference", func(t *testing.T) {
		poster, mock, mockDB := newMockJournalPoster(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "journal_entries"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		result := poster.Post(context.Background(), executedPayment())

		assert.True(t, result.Success)
		assert.Equal(t, "JRN-PAY-202608-0001", result.JournalRef)
		assert.NoError(t, result.Err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports failure without panicking", func(t *testing.T) {
		poster, mock, mockDB := newMockJournalPoster(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "journal_entries"`).
			WillReturnError(errors.New("connection reset"))

		result := poster.Post(context.Background(), executedPayment())

		assert.False(t, result.Success)
		assert.Empty(t, result.JournalRef)
		assert.Error(t, result.Err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

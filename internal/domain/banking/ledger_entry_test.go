package banking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treasury/backend/internal/domain/shared/valueobject"
)

func TestNewLedgerEntry(t *testing.T) {
	companyID := uuid.New()
	accountID := uuid.New()

	t.Run("creates entry with valid inputs", func(t *testing.T) {
		entry, err := NewLedgerEntry(companyID, accountID, EntryDirectionDebit,
			decimal.NewFromInt(100), decimal.NewFromInt(500), decimal.NewFromInt(400))
		require.NoError(t, err)
		assert.Equal(t, accountID, entry.BankAccountID)
		assert.True(t, entry.IsConsistent())
		assert.Nil(t, entry.PaymentID)
	})

	t.Run("fails with nil company", func(t *testing.T) {
		_, err := NewLedgerEntry(uuid.Nil, accountID, EntryDirectionDebit,
			decimal.NewFromInt(100), decimal.Zero, decimal.Zero)
		require.Error(t, err)
	})

	t.Run("fails with nil account", func(t *testing.T) {
		_, err := NewLedgerEntry(companyID, uuid.Nil, EntryDirectionDebit,
			decimal.NewFromInt(100), decimal.Zero, decimal.Zero)
		require.Error(t, err)
	})

	t.Run("fails with invalid direction", func(t *testing.T) {
		_, err := NewLedgerEntry(companyID, accountID, EntryDirection("SIDEWAYS"),
			decimal.NewFromInt(100), decimal.Zero, decimal.Zero)
		require.Error(t, err)
	})

	t.Run("fails with non-positive amount", func(t *testing.T) {
		_, err := NewLedgerEntry(companyID, accountID, EntryDirectionCredit,
			decimal.Zero, decimal.Zero, decimal.Zero)
		require.Error(t, err)
	})

	t.Run("links payment and reference", func(t *testing.T) {
		paymentID := uuid.New()
		entry, err := NewLedgerEntry(companyID, accountID, EntryDirectionCredit,
			decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(10))
		require.NoError(t, err)
		entry.WithPaymentID(paymentID).WithReference("PAY-202608-0001")
		require.NotNil(t, entry.PaymentID)
		assert.Equal(t, paymentID, *entry.PaymentID)
		assert.Equal(t, "PAY-202608-0001", entry.Reference)
	})
}

func TestLedgerEntry_SignedAmount(t *testing.T) {
	companyID := uuid.New()
	accountID := uuid.New()

	debit, err := NewLedgerEntry(companyID, accountID, EntryDirectionDebit,
		decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, debit.SignedAmount().Equal(decimal.NewFromInt(-100)))

	credit, err := NewLedgerEntry(companyID, accountID, EntryDirectionCredit,
		decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, credit.SignedAmount().Equal(decimal.NewFromInt(100)))
	assert.True(t, credit.BalanceChange().Equal(decimal.NewFromInt(100)))
}

func TestReconciliationService(t *testing.T) {
	svc := NewReconciliationService()
	companyID := uuid.New()

	newAccount := func(t *testing.T, balance float64) *BankAccount {
		account, err := NewBankAccount(companyID, "Ops", "DE89370400440532013000",
			decimal.NewFromFloat(balance), decimal.Zero, valueobject.EUR)
		require.NoError(t, err)
		return account
	}

	t.Run("replaying executed entries reconstructs the balance", func(t *testing.T) {
		account := newAccount(t, 0)
		opening := account.Balance

		var entries []LedgerEntry
		amounts := []struct {
			dir    EntryDirection
			amount int64
		}{
			{EntryDirectionCredit, 100000},
			{EntryDirectionDebit, 50000},
			{EntryDirectionCredit, 2500},
			{EntryDirectionDebit, 1500},
		}
		for _, step := range amounts {
			before := account.Balance
			var err error
			if step.dir == EntryDirectionDebit {
				_, err = account.Debit(decimal.NewFromInt(step.amount))
			} else {
				_, err = account.Credit(decimal.NewFromInt(step.amount))
			}
			require.NoError(t, err)
			entry, err := NewLedgerEntry(companyID, account.ID, step.dir,
				decimal.NewFromInt(step.amount), before, account.Balance)
			require.NoError(t, err)
			entries = append(entries, *entry)
		}

		report := svc.Reconcile(account, opening, entries)
		assert.True(t, report.Balanced)
		assert.Empty(t, report.BrokenEntries)
		assert.Equal(t, 4, report.EntryCount)
		assert.True(t, report.ReconstructedDelta.Equal(decimal.NewFromInt(51000)))
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(51000)))
	})

	t.Run("detects a broken chain", func(t *testing.T) {
		account := newAccount(t, 100)
		entry, err := NewLedgerEntry(companyID, account.ID, EntryDirectionCredit,
			decimal.NewFromInt(10), decimal.NewFromInt(999), decimal.NewFromInt(1009))
		require.NoError(t, err)

		report := svc.Reconcile(account, decimal.Zero, []LedgerEntry{*entry})
		assert.False(t, report.Balanced)
		assert.Len(t, report.BrokenEntries, 1)
	})

	t.Run("empty ledger balances against opening balance", func(t *testing.T) {
		account := newAccount(t, 250)
		report := svc.Reconcile(account, decimal.NewFromInt(250), nil)
		assert.True(t, report.Balanced)
		assert.True(t, report.ReconstructedDelta.IsZero())
	})
}

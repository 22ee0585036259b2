package banking

import (
	"github.com/shopspring/decimal"
)

// ReconciliationReport is the outcome of replaying an account's ledger
// entries against its live balance.
type ReconciliationReport struct {
	AccountID          string          `json:"account_id"`
	LiveBalance        decimal.Decimal `json:"live_balance"`
	ReconstructedDelta decimal.Decimal `json:"reconstructed_delta"` // Sum of signed entry amounts
	OpeningBalance     decimal.Decimal `json:"opening_balance"`     // LiveBalance - ReconstructedDelta
	EntryCount         int             `json:"entry_count"`
	Balanced           bool            `json:"balanced"`
	BrokenEntries      []string        `json:"broken_entries,omitempty"` // Entries whose before/after pair is inconsistent
}

// ReconciliationService replays ledger entries against a bank account.
// The invariant: opening balance plus the sum of all signed entry amounts
// equals the live balance, and each entry's before/after pair chains onto
// the previous one.
type ReconciliationService struct{}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService() *ReconciliationService {
	return &ReconciliationService{}
}

// Reconcile replays the given entries (oldest first) against the account.
// openingBalance is the balance the account had before the first entry.
func (s *ReconciliationService) Reconcile(account *BankAccount, openingBalance decimal.Decimal, entries []LedgerEntry) ReconciliationReport {
	report := ReconciliationReport{
		AccountID:      account.ID.String(),
		LiveBalance:    account.Balance,
		OpeningBalance: openingBalance,
		EntryCount:     len(entries),
	}

	running := openingBalance
	delta := decimal.Zero
	for i := range entries {
		entry := &entries[i]
		if !entry.IsConsistent() || !entry.BalanceBefore.Equal(running) {
			report.BrokenEntries = append(report.BrokenEntries, entry.ID.String())
		}
		running = running.Add(entry.SignedAmount())
		delta = delta.Add(entry.SignedAmount())
	}

	report.ReconstructedDelta = delta
	report.Balanced = len(report.BrokenEntries) == 0 && running.Equal(account.Balance)

	return report
}

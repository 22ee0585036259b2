package banking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/treasury/backend/internal/domain/banking"
	"github.com/treasury/backend/internal/domain/shared"
	"github.com/treasury/backend/internal/domain/shared/valueobject"
	"github.com/treasury/backend/internal/infrastructure/telemetry"
)

// AccountService manages bank accounts and their ledgers. Balance mutations
// happen exclusively through payment execution; this service only covers the
// account lifecycle and read paths.
type AccountService struct {
	accountRepo banking.BankAccountRepository
	ledgerRepo  banking.LedgerEntryRepository
	reconciler  *banking.ReconciliationService
	eventBus    shared.EventBus
	logger      *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accountRepo banking.BankAccountRepository,
	ledgerRepo banking.LedgerEntryRepository,
	eventBus shared.EventBus,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		reconciler:  banking.NewReconciliationService(),
		eventBus:    eventBus,
		logger:      logger,
	}
}

func (s *AccountService) publishEvents(root shared.AggregateRoot) {
	events := root.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if s.eventBus != nil {
		s.eventBus.Publish(events...)
	}
	root.ClearDomainEvents()
}

// CreateAccount opens a new bank account
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*AccountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "create")
	defer span.End()

	existing, err := s.accountRepo.FindByIBAN(ctx, req.CompanyID, req.IBAN)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check IBAN: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this IBAN already exists")
	}

	currency := valueobject.DefaultCurrency
	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}

	account, err := banking.NewBankAccount(req.CompanyID, req.Name, req.IBAN,
		req.OpeningBalance, req.OverdraftLimit, currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save bank account: %w", err)
	}

	s.publishEvents(account)
	s.logger.Info("Bank account opened",
		zap.String("account_id", account.ID.String()),
		zap.String("iban", account.IBAN),
		zap.String("currency", string(account.Currency)),
	)

	return ToAccountResponse(account), nil
}

// GetAccount returns a bank account by ID
func (s *AccountService) GetAccount(ctx context.Context, companyID, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.findAccount(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}
	return ToAccountResponse(account), nil
}

// ListAccounts returns all bank accounts for a company
func (s *AccountService) ListAccounts(ctx context.Context, companyID uuid.UUID, filter shared.Filter) (*shared.Paginated[AccountResponse], error) {
	accounts, err := s.accountRepo.FindAllForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	total, err := s.accountRepo.CountForCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count bank accounts: %w", err)
	}

	items := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, *ToAccountResponse(&accounts[i]))
	}

	result := shared.NewPaginated(items, total, filter.Page, filter.Limit())
	return &result, nil
}

// Deactivate blocks all future executions against the account
func (s *AccountService) Deactivate(ctx context.Context, companyID, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.findAccount(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	if err := account.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save bank account: %w", err)
	}

	s.publishEvents(account)
	s.logger.Info("Bank account deactivated", zap.String("account_id", accountID.String()))

	return ToAccountResponse(account), nil
}

// Activate re-enables a previously deactivated account
func (s *AccountService) Activate(ctx context.Context, companyID, accountID uuid.UUID) (*AccountResponse, error) {
	account, err := s.findAccount(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	if err := account.Activate(); err != nil {
		return nil, err
	}
	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save bank account: %w", err)
	}

	s.publishEvents(account)
	s.logger.Info("Bank account activated", zap.String("account_id", accountID.String()))

	return ToAccountResponse(account), nil
}

// ListLedgerEntries returns the ledger of an account, oldest first
func (s *AccountService) ListLedgerEntries(ctx context.Context, companyID, accountID uuid.UUID, filter LedgerListFilter) (*shared.Paginated[LedgerEntryResponse], error) {
	if _, err := s.findAccount(ctx, companyID, accountID); err != nil {
		return nil, err
	}

	domainFilter := banking.LedgerEntryFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
		},
		PaymentID: filter.PaymentID,
	}
	if filter.Direction != "" {
		direction := banking.EntryDirection(filter.Direction)
		if !direction.IsValid() {
			return nil, shared.NewDomainError("INVALID_DIRECTION", "Unknown ledger entry direction")
		}
		domainFilter.Direction = &direction
	}

	entries, err := s.ledgerRepo.FindByAccount(ctx, companyID, accountID, domainFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	total, err := s.ledgerRepo.CountByAccount(ctx, companyID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	items := make([]LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, *ToLedgerEntryResponse(&entries[i]))
	}

	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.Limit())
	return &result, nil
}

// Reconcile replays the account's full ledger against its live balance.
// The opening balance is derived from the live balance minus the signed sum
// of all entries, so a balanced report means the entry chain is internally
// consistent from opening to live.
func (s *AccountService) Reconcile(ctx context.Context, companyID, accountID uuid.UUID) (*banking.ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "reconcile")
	defer span.End()

	account, err := s.findAccount(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledgerRepo.FindByAccount(ctx, companyID, accountID, banking.LedgerEntryFilter{})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}
	delta, err := s.ledgerRepo.SumByAccount(ctx, companyID, accountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	openingBalance := account.Balance.Sub(delta)
	report := s.reconciler.Reconcile(account, openingBalance, entries)

	if !report.Balanced {
		s.logger.Warn("Ledger reconciliation mismatch",
			zap.String("account_id", accountID.String()),
			zap.String("live_balance", report.LiveBalance.String()),
			zap.String("reconstructed_delta", report.ReconstructedDelta.String()),
			zap.Int("broken_entries", len(report.BrokenEntries)),
		)
	}

	return &report, nil
}

func (s *AccountService) findAccount(ctx context.Context, companyID, accountID uuid.UUID) (*banking.BankAccount, error) {
	account, err := s.accountRepo.FindByIDForCompany(ctx, companyID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND", "Bank account not found")
	}
	return account, nil
}

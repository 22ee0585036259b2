package payment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/treasury/backend/internal/domain/banking"
	"github.com/treasury/backend/internal/domain/payment"
	"github.com/treasury/backend/internal/domain/shared"
	"github.com/treasury/backend/internal/domain/shared/valueobject"
	"github.com/treasury/backend/internal/infrastructure/lock"
)

// =============================================================================
// Stateful in-memory repositories
//
// The coordinator re-reads aggregates inside the critical section and relies
// on optimistic version checks, so the concurrency tests need repositories
// with real state. Loads and saves deep-copy the aggregates the way a row
// round-trip would.
// =============================================================================

func clonePayment(p *payment.Payment) *payment.Payment {
	cp := *p
	cp.Approvals = append([]payment.ApprovalRecord(nil), p.Approvals...)
	cp.ClearDomainEvents()
	return &cp
}

type memPaymentRepo struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*payment.Payment
	sequence int64
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{items: make(map[uuid.UUID]*payment.Payment)}
}

func (r *memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (r *memPaymentRepo) FindByIDForCompany(_ context.Context, companyID, id uuid.UUID) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.CompanyID != companyID {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (r *memPaymentRepo) FindByReference(_ context.Context, companyID uuid.UUID, reference string) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.CompanyID == companyID && p.Reference == reference {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (r *memPaymentRepo) FindAllForCompany(_ context.Context, companyID uuid.UUID, filter payment.PaymentFilter) ([]payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []payment.Payment
	for _, p := range r.items {
		if p.CompanyID != companyID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		result = append(result, *clonePayment(p))
	}
	return result, nil
}

func (r *memPaymentRepo) FindByStatus(ctx context.Context, companyID uuid.UUID, status payment.PaymentStatus, filter payment.PaymentFilter) ([]payment.Payment, error) {
	filter.Status = &status
	return r.FindAllForCompany(ctx, companyID, filter)
}

func (r *memPaymentRepo) Save(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = clonePayment(p)
	return nil
}

func (r *memPaymentRepo) SaveWithLock(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.items[p.ID]; ok && p.Version <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.items[p.ID] = clonePayment(p)
	return nil
}

func (r *memPaymentRepo) CountForCompany(_ context.Context, companyID uuid.UUID, filter payment.PaymentFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, p := range r.items {
		if p.CompanyID == companyID {
			count++
		}
	}
	return count, nil
}

func (r *memPaymentRepo) GenerateReference(_ context.Context, _ uuid.UUID) (string, error) {
	n := atomic.AddInt64(&r.sequence, 1)
	return fmt.Sprintf("PAY-%s-%04d", time.Now().Format("200601"), n), nil
}

type memAccountRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*banking.BankAccount
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{items: make(map[uuid.UUID]*banking.BankAccount)}
}

func cloneAccount(a *banking.BankAccount) *banking.BankAccount {
	cp := *a
	cp.ClearDomainEvents()
	return &cp
}

func (r *memAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*banking.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return cloneAccount(a), nil
}

func (r *memAccountRepo) FindByIDForCompany(_ context.Context, companyID, id uuid.UUID) (*banking.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.CompanyID != companyID {
		return nil, nil
	}
	return cloneAccount(a), nil
}

func (r *memAccountRepo) FindByIBAN(_ context.Context, companyID uuid.UUID, iban string) (*banking.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.CompanyID == companyID && a.IBAN == iban {
			return cloneAccount(a), nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) FindAllForCompany(_ context.Context, companyID uuid.UUID, _ shared.Filter) ([]banking.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []banking.BankAccount
	for _, a := range r.items {
		if a.CompanyID == companyID {
			result = append(result, *cloneAccount(a))
		}
	}
	return result, nil
}

func (r *memAccountRepo) Save(_ context.Context, a *banking.BankAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = cloneAccount(a)
	return nil
}

func (r *memAccountRepo) SaveWithLock(_ context.Context, a *banking.BankAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.items[a.ID]; ok && a.Version <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.items[a.ID] = cloneAccount(a)
	return nil
}

func (r *memAccountRepo) CountForCompany(_ context.Context, companyID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, a := range r.items {
		if a.CompanyID == companyID {
			count++
		}
	}
	return count, nil
}

type memLedgerRepo struct {
	mu      sync.Mutex
	entries []banking.LedgerEntry
}

func (r *memLedgerRepo) Create(_ context.Context, entry *banking.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memLedgerRepo) FindByID(_ context.Context, id uuid.UUID) (*banking.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			e := r.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (r *memLedgerRepo) FindByAccount(_ context.Context, companyID, accountID uuid.UUID, _ banking.LedgerEntryFilter) ([]banking.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []banking.LedgerEntry
	for _, e := range r.entries {
		if e.CompanyID == companyID && e.BankAccountID == accountID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *memLedgerRepo) FindByPayment(_ context.Context, companyID, paymentID uuid.UUID) ([]banking.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []banking.LedgerEntry
	for _, e := range r.entries {
		if e.CompanyID == companyID && e.PaymentID != nil && *e.PaymentID == paymentID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *memLedgerRepo) SumByAccount(_ context.Context, companyID, accountID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.CompanyID == companyID && e.BankAccountID == accountID {
			sum = sum.Add(e.SignedAmount())
		}
	}
	return sum, nil
}

func (r *memLedgerRepo) CountByAccount(_ context.Context, companyID, accountID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.entries {
		if e.CompanyID == companyID && e.BankAccountID == accountID {
			count++
		}
	}
	return count, nil
}

// stubPoster counts invocations and returns a configurable result
type stubPoster struct {
	calls   int32
	fail    bool
	failErr error
}

func (s *stubPoster) Post(_ context.Context, p *payment.Payment) payment.PostingResult {
	atomic.AddInt32(&s.calls, 1)
	if s.fail {
		return payment.PostingResult{Success: false, Err: s.failErr}
	}
	return payment.PostingResult{Success: true, JournalRef: "JRN-" + p.Reference}
}

func (s *stubPoster) callCount() int {
	return int(atomic.LoadInt32(&s.calls))
}

// =============================================================================
// Test fixture
// =============================================================================

type serviceFixture struct {
	service     *PaymentService
	paymentRepo *memPaymentRepo
	accountRepo *memAccountRepo
	ledgerRepo  *memLedgerRepo
	poster      *stubPoster
	companyID   uuid.UUID
	account     *banking.BankAccount
}

func newServiceFixture(t *testing.T, openingBalance float64) *serviceFixture {
	t.Helper()

	paymentRepo := newMemPaymentRepo()
	accountRepo := newMemAccountRepo()
	ledgerRepo := &memLedgerRepo{}
	poster := &stubPoster{}

	policy, err := payment.DefaultSignaturePolicy(decimal.NewFromInt(10000), decimal.NewFromInt(100000))
	require.NoError(t, err)

	companyID := uuid.New()
	account, err := banking.NewBankAccount(companyID, "Operating Account", "DE89370400440532013000",
		decimal.NewFromFloat(openingBalance), decimal.Zero, valueobject.EUR)
	require.NoError(t, err)
	require.NoError(t, accountRepo.Save(context.Background(), account))

	service := NewPaymentService(
		paymentRepo,
		accountRepo,
		NewNoOpTransactionScope(paymentRepo, accountRepo, ledgerRepo),
		lock.NewKeyedMutex(),
		policy,
		poster,
		nil,
		zap.NewNop(),
	)

	return &serviceFixture{
		service:     service,
		paymentRepo: paymentRepo,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		poster:      poster,
		companyID:   companyID,
		account:     account,
	}
}

func (f *serviceFixture) createPayment(t *testing.T, amount float64) *PaymentResponse {
	t.Helper()
	resp, err := f.service.CreatePayment(context.Background(), CreatePaymentRequest{
		CompanyID:          f.companyID,
		Direction:          payment.DirectionOutbound,
		Amount:             decimal.NewFromFloat(amount),
		BankAccountID:      f.account.ID,
		BeneficiaryName:    "ACME Supplies GmbH",
		BeneficiaryAccount: "DE02120300000000202051",
	})
	require.NoError(t, err)
	return resp
}

func (f *serviceFixture) approvedPayment(t *testing.T, amount float64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	resp := f.createPayment(t, amount)
	_, err := f.service.SubmitForApproval(ctx, f.companyID, resp.ID)
	require.NoError(t, err)

	p, err := f.paymentRepo.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	for i := 0; i < p.RequiredSignatures; i++ {
		_, err := f.service.Approve(ctx, f.companyID, resp.ID, uuid.New())
		require.NoError(t, err)
	}
	return resp.ID
}

func (f *serviceFixture) storedPayment(t *testing.T, id uuid.UUID) *payment.Payment {
	t.Helper()
	p, err := f.paymentRepo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (f *serviceFixture) storedBalance(t *testing.T) decimal.Decimal {
	t.Helper()
	a, err := f.accountRepo.FindByID(context.Background(), f.account.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a.Balance
}

// =============================================================================
// Tests
// =============================================================================

func TestPaymentService_CreatePayment(t *testing.T) {
	f := newServiceFixture(t, 100000)
	ctx := context.Background()

	t.Run("creates draft with generated reference", func(t *testing.T) {
		resp := f.createPayment(t, 500)
		assert.Equal(t, "DRAFT", resp.Status)
		assert.Contains(t, resp.Reference, "PAY-")
		assert.Equal(t, "EUR", resp.Currency)
	})

	t.Run("fails for unknown account", func(t *testing.T) {
		_, err := f.service.CreatePayment(ctx, CreatePaymentRequest{
			CompanyID:       f.companyID,
			Direction:       payment.DirectionOutbound,
			Amount:          decimal.NewFromInt(100),
			BankAccountID:   uuid.New(),
			BeneficiaryName: "Nobody",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("fails on currency mismatch", func(t *testing.T) {
		_, err := f.service.CreatePayment(ctx, CreatePaymentRequest{
			CompanyID:       f.companyID,
			Direction:       payment.DirectionOutbound,
			Amount:          decimal.NewFromInt(100),
			Currency:        "USD",
			BankAccountID:   f.account.ID,
			BeneficiaryName: "ACME",
		})
		require.Error(t, err)
	})
}

func TestPaymentService_ApprovalWorkflow(t *testing.T) {
	f := newServiceFixture(t, 1000000)
	ctx := context.Background()

	resp := f.createPayment(t, 50000) // Tier 2: two signatures
	_, err := f.service.SubmitForApproval(ctx, f.companyID, resp.ID)
	require.NoError(t, err)

	first, err := f.service.Approve(ctx, f.companyID, resp.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentSignatures)
	assert.Equal(t, 2, first.RequiredSignatures)
	assert.False(t, first.FullyApproved)
	assert.Equal(t, "PENDING_APPROVAL", first.Status)

	second, err := f.service.Approve(ctx, f.companyID, resp.ID, uuid.New())
	require.NoError(t, err)
	assert.True(t, second.FullyApproved)
	assert.Equal(t, "APPROVED", second.Status)
}

func TestPaymentService_ConcurrentApprovals(t *testing.T) {
	f := newServiceFixture(t, 1000000)
	ctx := context.Background()

	resp := f.createPayment(t, 50000) // Requires 2 signatures
	_, err := f.service.SubmitForApproval(ctx, f.companyID, resp.ID)
	require.NoError(t, err)

	const approvers = 5
	results := make([]*ApprovalResult, approvers)
	errs := make([]error, approvers)

	var wg sync.WaitGroup
	wg.Add(approvers)
	for i := 0; i < approvers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.Approve(ctx, f.companyID, resp.ID, uuid.New())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	fullyApproved := 0
	for i := 0; i < approvers; i++ {
		if errs[i] == nil {
			succeeded++
			if results[i].FullyApproved {
				fullyApproved++
			}
		}
	}

	// Exactly as many signatures as required land; the rest are rejected
	// because the payment already left PENDING_APPROVAL.
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, fullyApproved, "the APPROVED transition fires exactly once")

	p := f.storedPayment(t, resp.ID)
	assert.Equal(t, payment.PaymentStatusApproved, p.Status)
	assert.Equal(t, 2, p.CurrentSignatures)
	assert.Len(t, p.Approvals, 2)
}

func TestPaymentService_Execute(t *testing.T) {
	t.Run("debits account, writes ledger entry and posts", func(t *testing.T) {
		f := newServiceFixture(t, 100000)
		ctx := context.Background()
		paymentID := f.approvedPayment(t, 30000)

		result, err := f.service.Execute(ctx, f.companyID, paymentID)
		require.NoError(t, err)
		assert.False(t, result.AlreadyExecuted)
		assert.True(t, result.BalanceBefore.Equal(decimal.NewFromInt(100000)))
		assert.True(t, result.BalanceAfter.Equal(decimal.NewFromInt(70000)))
		assert.Equal(t, "POSTED", result.PostingState)
		assert.NotEmpty(t, result.JournalRef)

		assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(70000)))

		entries, err := f.ledgerRepo.FindByPayment(ctx, f.companyID, paymentID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, banking.EntryDirectionDebit, entries[0].Direction)
		assert.True(t, entries[0].IsConsistent())

		p := f.storedPayment(t, paymentID)
		assert.Equal(t, payment.PaymentStatusExecuted, p.Status)
		assert.Equal(t, payment.PostingStatePosted, p.PostingState)
		assert.Equal(t, 1, f.poster.callCount())
	})

	t.Run("credits account for inbound payments", func(t *testing.T) {
		f := newServiceFixture(t, 1000)
		ctx := context.Background()

		resp, err := f.service.CreatePayment(ctx, CreatePaymentRequest{
			CompanyID:          f.companyID,
			Direction:          payment.DirectionInbound,
			Amount:             decimal.NewFromInt(500),
			BankAccountID:      f.account.ID,
			BeneficiaryName:    "Customer Ltd",
			BeneficiaryAccount: "GB29NWBK60161331926819",
		})
		require.NoError(t, err)
		_, err = f.service.SubmitForApproval(ctx, f.companyID, resp.ID)
		require.NoError(t, err)
		_, err = f.service.Approve(ctx, f.companyID, resp.ID, uuid.New())
		require.NoError(t, err)

		result, err := f.service.Execute(ctx, f.companyID, resp.ID)
		require.NoError(t, err)
		assert.True(t, result.BalanceAfter.Equal(decimal.NewFromInt(1500)))
	})

	t.Run("repeated execute is idempotent", func(t *testing.T) {
		f := newServiceFixture(t, 100000)
		ctx := context.Background()
		paymentID := f.approvedPayment(t, 30000)

		_, err := f.service.Execute(ctx, f.companyID, paymentID)
		require.NoError(t, err)

		second, err := f.service.Execute(ctx, f.companyID, paymentID)
		require.NoError(t, err)
		assert.True(t, second.AlreadyExecuted)
		assert.Equal(t, "POSTED", second.PostingState)

		// No second mutation anywhere
		assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(70000)))
		entries, err := f.ledgerRepo.FindByPayment(ctx, f.companyID, paymentID)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, 1, f.poster.callCount())
	})

	t.Run("rejects execution of unapproved payment", func(t *testing.T) {
		f := newServiceFixture(t, 100000)
		ctx := context.Background()
		resp := f.createPayment(t, 500)
		_, err := f.service.SubmitForApproval(ctx, f.companyID, resp.ID)
		require.NoError(t, err)

		_, err = f.service.Execute(ctx, f.companyID, resp.ID)
		var notExecErr *payment.PaymentNotExecutableError
		require.ErrorAs(t, err, &notExecErr)
		assert.False(t, notExecErr.AlreadyExecuted)
	})
}

func TestPaymentService_ConcurrentExecute(t *testing.T) {
	f := newServiceFixture(t, 100000)
	ctx := context.Background()
	paymentID := f.approvedPayment(t, 30000)

	const attempts = 8
	results := make([]*ExecutionResult, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.Execute(ctx, f.companyID, paymentID)
		}(i)
	}
	wg.Wait()

	mutated := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if !results[i].AlreadyExecuted {
			mutated++
		}
	}
	assert.Equal(t, 1, mutated, "exactly one attempt performs the mutation")

	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(70000)))
	entries, err := f.ledgerRepo.FindByPayment(ctx, f.companyID, paymentID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, f.poster.callCount())
}

func TestPaymentService_InsufficientBalance(t *testing.T) {
	f := newServiceFixture(t, 20000)
	ctx := context.Background()
	paymentID := f.approvedPayment(t, 50000)

	_, err := f.service.Execute(ctx, f.companyID, paymentID)
	var balanceErr *banking.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.True(t, balanceErr.RequiredAmount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, balanceErr.AvailableBalance.Equal(decimal.NewFromInt(20000)))
	assert.True(t, balanceErr.Shortfall.Equal(decimal.NewFromInt(30000)))

	// Nothing moved, nothing posted, payment stays APPROVED for retry
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, 0, f.poster.callCount())
	p := f.storedPayment(t, paymentID)
	assert.Equal(t, payment.PaymentStatusApproved, p.Status)

	// Fund the account and retry
	account, err := f.accountRepo.FindByID(ctx, f.account.ID)
	require.NoError(t, err)
	_, err = account.Credit(decimal.NewFromInt(40000))
	require.NoError(t, err)
	require.NoError(t, f.accountRepo.SaveWithLock(ctx, account))

	result, err := f.service.Execute(ctx, f.companyID, paymentID)
	require.NoError(t, err)
	assert.True(t, result.BalanceAfter.Equal(decimal.NewFromInt(10000)))
}

func TestPaymentService_InactiveAccountFailsPayment(t *testing.T) {
	f := newServiceFixture(t, 100000)
	ctx := context.Background()
	paymentID := f.approvedPayment(t, 500)

	account, err := f.accountRepo.FindByID(ctx, f.account.ID)
	require.NoError(t, err)
	require.NoError(t, account.Deactivate())
	require.NoError(t, f.accountRepo.SaveWithLock(ctx, account))

	_, err = f.service.Execute(ctx, f.companyID, paymentID)
	var inactiveErr *banking.AccountInactiveError
	require.ErrorAs(t, err, &inactiveErr)

	// Deactivated account is a permanent rejection
	p := f.storedPayment(t, paymentID)
	assert.Equal(t, payment.PaymentStatusFailed, p.Status)
	assert.Contains(t, p.FailureReason, "inactive")
}

func TestPaymentService_PostingFailure(t *testing.T) {
	f := newServiceFixture(t, 100000)
	f.poster.fail = true
	f.poster.failErr = fmt.Errorf("journal service unavailable")
	ctx := context.Background()
	paymentID := f.approvedPayment(t, 30000)

	result, err := f.service.Execute(ctx, f.companyID, paymentID)
	require.NoError(t, err, "posting failure must not fail the execution")
	assert.Equal(t, "PENDING_RECONCILIATION", result.PostingState)

	// The ledger mutation stands
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(70000)))
	p := f.storedPayment(t, paymentID)
	assert.Equal(t, payment.PaymentStatusExecuted, p.Status)
	assert.Equal(t, payment.PostingStatePendingReconciliation, p.PostingState)
}

func TestPaymentService_CancelExecuteRace(t *testing.T) {
	f := newServiceFixture(t, 100000)
	ctx := context.Background()
	paymentID := f.approvedPayment(t, 30000)

	var execResult *ExecutionResult
	var execErr, cancelErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		execResult, execErr = f.service.Execute(ctx, f.companyID, paymentID)
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = f.service.Cancel(ctx, f.companyID, paymentID, uuid.New(), "changed my mind")
	}()
	wg.Wait()

	p := f.storedPayment(t, paymentID)
	switch p.Status {
	case payment.PaymentStatusCancelled:
		// Cancel won the lock: execution must have been rejected and no money moved
		require.NoError(t, cancelErr)
		require.Error(t, execErr)
		assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(100000)))
	case payment.PaymentStatusExecuted:
		// Execute won the lock: cancel must have been rejected and the mutation stands
		require.NoError(t, execErr)
		require.Error(t, cancelErr)
		assert.False(t, execResult.AlreadyExecuted)
		assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(70000)))
	default:
		t.Fatalf("unexpected final status %s", p.Status)
	}
}

func TestPaymentService_LockTimeout(t *testing.T) {
	f := newServiceFixture(t, 100000)
	ctx := context.Background()
	paymentID := f.approvedPayment(t, 500)
	f.service.SetLockTimeout(20 * time.Millisecond)

	// Hold the payment's critical section from outside
	locker := lock.NewKeyedMutex()
	f.service.locker = locker
	release, err := locker.Acquire(ctx, "payment:"+paymentID.String(), time.Second)
	require.NoError(t, err)
	defer release()

	_, err = f.service.Execute(ctx, f.companyID, paymentID)
	var timeoutErr *payment.LockTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestPaymentService_Cancel(t *testing.T) {
	f := newServiceFixture(t, 100000)
	ctx := context.Background()

	resp := f.createPayment(t, 500)
	cancelled, err := f.service.Cancel(ctx, f.companyID, resp.ID, uuid.New(), "duplicate entry")
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Equal(t, "duplicate entry", cancelled.CancelReason)
}

func TestPaymentService_Confirm(t *testing.T) {
	f := newServiceFixture(t, 100000)
	ctx := context.Background()
	paymentID := f.approvedPayment(t, 500)

	_, err := f.service.Execute(ctx, f.companyID, paymentID)
	require.NoError(t, err)

	confirmed, err := f.service.Confirm(ctx, f.companyID, paymentID, "CAMT-0815")
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
	assert.Equal(t, "CAMT-0815", confirmed.SettlementRef)
}

func TestPaymentService_LedgerReconstruction(t *testing.T) {
	f := newServiceFixture(t, 0)
	ctx := context.Background()

	// Fund the account through inbound executions, then spend
	amounts := []struct {
		direction payment.Direction
		amount    int64
	}{
		{payment.DirectionInbound, 100000},
		{payment.DirectionOutbound, 50000},
		{payment.DirectionInbound, 2500},
		{payment.DirectionOutbound, 1500},
	}
	for _, a := range amounts {
		resp, err := f.service.CreatePayment(ctx, CreatePaymentRequest{
			CompanyID:          f.companyID,
			Direction:          a.direction,
			Amount:             decimal.NewFromInt(a.amount),
			BankAccountID:      f.account.ID,
			BeneficiaryName:    "Counterparty",
			BeneficiaryAccount: "FR1420041010050500013M02606",
		})
		require.NoError(t, err)
		_, err = f.service.SubmitForApproval(ctx, f.companyID, resp.ID)
		require.NoError(t, err)
		p := f.storedPayment(t, resp.ID)
		for i := 0; i < p.RequiredSignatures; i++ {
			_, err = f.service.Approve(ctx, f.companyID, resp.ID, uuid.New())
			require.NoError(t, err)
		}
		_, err = f.service.Execute(ctx, f.companyID, resp.ID)
		require.NoError(t, err)
	}

	// Sum of signed entries reconstructs the balance
	sum, err := f.ledgerRepo.SumByAccount(ctx, f.companyID, f.account.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(51000)))
	assert.True(t, f.storedBalance(t).Equal(decimal.NewFromInt(51000)))
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/treasury/backend/internal/domain/banking"
	"github.com/treasury/backend/internal/domain/payment"
	"github.com/treasury/backend/internal/domain/shared"
	"github.com/treasury/backend/internal/domain/shared/valueobject"
	"github.com/treasury/backend/internal/infrastructure/telemetry"
)

// DefaultLockTimeout bounds the wait for a payment's critical section
const DefaultLockTimeout = 5 * time.Second

// PaymentService coordinates the payment approval and execution workflow.
// All state transitions of one payment run inside its per-payment critical
// section; the balance mutation, the ledger entry and the status change
// commit in a single database transaction. The posting trigger fires after
// the critical section is released and never reverses a committed execution.
type PaymentService struct {
	paymentRepo payment.PaymentRepository
	accountRepo banking.BankAccountRepository
	txScope     TransactionScope
	locker      PaymentLocker
	policy      *payment.SignaturePolicy
	poster      payment.PostingTrigger
	eventBus    shared.EventBus
	logger      *zap.Logger
	lockTimeout time.Duration
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo payment.PaymentRepository,
	accountRepo banking.BankAccountRepository,
	txScope TransactionScope,
	locker PaymentLocker,
	policy *payment.SignaturePolicy,
	poster payment.PostingTrigger,
	eventBus shared.EventBus,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		accountRepo: accountRepo,
		txScope:     txScope,
		locker:      locker,
		policy:      policy,
		poster:      poster,
		eventBus:    eventBus,
		logger:      logger,
		lockTimeout: DefaultLockTimeout,
	}
}

// SetLockTimeout overrides the bounded wait for the per-payment lock
func (s *PaymentService) SetLockTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.lockTimeout = timeout
	}
}

func lockKey(paymentID uuid.UUID) string {
	return "payment:" + paymentID.String()
}

// publishEvents drains the aggregate's pending events to the event bus
func (s *PaymentService) publishEvents(root shared.AggregateRoot) {
	events := root.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if s.eventBus != nil {
		s.eventBus.Publish(events...)
	}
	root.ClearDomainEvents()
}

// CreatePayment creates a new payment in DRAFT status
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create")
	defer span.End()

	account, err := s.accountRepo.FindByIDForCompany(ctx, req.CompanyID, req.BankAccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	if account == nil {
		return nil, shared.NewDomainError("ACCOUNT_NOT_FOUND", "Bank account not found")
	}

	currency := account.Currency
	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}
	if currency != account.Currency {
		return nil, shared.NewDomainError("CURRENCY_MISMATCH",
			fmt.Sprintf("Payment currency %s does not match account currency %s", currency, account.Currency))
	}

	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}

	reference, err := s.paymentRepo.GenerateReference(ctx, req.CompanyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to generate payment reference: %w", err)
	}

	p, err := payment.NewPayment(req.CompanyID, reference, req.Direction, amount,
		req.BankAccountID, req.BeneficiaryName, req.BeneficiaryAccount)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.Purpose != "" {
		if err := p.SetPurpose(req.Purpose); err != nil {
			return nil, err
		}
	}
	if req.CreatedBy != nil {
		p.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.paymentRepo.Save(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.publishEvents(p)
	s.logger.Info("Payment created",
		zap.String("payment_id", p.ID.String()),
		zap.String("reference", p.Reference),
		zap.String("amount", p.Amount.String()),
	)

	return ToPaymentResponse(p), nil
}

// SubmitForApproval moves a DRAFT payment into the approval workflow. The
// required signature count is evaluated against the policy here, once, and
// frozen on the payment.
func (s *PaymentService) SubmitForApproval(ctx context.Context, companyID, paymentID uuid.UUID) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "submit")
	defer span.End()

	release, err := s.locker.Acquire(ctx, lockKey(paymentID), s.lockTimeout)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	p, err := s.findPayment(ctx, companyID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := p.SubmitForApproval(s.policy); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.publishEvents(p)
	s.logger.Info("Payment submitted for approval",
		zap.String("payment_id", p.ID.String()),
		zap.String("reference", p.Reference),
		zap.Int("required_signatures", p.RequiredSignatures),
	)

	return ToPaymentResponse(p), nil
}

// Approve records one signature on a pending payment. The per-payment lock
// serializes concurrent approvals so the count is exact and the APPROVED
// transition happens exactly once, on the signature that meets the threshold.
func (s *PaymentService) Approve(ctx context.Context, companyID, paymentID, approverID uuid.UUID) (*ApprovalResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "approve")
	defer span.End()
	telemetry.SetAttributes(span,
		"payment_id", paymentID.String(),
		"approver_id", approverID.String(),
	)

	release, err := s.locker.Acquire(ctx, lockKey(paymentID), s.lockTimeout)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	p, err := s.findPayment(ctx, companyID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	progress, err := p.RecordApproval(approverID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.publishEvents(p)
	s.logger.Info("Payment approval recorded",
		zap.String("payment_id", p.ID.String()),
		zap.String("approver_id", approverID.String()),
		zap.String("progress", progress.String()),
		zap.Bool("fully_approved", progress.FullyApproved),
	)

	return &ApprovalResult{
		PaymentID:          p.ID,
		Reference:          p.Reference,
		ApproverID:         approverID,
		CurrentSignatures:  progress.CurrentSignatures,
		RequiredSignatures: progress.RequiredSignatures,
		FullyApproved:      progress.FullyApproved,
		Status:             string(p.Status),
	}, nil
}

// Execute performs the irreversible money movement for an APPROVED payment.
//
// Inside the critical section the payment is re-read and gated on its
// status, making execution idempotent: a payment that is already EXECUTED
// or CONFIRMED returns the recorded outcome instead of moving money twice.
// The balance mutation, the ledger entry and the EXECUTED transition commit
// atomically. The posting trigger fires after the lock is released; its
// failure flags the payment for reconciliation but never rolls back the
// committed execution.
func (s *PaymentService) Execute(ctx context.Context, companyID, paymentID uuid.UUID) (*ExecutionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "execute")
	defer span.End()
	telemetry.SetAttributes(span, "payment_id", paymentID.String())

	release, err := s.locker.Acquire(ctx, lockKey(paymentID), s.lockTimeout)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result, executed, err := s.executeLocked(ctx, companyID, paymentID)
	release()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Posting runs outside the critical section so a slow or failing
	// bookkeeping subsystem never extends the lock hold time.
	if executed {
		s.post(ctx, companyID, paymentID, result)
	}

	return result, nil
}

// executeLocked runs the execution steps that require the per-payment lock.
// The second return value reports whether this call performed the mutation
// (false for the idempotent already-executed path).
func (s *PaymentService) executeLocked(ctx context.Context, companyID, paymentID uuid.UUID) (*ExecutionResult, bool, error) {
	p, err := s.findPayment(ctx, companyID, paymentID)
	if err != nil {
		return nil, false, err
	}

	// Idempotence gate: re-execution of a completed payment is a no-op
	// reporting the prior outcome, not an error.
	if p.Status == payment.PaymentStatusExecuted || p.Status == payment.PaymentStatusConfirmed {
		return &ExecutionResult{
			PaymentID:       p.ID,
			Reference:       p.Reference,
			AlreadyExecuted: true,
			ExecutedAt:      p.ExecutedAt,
			PostingState:    string(p.PostingState),
			JournalRef:      p.JournalRef,
		}, false, nil
	}

	if !p.Status.CanExecute() {
		return nil, false, &payment.PaymentNotExecutableError{PaymentID: p.ID, Status: p.Status}
	}

	var result *ExecutionResult
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.AccountRepo().FindByIDForCompany(ctx, companyID, p.BankAccountID)
		if err != nil {
			return fmt.Errorf("failed to get bank account: %w", err)
		}
		if account == nil {
			return shared.NewDomainError("ACCOUNT_NOT_FOUND", "Bank account not found")
		}

		balanceBefore := account.Balance

		var balanceAfter decimal.Decimal
		var entryDirection banking.EntryDirection
		if p.IsOutbound() {
			balanceAfter, err = account.Debit(p.Amount)
			entryDirection = banking.EntryDirectionDebit
		} else {
			balanceAfter, err = account.Credit(p.Amount)
			entryDirection = banking.EntryDirectionCredit
		}
		if err != nil {
			return err
		}

		entry, err := banking.NewLedgerEntry(companyID, account.ID, entryDirection,
			p.Amount, balanceBefore, balanceAfter)
		if err != nil {
			return err
		}
		entry.WithPaymentID(p.ID).WithReference(p.Reference)

		executionTime := time.Now()
		if err := p.MarkExecuted(executionTime); err != nil {
			return err
		}

		if err := repos.AccountRepo().SaveWithLock(ctx, account); err != nil {
			return fmt.Errorf("failed to save bank account: %w", err)
		}
		if err := repos.LedgerRepo().Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, p); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}

		result = &ExecutionResult{
			PaymentID:     p.ID,
			Reference:     p.Reference,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
			LedgerEntryID: entry.ID,
			ExecutedAt:    p.ExecutedAt,
			PostingState:  string(p.PostingState),
		}
		return nil
	})
	if err != nil {
		// A deactivated account is a permanent rejection; insufficient
		// balance leaves the payment APPROVED so it can be retried after
		// funding.
		var inactiveErr *banking.AccountInactiveError
		if errors.As(err, &inactiveErr) {
			s.failPayment(ctx, companyID, paymentID, fmt.Sprintf("bank account %s is inactive", inactiveErr.AccountID))
		}
		return nil, false, err
	}

	s.publishEvents(p)
	s.logger.Info("Payment executed",
		zap.String("payment_id", p.ID.String()),
		zap.String("reference", p.Reference),
		zap.String("balance_before", result.BalanceBefore.String()),
		zap.String("balance_after", result.BalanceAfter.String()),
	)

	return result, true, nil
}

// failPayment marks a payment permanently FAILED after a rejected execution.
// Runs while the caller still holds the payment's lock.
func (s *PaymentService) failPayment(ctx context.Context, companyID, paymentID uuid.UUID, reason string) {
	p, err := s.findPayment(ctx, companyID, paymentID)
	if err != nil {
		s.logger.Error("Failed to load payment for failure marking", zap.Error(err))
		return
	}
	if err := p.MarkFailed(reason); err != nil {
		s.logger.Error("Failed to mark payment failed", zap.Error(err))
		return
	}
	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		s.logger.Error("Failed to save failed payment", zap.Error(err))
		return
	}
	s.publishEvents(p)
	s.logger.Warn("Payment permanently failed",
		zap.String("payment_id", paymentID.String()),
		zap.String("reason", reason),
	)
}

// post fires the posting trigger for an executed payment and records the
// outcome. A failed posting flags the payment PENDING_RECONCILIATION; the
// execution itself is never reversed.
func (s *PaymentService) post(ctx context.Context, companyID, paymentID uuid.UUID, result *ExecutionResult) {
	p, err := s.findPayment(ctx, companyID, paymentID)
	if err != nil {
		s.logger.Error("Failed to load payment for posting", zap.Error(err))
		return
	}

	postingResult := s.poster.Post(ctx, p)
	if postingResult.Success {
		p.MarkPosted(postingResult.JournalRef)
	} else {
		p.MarkPostingFailed()
		warning := &payment.PostingFailedWarning{PaymentID: p.ID, Cause: postingResult.Err}
		s.logger.Warn("Posting failed, payment flagged for reconciliation",
			zap.String("payment_id", p.ID.String()),
			zap.Error(warning),
		)
	}

	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		s.logger.Error("Failed to save posting state", zap.Error(err))
		return
	}

	result.PostingState = string(p.PostingState)
	result.JournalRef = p.JournalRef
}

// Cancel aborts a payment before execution
func (s *PaymentService) Cancel(ctx context.Context, companyID, paymentID, cancelledBy uuid.UUID, reason string) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "cancel")
	defer span.End()

	release, err := s.locker.Acquire(ctx, lockKey(paymentID), s.lockTimeout)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	p, err := s.findPayment(ctx, companyID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := p.Cancel(cancelledBy, reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.publishEvents(p)
	s.logger.Info("Payment cancelled",
		zap.String("payment_id", p.ID.String()),
		zap.String("reason", reason),
	)

	return ToPaymentResponse(p), nil
}

// Confirm records external settlement confirmation for an executed payment
func (s *PaymentService) Confirm(ctx context.Context, companyID, paymentID uuid.UUID, settlementRef string) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "confirm")
	defer span.End()

	release, err := s.locker.Acquire(ctx, lockKey(paymentID), s.lockTimeout)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	p, err := s.findPayment(ctx, companyID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := p.Confirm(settlementRef); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.publishEvents(p)

	return ToPaymentResponse(p), nil
}

// GetPayment returns a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, companyID, paymentID uuid.UUID) (*PaymentResponse, error) {
	p, err := s.findPayment(ctx, companyID, paymentID)
	if err != nil {
		return nil, err
	}
	return ToPaymentResponse(p), nil
}

// ListPayments returns payments for a company with filtering and pagination
func (s *PaymentService) ListPayments(ctx context.Context, companyID uuid.UUID, filter PaymentListFilter) (*shared.Paginated[PaymentResponse], error) {
	domainFilter := payment.PaymentFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
		},
		BankAccountID: filter.BankAccountID,
	}
	if filter.Status != "" {
		status := payment.PaymentStatus(filter.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_STATUS", "Unknown payment status")
		}
		domainFilter.Status = &status
	}
	if filter.Direction != "" {
		direction := payment.Direction(filter.Direction)
		if !direction.IsValid() {
			return nil, shared.NewDomainError("INVALID_DIRECTION", "Unknown payment direction")
		}
		domainFilter.Direction = &direction
	}
	if filter.PostingState != "" {
		state := payment.PostingState(filter.PostingState)
		domainFilter.PostingState = &state
	}

	payments, err := s.paymentRepo.FindAllForCompany(ctx, companyID, domainFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	total, err := s.paymentRepo.CountForCompany(ctx, companyID, domainFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	items := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, *ToPaymentResponse(&payments[i]))
	}

	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.Limit())
	return &result, nil
}

func (s *PaymentService) findPayment(ctx context.Context, companyID, paymentID uuid.UUID) (*payment.Payment, error) {
	p, err := s.paymentRepo.FindByIDForCompany(ctx, companyID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
	}
	return p, nil
}

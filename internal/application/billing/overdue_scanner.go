package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SweepResult summarizes one overdue sweep pass
type SweepResult struct {
	Scanned    int
	Flagged    int
	Failed     int
	FailedIDs  []uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
}

// OverdueScanner flags bills whose due date has lapsed with an outstanding
// balance. A sweep is idempotent: already-overdue bills are not candidates,
// so running it twice flags nothing new.
type OverdueScanner struct {
	billRepo  billing.BillRepository
	eventBus  shared.EventPublisher
	clock     shared.Clock
	logger    *zap.Logger
	billLocks *keyedMutex
	batchSize int
}

// OverdueScannerOption is a functional option for configuring the scanner
type OverdueScannerOption func(*OverdueScanner)

// WithSweepBatchSize caps the number of bills flagged per pass; the next
// pass picks up the remainder
func WithSweepBatchSize(n int) OverdueScannerOption {
	return func(s *OverdueScanner) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewOverdueScanner creates a new OverdueScanner. It shares the ledger's
// per-bill locks so a sweep never races a concurrent payment on the same
// bill.
func NewOverdueScanner(
	billRepo billing.BillRepository,
	eventBus shared.EventPublisher,
	clock shared.Clock,
	ledger *LedgerService,
	logger *zap.Logger,
	opts ...OverdueScannerOption,
) *OverdueScanner {
	s := &OverdueScanner{
		billRepo:  billRepo,
		eventBus:  eventBus,
		clock:     clock,
		logger:    logger,
		billLocks: ledger.billLocks,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunSweep flags every eligible bill as of the current clock reading.
// Failing to load the candidate set fails the sweep; a failure on one bill
// is recorded and the sweep moves on to the rest.
func (s *OverdueScanner) RunSweep(ctx context.Context) (SweepResult, error) {
	result := SweepResult{StartedAt: s.clock.Now()}

	candidates, err := s.billRepo.FindDueForSweep(ctx, result.StartedAt)
	if err != nil {
		return result, err
	}
	if s.batchSize > 0 && len(candidates) > s.batchSize {
		candidates = candidates[:s.batchSize]
	}
	result.Scanned = len(candidates)

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			result.FinishedAt = s.clock.Now()
			return result, err
		}
		flagged, err := s.flagBill(ctx, candidate.ID)
		if err != nil {
			result.Failed++
			result.FailedIDs = append(result.FailedIDs, candidate.ID)
			s.logger.Warn("failed to flag bill as overdue",
				zap.String("bill_id", candidate.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if flagged {
			result.Flagged++
		}
	}

	result.FinishedAt = s.clock.Now()
	return result, nil
}

// flagBill re-reads the bill under its lock before flagging. The candidate
// list is a snapshot; a payment or cancellation may have landed since.
func (s *OverdueScanner) flagBill(ctx context.Context, billID uuid.UUID) (bool, error) {
	s.billLocks.Lock(billID)
	defer s.billLocks.Unlock(billID)

	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return false, err
	}

	// No longer eligible means no work, not a failure
	if !bill.Status.Sweepable() || !bill.IsPastDue(s.clock.Now()) || !bill.DueAmount.IsPositive() {
		return false, nil
	}

	if err := bill.MarkOverdue(s.clock.Now()); err != nil {
		return false, err
	}
	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		return false, err
	}

	if err := s.eventBus.Publish(ctx, bill.GetDomainEvents()...); err != nil {
		s.logger.Error("failed to publish overdue events",
			zap.String("bill_id", bill.ID.String()),
			zap.Error(err),
		)
	}
	bill.ClearDomainEvents()
	return true, nil
}

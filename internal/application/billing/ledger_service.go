package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/patient"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService is the single write path for bill financial state. Every
// mutation goes load, domain operation, save under a per-bill lock, so
// paid/due amounts and status can only change through aggregate methods.
type LedgerService struct {
	billRepo    billing.BillRepository
	patientRepo patient.PatientRepository
	eventBus    shared.EventPublisher
	clock       shared.Clock
	logger      *zap.Logger
	billLocks   *keyedMutex
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	billRepo billing.BillRepository,
	patientRepo patient.PatientRepository,
	eventBus shared.EventPublisher,
	clock shared.Clock,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		billRepo:    billRepo,
		patientRepo: patientRepo,
		eventBus:    eventBus,
		clock:       clock,
		logger:      logger,
		billLocks:   newKeyedMutex(),
	}
}

// CreateBillCommand carries the parameters for creating a bill
type CreateBillCommand struct {
	PatientID            uuid.UUID
	AppointmentID        *uuid.UUID
	BillAmount           decimal.Decimal
	BillDate             time.Time
	DueDate              time.Time
	ItemizedCharges      string
	Notes                string
	InsuranceClaimNumber string
	InsuranceCoverage    decimal.Decimal
}

// CreateBill creates a new bill for a registered patient
func (s *LedgerService) CreateBill(ctx context.Context, cmd CreateBillCommand) (*billing.Bill, error) {
	exists, err := s.patientRepo.Exists(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, billing.NewPatientNotFoundError(cmd.PatientID)
	}

	// Omitted bill date means "billed today"
	billDate := cmd.BillDate
	if billDate.IsZero() {
		billDate = s.clock.Now()
	}

	bill, err := billing.NewBill(billing.NewBillInput{
		PatientID:            cmd.PatientID,
		AppointmentID:        cmd.AppointmentID,
		BillAmount:           valueobject.NewMoneyUSD(cmd.BillAmount),
		BillDate:             billDate,
		DueDate:              cmd.DueDate,
		ItemizedCharges:      cmd.ItemizedCharges,
		Notes:                cmd.Notes,
		InsuranceClaimNumber: cmd.InsuranceClaimNumber,
		InsuranceCoverage:    cmd.InsuranceCoverage,
	})
	if err != nil {
		return nil, err
	}

	if err := s.billRepo.Save(ctx, bill); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, bill)

	s.logger.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("patient_id", bill.PatientID.String()),
		zap.String("bill_amount", bill.BillAmount.StringFixed(2)),
	)
	return bill, nil
}

// GetBill retrieves a bill by ID
func (s *LedgerService) GetBill(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	bill, err := s.billRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, billing.NewBillNotFoundError(id)
		}
		return nil, err
	}
	return bill, nil
}

// ListBills retrieves bills matching the filter with pagination
func (s *LedgerService) ListBills(ctx context.Context, filter billing.BillFilter) (*shared.Paginated[*billing.Bill], error) {
	return s.billRepo.FindAll(ctx, filter)
}

// GetBillsByPatient retrieves all bills for a patient
func (s *LedgerService) GetBillsByPatient(ctx context.Context, patientID uuid.UUID) ([]*billing.Bill, error) {
	exists, err := s.patientRepo.Exists(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, billing.NewPatientNotFoundError(patientID)
	}
	return s.billRepo.FindByPatient(ctx, patientID)
}

// GetBillsByStatus retrieves all bills with the given status
func (s *LedgerService) GetBillsByStatus(ctx context.Context, status billing.BillStatus) ([]*billing.Bill, error) {
	if !status.IsValid() {
		return nil, billing.NewValidationError("Unknown bill status %q", string(status))
	}
	return s.billRepo.FindByStatus(ctx, status)
}

// GetBillsByAppointment retrieves all bills linked to an appointment
func (s *LedgerService) GetBillsByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*billing.Bill, error) {
	return s.billRepo.FindByAppointment(ctx, appointmentID)
}

// GetOverdueBills retrieves all bills currently flagged overdue
func (s *LedgerService) GetOverdueBills(ctx context.Context) ([]*billing.Bill, error) {
	return s.billRepo.FindByStatus(ctx, billing.BillStatusOverdue)
}

// ApplyPaymentCommand carries the parameters for applying a payment
type ApplyPaymentCommand struct {
	Amount decimal.Decimal
	Method billing.PaymentMethod
}

// ApplyPayment applies a payment to a bill. The whole read-derive-write runs
// under the bill's lock so two concurrent payments cannot both pass the
// overpayment check against the same snapshot.
func (s *LedgerService) ApplyPayment(ctx context.Context, billID uuid.UUID, cmd ApplyPaymentCommand) (*billing.Bill, error) {
	s.billLocks.Lock(billID)
	defer s.billLocks.Unlock(billID)

	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	if err := bill.ApplyPayment(valueobject.NewMoneyUSD(cmd.Amount), cmd.Method, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, bill)

	s.logger.Info("payment applied",
		zap.String("bill_id", bill.ID.String()),
		zap.String("amount", cmd.Amount.StringFixed(2)),
		zap.String("method", cmd.Method.String()),
		zap.String("status", bill.Status.String()),
		zap.String("due_amount", bill.DueAmount.StringFixed(2)),
	)
	return bill, nil
}

// UpdateBillCommand carries the updatable non-financial fields of a bill
type UpdateBillCommand struct {
	DueDate              *time.Time
	AppointmentID        *uuid.UUID
	ClearAppointment     bool
	ItemizedCharges      *string
	Notes                *string
	InsuranceClaimNumber *string
	InsuranceCoverage    *decimal.Decimal
}

// UpdateBill updates the non-financial fields of a bill
func (s *LedgerService) UpdateBill(ctx context.Context, billID uuid.UUID, cmd UpdateBillCommand) (*billing.Bill, error) {
	s.billLocks.Lock(billID)
	defer s.billLocks.Unlock(billID)

	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	patch := billing.DetailsPatch{
		DueDate:              cmd.DueDate,
		AppointmentID:        cmd.AppointmentID,
		ClearAppointment:     cmd.ClearAppointment,
		ItemizedCharges:      cmd.ItemizedCharges,
		Notes:                cmd.Notes,
		InsuranceClaimNumber: cmd.InsuranceClaimNumber,
		InsuranceCoverage:    cmd.InsuranceCoverage,
	}
	if err := bill.UpdateDetails(patch, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// CancelBill voids a bill with a reason
func (s *LedgerService) CancelBill(ctx context.Context, billID uuid.UUID, reason string) (*billing.Bill, error) {
	s.billLocks.Lock(billID)
	defer s.billLocks.Unlock(billID)

	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	if err := bill.Cancel(reason, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.billRepo.SaveWithLock(ctx, bill); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, bill)

	s.logger.Info("bill cancelled",
		zap.String("bill_id", bill.ID.String()),
		zap.String("reason", reason),
	)
	return bill, nil
}

// DeleteBill removes a bill permanently
func (s *LedgerService) DeleteBill(ctx context.Context, billID uuid.UUID) error {
	s.billLocks.Lock(billID)
	defer s.billLocks.Unlock(billID)

	if err := s.billRepo.Delete(ctx, billID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return billing.NewBillNotFoundError(billID)
		}
		return err
	}

	s.logger.Info("bill deleted", zap.String("bill_id", billID.String()))
	return nil
}

// publishEvents publishes and drains the aggregate's pending events. The
// bus logs handler failures itself; a publish error never fails the
// operation that already committed.
func (s *LedgerService) publishEvents(ctx context.Context, bill *billing.Bill) {
	events := bill.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish billing events",
			zap.String("bill_id", bill.ID.String()),
			zap.Error(err),
		)
	}
	bill.ClearDomainEvents()
}

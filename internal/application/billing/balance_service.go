package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/patient"
	"github.com/hms/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BalanceService aggregates a patient's outstanding balance from the source
// of truth. Totals are read through an event-invalidated cache; the sum
// itself always comes from one query over live bill rows, not from running
// counters.
type BalanceService struct {
	billRepo    billing.BillRepository
	patientRepo patient.PatientRepository
	cache       cache.BalanceCache
	logger      *zap.Logger
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(
	billRepo billing.BillRepository,
	patientRepo patient.PatientRepository,
	balanceCache cache.BalanceCache,
	logger *zap.Logger,
) *BalanceService {
	return &BalanceService{
		billRepo:    billRepo,
		patientRepo: patientRepo,
		cache:       balanceCache,
		logger:      logger,
	}
}

// GetTotalDue returns the patient's total outstanding amount across all
// bills, cancelled bills excluded. A patient with no bills owes zero.
func (s *BalanceService) GetTotalDue(ctx context.Context, patientID uuid.UUID) (decimal.Decimal, error) {
	exists, err := s.patientRepo.Exists(ctx, patientID)
	if err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, billing.NewPatientNotFoundError(patientID)
	}

	if s.cache != nil {
		total, hit, err := s.cache.GetTotalDue(ctx, patientID)
		if err != nil {
			// A broken cache degrades to a repository read
			s.logger.Warn("balance cache read failed",
				zap.String("patient_id", patientID.String()),
				zap.Error(err),
			)
		} else if hit {
			return total, nil
		}
	}

	total, err := s.billRepo.SumDueByPatient(ctx, patientID)
	if err != nil {
		return decimal.Zero, err
	}

	if s.cache != nil {
		if err := s.cache.SetTotalDue(ctx, patientID, total); err != nil {
			s.logger.Warn("balance cache write failed",
				zap.String("patient_id", patientID.String()),
				zap.Error(err),
			)
		}
	}
	return total, nil
}

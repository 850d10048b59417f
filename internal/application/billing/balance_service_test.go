package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBalanceService_GetTotalDue(t *testing.T) {
	patientID := uuid.New()

	t.Run("cache miss sums from repository and fills cache", func(t *testing.T) {
		billRepo := new(MockBillRepository)
		patientRepo := new(MockPatientRepository)
		balanceCache := new(MockBalanceCache)
		svc := NewBalanceService(billRepo, patientRepo, balanceCache, zap.NewNop())

		total := decimal.NewFromFloat(250.00)
		patientRepo.On("Exists", mock.Anything, patientID).Return(true, nil)
		balanceCache.On("GetTotalDue", mock.Anything, patientID).Return(decimal.Zero, false, nil)
		billRepo.On("SumDueByPatient", mock.Anything, patientID).Return(total, nil)
		balanceCache.On("SetTotalDue", mock.Anything, patientID, total).Return(nil)

		got, err := svc.GetTotalDue(context.Background(), patientID)

		require.NoError(t, err)
		assert.True(t, got.Equal(total))
		balanceCache.AssertExpectations(t)
	})

	t.Run("cache hit skips the repository", func(t *testing.T) {
		billRepo := new(MockBillRepository)
		patientRepo := new(MockPatientRepository)
		balanceCache := new(MockBalanceCache)
		svc := NewBalanceService(billRepo, patientRepo, balanceCache, zap.NewNop())

		total := decimal.NewFromFloat(42.00)
		patientRepo.On("Exists", mock.Anything, patientID).Return(true, nil)
		balanceCache.On("GetTotalDue", mock.Anything, patientID).Return(total, true, nil)

		got, err := svc.GetTotalDue(context.Background(), patientID)

		require.NoError(t, err)
		assert.True(t, got.Equal(total))
		billRepo.AssertNotCalled(t, "SumDueByPatient", mock.Anything, mock.Anything)
	})

	t.Run("broken cache degrades to repository read", func(t *testing.T) {
		billRepo := new(MockBillRepository)
		patientRepo := new(MockPatientRepository)
		balanceCache := new(MockBalanceCache)
		svc := NewBalanceService(billRepo, patientRepo, balanceCache, zap.NewNop())

		total := decimal.NewFromFloat(99.00)
		patientRepo.On("Exists", mock.Anything, patientID).Return(true, nil)
		balanceCache.On("GetTotalDue", mock.Anything, patientID).Return(decimal.Zero, false, errors.New("redis down"))
		billRepo.On("SumDueByPatient", mock.Anything, patientID).Return(total, nil)
		balanceCache.On("SetTotalDue", mock.Anything, patientID, total).Return(errors.New("redis down"))

		got, err := svc.GetTotalDue(context.Background(), patientID)

		require.NoError(t, err)
		assert.True(t, got.Equal(total))
	})

	t.Run("works without a cache", func(t *testing.T) {
		billRepo := new(MockBillRepository)
		patientRepo := new(MockPatientRepository)
		svc := NewBalanceService(billRepo, patientRepo, nil, zap.NewNop())

		patientRepo.On("Exists", mock.Anything, patientID).Return(true, nil)
		billRepo.On("SumDueByPatient", mock.Anything, patientID).Return(decimal.Zero, nil)

		got, err := svc.GetTotalDue(context.Background(), patientID)

		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("unknown patient", func(t *testing.T) {
		billRepo := new(MockBillRepository)
		patientRepo := new(MockPatientRepository)
		svc := NewBalanceService(billRepo, patientRepo, nil, zap.NewNop())

		patientRepo.On("Exists", mock.Anything, patientID).Return(false, nil)

		_, err := svc.GetTotalDue(context.Background(), patientID)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, billing.ErrCodeNotFound, domainErr.Code)
		billRepo.AssertNotCalled(t, "SumDueByPatient", mock.Anything, mock.Anything)
	})
}

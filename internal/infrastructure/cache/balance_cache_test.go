package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/shared/valueobject"
)

// ============================================================================
// InMemoryBalanceCache Tests
// ============================================================================

func TestInMemoryBalanceCache_SetAndGet(t *testing.T) {
	cache := NewInMemoryBalanceCache(time.Minute)
	ctx := context.Background()
	patientID := uuid.New()

	total, hit, err := cache.GetTotalDue(ctx, patientID)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, total.IsZero())

	require.NoError(t, cache.SetTotalDue(ctx, patientID, decimal.RequireFromString("312.40")))

	total, hit, err = cache.GetTotalDue(ctx, patientID)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, total.Equal(decimal.RequireFromString("312.40")))
}

func TestInMemoryBalanceCache_Expiry(t *testing.T) {
	cache := NewInMemoryBalanceCache(time.Millisecond)
	ctx := context.Background()
	patientID := uuid.New()

	require.NoError(t, cache.SetTotalDue(ctx, patientID, decimal.NewFromInt(100)))
	time.Sleep(5 * time.Millisecond)

	_, hit, err := cache.GetTotalDue(ctx, patientID)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInMemoryBalanceCache_Invalidate(t *testing.T) {
	cache := NewInMemoryBalanceCache(time.Minute)
	ctx := context.Background()
	patientID := uuid.New()

	require.NoError(t, cache.SetTotalDue(ctx, patientID, decimal.NewFromInt(50)))
	require.NoError(t, cache.Invalidate(ctx, patientID))

	_, hit, err := cache.GetTotalDue(ctx, patientID)
	require.NoError(t, err)
	assert.False(t, hit)
}

// ============================================================================
// BalanceInvalidationHandler Tests
// ============================================================================

func newCachedBill(t *testing.T) *billing.Bill {
	t.Helper()
	bill, err := billing.NewBill(billing.NewBillInput{
		PatientID:  uuid.New(),
		BillAmount: valueobject.NewMoneyUSD(decimal.NewFromInt(200)),
		BillDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return bill
}

func TestBalanceInvalidationHandler_EvictsOnPaymentApplied(t *testing.T) {
	cache := NewInMemoryBalanceCache(time.Minute)
	handler := NewBalanceInvalidationHandler(cache, zap.NewNop())
	ctx := context.Background()

	bill := newCachedBill(t)
	require.NoError(t, cache.SetTotalDue(ctx, bill.PatientID, decimal.NewFromInt(200)))

	err := handler.Handle(ctx, billing.NewPaymentAppliedEvent(bill, valueobject.NewMoneyUSD(decimal.NewFromInt(50))))
	require.NoError(t, err)

	_, hit, err := cache.GetTotalDue(ctx, bill.PatientID)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestBalanceInvalidationHandler_IgnoresUnrelatedEvents(t *testing.T) {
	cache := NewInMemoryBalanceCache(time.Minute)
	handler := NewBalanceInvalidationHandler(cache, zap.NewNop())
	ctx := context.Background()

	bill := newCachedBill(t)
	require.NoError(t, cache.SetTotalDue(ctx, bill.PatientID, decimal.NewFromInt(200)))

	// BillOverdue changes no amounts, so the cached total stays
	err := handler.Handle(ctx, billing.NewBillOverdueEvent(bill, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, hit, err := cache.GetTotalDue(ctx, bill.PatientID)
	require.NoError(t, err)
	assert.True(t, hit)
}

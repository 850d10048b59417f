package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow      = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	testBillDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	testDueDate  = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
)

// Test helpers
func createTestBill(t *testing.T) *Bill {
	b, err := NewBill(NewBillInput{
		PatientID:  uuid.New(),
		BillAmount: valueobject.NewMoneyUSDFromFloat(100.00),
		BillDate:   testBillDate,
		DueDate:    testDueDate,
	})
	require.NoError(t, err)
	return b
}

func createTestBillWithAmount(t *testing.T, amount float64) *Bill {
	b, err := NewBill(NewBillInput{
		PatientID:  uuid.New(),
		BillAmount: valueobject.NewMoneyUSDFromFloat(amount),
		BillDate:   testBillDate,
		DueDate:    testDueDate,
	})
	require.NoError(t, err)
	return b
}

func pay(t *testing.T, b *Bill, amount float64) {
	t.Helper()
	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(amount), PaymentMethodCash, testNow)
	require.NoError(t, err)
	require.NoError(t, b.Invariants())
}

// ============================================
// BillStatus Tests
// ============================================

func TestBillStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  BillStatus
		isValid bool
	}{
		{BillStatusPending, true},
		{BillStatusPartiallyPaid, true},
		{BillStatusPaid, true},
		{BillStatusOverdue, true},
		{BillStatusCancelled, true},
		{BillStatus("INVALID"), false},
		{BillStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestBillStatus_CanApplyPayment(t *testing.T) {
	assert.True(t, BillStatusPending.CanApplyPayment())
	assert.True(t, BillStatusPartiallyPaid.CanApplyPayment())
	assert.True(t, BillStatusOverdue.CanApplyPayment())
	assert.False(t, BillStatusPaid.CanApplyPayment())
	assert.False(t, BillStatusCancelled.CanApplyPayment())
}

func TestBillStatus_Sweepable(t *testing.T) {
	assert.True(t, BillStatusPending.Sweepable())
	assert.True(t, BillStatusPartiallyPaid.Sweepable())
	assert.False(t, BillStatusOverdue.Sweepable())
	assert.False(t, BillStatusPaid.Sweepable())
	assert.False(t, BillStatusCancelled.Sweepable())
}

func TestPaymentMethod_IsValid(t *testing.T) {
	valid := []PaymentMethod{
		PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodInsurance, PaymentMethodOnline,
	}
	for _, m := range valid {
		assert.True(t, m.IsValid(), string(m))
	}
	assert.False(t, PaymentMethod("CHEQUE").IsValid())
	assert.False(t, PaymentMethod("").IsValid())
}

// ============================================
// NewBill Tests
// ============================================

func TestNewBill_Success(t *testing.T) {
	patientID := uuid.New()
	appointmentID := uuid.New()

	b, err := NewBill(NewBillInput{
		PatientID:     patientID,
		AppointmentID: &appointmentID,
		BillAmount:    valueobject.NewMoneyUSDFromFloat(250.50),
		BillDate:      testBillDate,
		DueDate:       testDueDate,
		Notes:         "Consultation and lab work",
	})

	require.NoError(t, err)
	assert.Equal(t, patientID, b.PatientID)
	assert.Equal(t, &appointmentID, b.AppointmentID)
	assert.Equal(t, BillStatusPending, b.Status)
	assert.True(t, b.BillAmount.Equal(decimal.NewFromFloat(250.50)))
	assert.True(t, b.PaidAmount.IsZero())
	assert.True(t, b.DueAmount.Equal(b.BillAmount))
	assert.Nil(t, b.PaidDate)
	assert.Empty(t, b.PaymentRecords)
	require.NoError(t, b.Invariants())

	events := b.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "BillCreated", events[0].EventType())
}

func TestNewBill_TruncatesDatesToCalendarDay(t *testing.T) {
	b, err := NewBill(NewBillInput{
		PatientID:  uuid.New(),
		BillAmount: valueobject.NewMoneyUSDFromFloat(10.00),
		BillDate:   time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC),
		DueDate:    time.Date(2025, 6, 30, 8, 15, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), b.BillDate)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), b.DueDate)
}

func TestNewBill_ValidationErrors(t *testing.T) {
	valid := NewBillInput{
		PatientID:  uuid.New(),
		BillAmount: valueobject.NewMoneyUSDFromFloat(100.00),
		BillDate:   testBillDate,
		DueDate:    testDueDate,
	}

	tests := []struct {
		name   string
		mutate func(in *NewBillInput)
	}{
		{"empty patient ID", func(in *NewBillInput) { in.PatientID = uuid.Nil }},
		{"zero amount", func(in *NewBillInput) { in.BillAmount = valueobject.ZeroUSD() }},
		{"negative amount", func(in *NewBillInput) { in.BillAmount = valueobject.NewMoneyUSDFromFloat(-5.00) }},
		{"missing bill date", func(in *NewBillInput) { in.BillDate = time.Time{} }},
		{"missing due date", func(in *NewBillInput) { in.DueDate = time.Time{} }},
		{"due date before bill date", func(in *NewBillInput) { in.DueDate = testBillDate.AddDate(0, 0, -1) }},
		{"negative insurance coverage", func(in *NewBillInput) { in.InsuranceCoverage = decimal.NewFromInt(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := NewBill(in)
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, ErrCodeValidation, domainErr.Code)
		})
	}
}

func TestNewBill_DueDateSameAsBillDate(t *testing.T) {
	_, err := NewBill(NewBillInput{
		PatientID:  uuid.New(),
		BillAmount: valueobject.NewMoneyUSDFromFloat(100.00),
		BillDate:   testBillDate,
		DueDate:    testBillDate,
	})
	assert.NoError(t, err)
}

// ============================================
// ApplyPayment Tests
// ============================================

func TestBill_ApplyPayment_Partial(t *testing.T) {
	b := createTestBill(t)
	b.ClearDomainEvents()

	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(60.00), PaymentMethodCreditCard, testNow)

	require.NoError(t, err)
	assert.Equal(t, BillStatusPartiallyPaid, b.Status)
	assert.True(t, b.PaidAmount.Equal(decimal.NewFromFloat(60.00)))
	assert.True(t, b.DueAmount.Equal(decimal.NewFromFloat(40.00)))
	assert.Nil(t, b.PaidDate)
	assert.Equal(t, PaymentMethodCreditCard, b.PaymentMethod)
	require.NoError(t, b.Invariants())

	require.Len(t, b.PaymentRecords, 1)
	assert.True(t, b.PaymentRecords[0].Amount.Equal(decimal.NewFromFloat(60.00)))
	assert.Equal(t, PaymentMethodCreditCard, b.PaymentRecords[0].Method)

	events := b.GetDomainEvents()
	require.Len(t, events, 1)
	applied, ok := events[0].(*PaymentAppliedEvent)
	require.True(t, ok)
	assert.True(t, applied.Amount.Equal(decimal.NewFromFloat(60.00)))
	assert.Equal(t, BillStatusPartiallyPaid, applied.NewStatus)
}

func TestBill_ApplyPayment_FullSettlement(t *testing.T) {
	b := createTestBill(t)
	pay(t, b, 60.00)
	b.ClearDomainEvents()

	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(40.00), PaymentMethodCash, testNow)

	require.NoError(t, err)
	assert.Equal(t, BillStatusPaid, b.Status)
	assert.True(t, b.DueAmount.IsZero())
	require.NotNil(t, b.PaidDate)
	assert.Equal(t, testNow, *b.PaidDate)
	assert.Equal(t, 2, b.PaymentCount())
	require.NoError(t, b.Invariants())

	// Settling payment raises both PaymentApplied and BillPaid
	events := b.GetDomainEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "PaymentApplied", events[0].EventType())
	assert.Equal(t, "BillPaid", events[1].EventType())
}

func TestBill_ApplyPayment_ExactDueAmountAccepted(t *testing.T) {
	b := createTestBill(t)

	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(100.00), PaymentMethodOnline, testNow)

	require.NoError(t, err)
	assert.Equal(t, BillStatusPaid, b.Status)
}

func TestBill_ApplyPayment_OverpaymentRejected(t *testing.T) {
	b := createTestBill(t)
	pay(t, b, 60.00)

	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(40.01), PaymentMethodCash, testNow)

	require.Error(t, err)
	var overpayment *OverpaymentError
	require.ErrorAs(t, err, &overpayment)
	assert.Equal(t, b.ID, overpayment.BillID)
	assert.True(t, overpayment.Attempted.Equal(decimal.NewFromFloat(40.01)))
	assert.True(t, overpayment.MaxAcceptable.Equal(decimal.NewFromFloat(40.00)))
	assert.True(t, overpayment.BillAmount.Equal(decimal.NewFromFloat(100.00)))
	assert.True(t, overpayment.PaidAmount.Equal(decimal.NewFromFloat(60.00)))

	// The rejected payment must leave the bill untouched
	assert.Equal(t, BillStatusPartiallyPaid, b.Status)
	assert.True(t, b.PaidAmount.Equal(decimal.NewFromFloat(60.00)))
	assert.Equal(t, 1, b.PaymentCount())
	require.NoError(t, b.Invariants())
}

func TestBill_ApplyPayment_PaidBillRejectsAnyPayment(t *testing.T) {
	b := createTestBill(t)
	pay(t, b, 100.00)

	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(0.01), PaymentMethodCash, testNow)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, ErrCodeInvalidState, domainErr.Code)
}

func TestBill_ApplyPayment_CancelledBillRejected(t *testing.T) {
	b := createTestBill(t)
	require.NoError(t, b.Cancel("duplicate entry", testNow))

	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(10.00), PaymentMethodCash, testNow)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, ErrCodeInvalidState, domainErr.Code)
}

func TestBill_ApplyPayment_OverdueBillAccepted(t *testing.T) {
	b := createTestBill(t)
	afterDue := testDueDate.AddDate(0, 0, 5)
	require.NoError(t, b.MarkOverdue(afterDue))

	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(30.00), PaymentMethodInsurance, afterDue)

	require.NoError(t, err)
	// Forward only: an overdue bill moves to PARTIALLY_PAID, never back to PENDING
	assert.Equal(t, BillStatusPartiallyPaid, b.Status)
}

func TestBill_ApplyPayment_OverdueBillSettled(t *testing.T) {
	b := createTestBill(t)
	afterDue := testDueDate.AddDate(0, 0, 5)
	require.NoError(t, b.MarkOverdue(afterDue))

	err := b.ApplyPayment(valueobject.NewMoneyUSDFromFloat(100.00), PaymentMethodInsurance, afterDue)

	require.NoError(t, err)
	assert.Equal(t, BillStatusPaid, b.Status)
	require.NoError(t, b.Invariants())
}

func TestBill_ApplyPayment_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		amount valueobject.Money
		method PaymentMethod
	}{
		{"zero amount", valueobject.ZeroUSD(), PaymentMethodCash},
		{"negative amount", valueobject.NewMoneyUSDFromFloat(-10.00), PaymentMethodCash},
		{"unknown method", valueobject.NewMoneyUSDFromFloat(10.00), PaymentMethod("BARTER")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := createTestBill(t)
			err := b.ApplyPayment(tt.amount, tt.method, testNow)
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, ErrCodeValidation, domainErr.Code)
			assert.Equal(t, BillStatusPending, b.Status)
		})
	}
}

func TestBill_ApplyPayment_SequenceConservesBalance(t *testing.T) {
	b := createTestBillWithAmount(t, 500.00)

	for _, amount := range []float64{125.00, 125.00, 200.00} {
		pay(t, b, amount)
	}

	assert.Equal(t, BillStatusPartiallyPaid, b.Status)
	assert.True(t, b.DueAmount.Equal(decimal.NewFromFloat(50.00)))

	pay(t, b, 50.00)
	assert.Equal(t, BillStatusPaid, b.Status)
	assert.Equal(t, 4, b.PaymentCount())
}

// ============================================
// MarkOverdue Tests
// ============================================

func TestBill_MarkOverdue_Success(t *testing.T) {
	b := createTestBill(t)
	b.ClearDomainEvents()
	asOf := testDueDate.AddDate(0, 0, 3)

	err := b.MarkOverdue(asOf)

	require.NoError(t, err)
	assert.Equal(t, BillStatusOverdue, b.Status)
	require.NoError(t, b.Invariants())

	events := b.GetDomainEvents()
	require.Len(t, events, 1)
	overdue, ok := events[0].(*BillOverdueEvent)
	require.True(t, ok)
	assert.Equal(t, 3, overdue.DaysOverdue)
	assert.True(t, overdue.DueAmount.Equal(decimal.NewFromFloat(100.00)))
}

func TestBill_MarkOverdue_PartiallyPaidBill(t *testing.T) {
	b := createTestBill(t)
	pay(t, b, 25.00)

	err := b.MarkOverdue(testDueDate.AddDate(0, 0, 1))

	require.NoError(t, err)
	assert.Equal(t, BillStatusOverdue, b.Status)
}

func TestBill_MarkOverdue_NotPastDue(t *testing.T) {
	b := createTestBill(t)

	// On the due date itself the bill is not yet overdue
	err := b.MarkOverdue(testDueDate)
	require.Error(t, err)

	err = b.MarkOverdue(testDueDate.AddDate(0, 0, -5))
	require.Error(t, err)

	assert.Equal(t, BillStatusPending, b.Status)
}

func TestBill_MarkOverdue_DueDateLapsesAtMidnight(t *testing.T) {
	b := createTestBill(t)

	lastMoment := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
	require.Error(t, b.MarkOverdue(lastMoment))

	nextDay := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.MarkOverdue(nextDay))
}

func TestBill_MarkOverdue_InvalidStates(t *testing.T) {
	asOf := testDueDate.AddDate(0, 0, 1)

	t.Run("already overdue", func(t *testing.T) {
		b := createTestBill(t)
		require.NoError(t, b.MarkOverdue(asOf))
		require.Error(t, b.MarkOverdue(asOf))
	})

	t.Run("paid", func(t *testing.T) {
		b := createTestBill(t)
		pay(t, b, 100.00)
		require.Error(t, b.MarkOverdue(asOf))
	})

	t.Run("cancelled", func(t *testing.T) {
		b := createTestBill(t)
		require.NoError(t, b.Cancel("entered in error", testNow))
		require.Error(t, b.MarkOverdue(asOf))
	})
}

// ============================================
// Cancel Tests
// ============================================

func TestBill_Cancel_Success(t *testing.T) {
	b := createTestBill(t)
	b.ClearDomainEvents()

	err := b.Cancel("duplicate of another bill", testNow)

	require.NoError(t, err)
	assert.Equal(t, BillStatusCancelled, b.Status)
	require.NotNil(t, b.CancelledAt)
	assert.Equal(t, testNow, *b.CancelledAt)
	assert.Equal(t, "duplicate of another bill", b.CancelReason)

	events := b.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "BillCancelled", events[0].EventType())
}

func TestBill_Cancel_RetainsAmounts(t *testing.T) {
	b := createTestBillWithAmount(t, 999.00)
	require.NoError(t, b.Cancel("clerical error", testNow))

	// A cancelled bill keeps its historical figures
	assert.True(t, b.BillAmount.Equal(decimal.NewFromFloat(999.00)))
	assert.True(t, b.DueAmount.Equal(decimal.NewFromFloat(999.00)))
	assert.True(t, b.PaidAmount.IsZero())
}

func TestBill_Cancel_PartiallyPaidAllowed(t *testing.T) {
	b := createTestBill(t)
	pay(t, b, 30.00)

	require.NoError(t, b.Cancel("visit rebilled under insurance", testNow))

	assert.Equal(t, BillStatusCancelled, b.Status)
	assert.True(t, b.PaidAmount.Equal(decimal.NewFromFloat(30.00)))
	assert.True(t, b.DueAmount.Equal(decimal.NewFromFloat(70.00)))
}

func TestBill_Cancel_OverdueAllowed(t *testing.T) {
	b := createTestBill(t)
	require.NoError(t, b.MarkOverdue(testDueDate.AddDate(0, 0, 1)))

	require.NoError(t, b.Cancel("written off", testNow))
	assert.Equal(t, BillStatusCancelled, b.Status)
}

func TestBill_Cancel_TerminalStatesRejected(t *testing.T) {
	t.Run("paid", func(t *testing.T) {
		b := createTestBill(t)
		pay(t, b, 100.00)

		err := b.Cancel("too late", testNow)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, ErrCodeInvalidState, domainErr.Code)
	})

	t.Run("already cancelled", func(t *testing.T) {
		b := createTestBill(t)
		require.NoError(t, b.Cancel("first", testNow))
		require.Error(t, b.Cancel("second", testNow))
	})
}

func TestBill_Cancel_RequiresReason(t *testing.T) {
	b := createTestBill(t)
	err := b.Cancel("", testNow)
	require.Error(t, err)
}

// ============================================
// UpdateDetails Tests
// ============================================

func TestBill_UpdateDetails_NonFinancialFields(t *testing.T) {
	b := createTestBill(t)
	notes := "Follow-up required"
	charges := `[{"item":"X-Ray","amount":"80.00"},{"item":"Consult","amount":"20.00"}]`
	claim := "CLM-2025-0042"
	coverage := decimal.NewFromFloat(80.00)

	err := b.UpdateDetails(DetailsPatch{
		Notes:                &notes,
		ItemizedCharges:      &charges,
		InsuranceClaimNumber: &claim,
		InsuranceCoverage:    &coverage,
	}, testNow)

	require.NoError(t, err)
	assert.Equal(t, notes, b.Notes)
	assert.Equal(t, charges, b.ItemizedCharges)
	assert.Equal(t, claim, b.InsuranceClaimNumber)
	assert.True(t, b.InsuranceCoverage.Equal(coverage))

	// Financial fields stay untouched
	assert.True(t, b.BillAmount.Equal(decimal.NewFromFloat(100.00)))
	assert.True(t, b.PaidAmount.IsZero())
	assert.Equal(t, BillStatusPending, b.Status)
}

func TestBill_UpdateDetails_RescheduleClearsOverdue(t *testing.T) {
	b := createTestBill(t)
	asOf := testDueDate.AddDate(0, 0, 10)
	require.NoError(t, b.MarkOverdue(asOf))

	newDue := asOf.AddDate(0, 0, 30)
	err := b.UpdateDetails(DetailsPatch{DueDate: &newDue}, asOf)

	require.NoError(t, err)
	assert.Equal(t, BillStatusPending, b.Status)
	assert.Equal(t, DateOf(newDue), b.DueDate)
}

func TestBill_UpdateDetails_RescheduleOverduePartiallyPaid(t *testing.T) {
	b := createTestBill(t)
	pay(t, b, 40.00)
	asOf := testDueDate.AddDate(0, 0, 10)
	require.NoError(t, b.MarkOverdue(asOf))

	newDue := asOf.AddDate(0, 0, 30)
	require.NoError(t, b.UpdateDetails(DetailsPatch{DueDate: &newDue}, asOf))

	assert.Equal(t, BillStatusPartiallyPaid, b.Status)
}

func TestBill_UpdateDetails_RescheduleStillPastDueStaysOverdue(t *testing.T) {
	b := createTestBill(t)
	asOf := testDueDate.AddDate(0, 0, 10)
	require.NoError(t, b.MarkOverdue(asOf))

	// Moved later but still in the past
	newDue := testDueDate.AddDate(0, 0, 5)
	require.NoError(t, b.UpdateDetails(DetailsPatch{DueDate: &newDue}, asOf))

	assert.Equal(t, BillStatusOverdue, b.Status)
}

func TestBill_UpdateDetails_DueDateBeforeBillDateRejected(t *testing.T) {
	b := createTestBill(t)
	bad := testBillDate.AddDate(0, 0, -1)

	err := b.UpdateDetails(DetailsPatch{DueDate: &bad}, testNow)

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, ErrCodeValidation, domainErr.Code)
}

func TestBill_UpdateDetails_CancelledRejected(t *testing.T) {
	b := createTestBill(t)
	require.NoError(t, b.Cancel("void", testNow))

	notes := "should not apply"
	err := b.UpdateDetails(DetailsPatch{Notes: &notes}, testNow)

	require.Error(t, err)
	assert.Empty(t, b.Notes)
}

func TestBill_UpdateDetails_AppointmentLink(t *testing.T) {
	b := createTestBill(t)
	appointmentID := uuid.New()

	require.NoError(t, b.UpdateDetails(DetailsPatch{AppointmentID: &appointmentID}, testNow))
	assert.Equal(t, &appointmentID, b.AppointmentID)

	require.NoError(t, b.UpdateDetails(DetailsPatch{ClearAppointment: true}, testNow))
	assert.Nil(t, b.AppointmentID)
}

func TestBill_UpdateDetails_SingleVersionIncrement(t *testing.T) {
	b := createTestBill(t)
	before := b.GetVersion()
	notes := "a"
	charges := "b"

	require.NoError(t, b.UpdateDetails(DetailsPatch{Notes: &notes, ItemizedCharges: &charges}, testNow))

	assert.Equal(t, before+1, b.GetVersion())
}

// ============================================
// Helper Tests
// ============================================

func TestDateOf(t *testing.T) {
	in := time.Date(2025, 6, 15, 18, 45, 12, 999, time.FixedZone("UTC+9", 9*3600))
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), DateOf(in))

	// An instant late in a western zone can belong to the next UTC day
	west := time.Date(2025, 6, 15, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), DateOf(west))
}

func TestBill_DaysOverdue(t *testing.T) {
	b := createTestBill(t)

	assert.Equal(t, 0, b.DaysOverdue(testDueDate))
	assert.Equal(t, 1, b.DaysOverdue(testDueDate.AddDate(0, 0, 1)))
	assert.Equal(t, 14, b.DaysOverdue(testDueDate.AddDate(0, 0, 14)))
}

func TestBill_IsPastDue(t *testing.T) {
	b := createTestBill(t)

	assert.False(t, b.IsPastDue(testDueDate))
	assert.False(t, b.IsPastDue(time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC)))
	assert.True(t, b.IsPastDue(time.Date(2025, 7, 1, 0, 0, 1, 0, time.UTC)))
}

// ============================================
// PaymentRecords Scanner/Valuer Tests
// ============================================

func TestPaymentRecords_ValueAndScan(t *testing.T) {
	records := PaymentRecords{
		{ID: uuid.New(), Amount: decimal.NewFromFloat(25.50), Method: PaymentMethodCash, AppliedAt: testNow},
	}

	value, err := records.Value()
	require.NoError(t, err)

	var scanned PaymentRecords
	require.NoError(t, scanned.Scan(value))
	require.Len(t, scanned, 1)
	assert.Equal(t, records[0].ID, scanned[0].ID)
	assert.True(t, scanned[0].Amount.Equal(decimal.NewFromFloat(25.50)))
}

func TestPaymentRecords_ScanNil(t *testing.T) {
	var records PaymentRecords
	require.NoError(t, records.Scan(nil))
	assert.Empty(t, records)
}

// ============================================
// Error Taxonomy Tests
// ============================================

func TestOverpaymentError_Message(t *testing.T) {
	err := &OverpaymentError{
		BillID:        uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Attempted:     decimal.NewFromFloat(50.00),
		MaxAcceptable: decimal.NewFromFloat(40.00),
		BillAmount:    decimal.NewFromFloat(100.00),
		PaidAmount:    decimal.NewFromFloat(60.00),
	}

	msg := err.Error()
	assert.Contains(t, msg, "50")
	assert.Contains(t, msg, "40")
	assert.Equal(t, ErrCodeOverpayment, err.Code())

	// The typed error must stay matchable through wrapping
	wrapped := errorsJoin(err)
	var target *OverpaymentError
	assert.True(t, errors.As(wrapped, &target))
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("applying payment"), err)
}

func TestNewBillNotFoundError(t *testing.T) {
	id := uuid.New()
	err := NewBillNotFoundError(id)
	assert.Equal(t, ErrCodeNotFound, err.Code)
	assert.Contains(t, err.Message, id.String())
}

package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BillStatus represents the lifecycle status of a bill
type BillStatus string

const (
	BillStatusPending       BillStatus = "PENDING"        // Created, no payment applied yet
	BillStatusPartiallyPaid BillStatus = "PARTIALLY_PAID" // 0 < paid < bill amount
	BillStatusPaid          BillStatus = "PAID"           // Fully paid, due amount zero
	BillStatusOverdue       BillStatus = "OVERDUE"        // Past due date with an outstanding balance
	BillStatusCancelled     BillStatus = "CANCELLED"      // Administratively voided
)

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	switch s {
	case BillStatusPending, BillStatusPartiallyPaid, BillStatusPaid,
		BillStatusOverdue, BillStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of BillStatus
func (s BillStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further payment-driven transitions are possible
func (s BillStatus) IsTerminal() bool {
	return s == BillStatusPaid || s == BillStatusCancelled
}

// CanApplyPayment returns true if payments can be applied in this status.
// An overdue bill still accepts payments; it moves forward to
// PARTIALLY_PAID or PAID, never back through PENDING.
func (s BillStatus) CanApplyPayment() bool {
	return s == BillStatusPending || s == BillStatusPartiallyPaid || s == BillStatusOverdue
}

// Sweepable returns true if the overdue sweep considers bills in this status
func (s BillStatus) Sweepable() bool {
	return s == BillStatusPending || s == BillStatusPartiallyPaid
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodInsurance  PaymentMethod = "INSURANCE"
	PaymentMethodOnline     PaymentMethod = "ONLINE"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodInsurance, PaymentMethodOnline:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentRecord represents a single payment applied to a bill.
// It is a value object within the Bill aggregate, stored as JSONB.
type PaymentRecord struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	AppliedAt time.Time       `json:"applied_at"`
}

// PaymentRecords is a slice of PaymentRecord implementing GORM Scanner/Valuer
// for JSONB storage
type PaymentRecords []PaymentRecord

// Value implements driver.Valuer for GORM to store as JSONB
func (p PaymentRecords) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (p *PaymentRecords) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentRecords{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentRecords: unsupported type")
	}

	if len(bytes) == 0 {
		*p = PaymentRecords{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// DateOf truncates an instant to its calendar day in UTC. Bill and due dates
// carry day granularity; all overdue comparisons go through this.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Bill is the aggregate root for a patient invoice. It tracks the amount
// billed for an encounter, payments applied against it, the derived due
// amount and the lifecycle status. All derivation lives in this type; nothing
// outside the aggregate writes paid/due/status directly.
type Bill struct {
	shared.BaseAggregateRoot
	PatientID            uuid.UUID       `json:"patient_id"`
	AppointmentID        *uuid.UUID      `json:"appointment_id,omitempty"`
	BillAmount           decimal.Decimal `json:"bill_amount"` // Fixed at creation
	PaidAmount           decimal.Decimal `json:"paid_amount"` // Monotonically non-decreasing
	DueAmount            decimal.Decimal `json:"due_amount"`  // Always BillAmount - PaidAmount
	Status               BillStatus      `json:"status"`
	BillDate             time.Time       `json:"bill_date"`
	DueDate              time.Time       `json:"due_date"`
	PaidDate             *time.Time      `json:"paid_date,omitempty"` // Set exactly on transition to PAID
	PaymentMethod        PaymentMethod   `json:"payment_method,omitempty"`
	PaymentRecords       PaymentRecords  `json:"payment_records"`
	ItemizedCharges      string          `json:"itemized_charges,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	InsuranceClaimNumber string          `json:"insurance_claim_number,omitempty"`
	InsuranceCoverage    decimal.Decimal `json:"insurance_coverage"`
	CancelledAt          *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason         string          `json:"cancel_reason,omitempty"`
}

// NewBillInput carries the creation parameters for a bill
type NewBillInput struct {
	PatientID            uuid.UUID
	AppointmentID        *uuid.UUID
	BillAmount           valueobject.Money
	BillDate             time.Time
	DueDate              time.Time
	ItemizedCharges      string
	Notes                string
	InsuranceClaimNumber string
	InsuranceCoverage    decimal.Decimal
}

// NewBill creates a new bill in PENDING status with nothing paid
func NewBill(in NewBillInput) (*Bill, error) {
	if in.PatientID == uuid.Nil {
		return nil, NewValidationError("Patient ID cannot be empty")
	}
	if !in.BillAmount.IsPositive() {
		return nil, NewValidationError("Bill amount must be positive, got %s", in.BillAmount.StringFixed())
	}
	if in.BillDate.IsZero() || in.DueDate.IsZero() {
		return nil, NewValidationError("Bill date and due date are required")
	}
	billDate := DateOf(in.BillDate)
	dueDate := DateOf(in.DueDate)
	if dueDate.Before(billDate) {
		return nil, NewValidationError("Due date %s cannot be before bill date %s",
			dueDate.Format(time.DateOnly), billDate.Format(time.DateOnly))
	}
	if in.InsuranceCoverage.IsNegative() {
		return nil, NewValidationError("Insurance coverage cannot be negative")
	}

	b := &Bill{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		PatientID:            in.PatientID,
		AppointmentID:        in.AppointmentID,
		BillAmount:           in.BillAmount.Amount(),
		PaidAmount:           decimal.Zero,
		DueAmount:            in.BillAmount.Amount(),
		Status:               BillStatusPending,
		BillDate:             billDate,
		DueDate:              dueDate,
		PaymentRecords:       PaymentRecords{},
		ItemizedCharges:      in.ItemizedCharges,
		Notes:                in.Notes,
		InsuranceClaimNumber: in.InsuranceClaimNumber,
		InsuranceCoverage:    in.InsuranceCoverage,
	}

	b.AddDomainEvent(NewBillCreatedEvent(b))

	return b, nil
}

// ApplyPayment applies a payment to the bill. The payment either fully
// commits or the bill is left untouched. A payment exceeding the due amount
// is rejected with *OverpaymentError; it is never clamped down.
func (b *Bill) ApplyPayment(amount valueobject.Money, method PaymentMethod, now time.Time) error {
	if !b.Status.CanApplyPayment() {
		return NewInvalidStateError("apply a payment to", b.Status)
	}
	if !amount.IsPositive() {
		return NewValidationError("Payment amount must be positive, got %s", amount.StringFixed())
	}
	if !method.IsValid() {
		return NewValidationError("Unknown payment method %q", string(method))
	}
	if amount.Amount().GreaterThan(b.DueAmount) {
		return &OverpaymentError{
			BillID:        b.ID,
			Attempted:     amount.Amount(),
			MaxAcceptable: b.DueAmount,
			BillAmount:    b.BillAmount,
			PaidAmount:    b.PaidAmount,
		}
	}

	b.PaymentRecords = append(b.PaymentRecords, PaymentRecord{
		ID:        uuid.New(),
		Amount:    amount.Amount(),
		Method:    method,
		AppliedAt: now,
	})

	b.PaidAmount = b.PaidAmount.Add(amount.Amount())
	b.DueAmount = b.BillAmount.Sub(b.PaidAmount)
	b.PaymentMethod = method

	if b.DueAmount.IsZero() {
		paidAt := now
		b.Status = BillStatusPaid
		b.PaidDate = &paidAt
	} else {
		b.Status = BillStatusPartiallyPaid
	}

	b.AddDomainEvent(NewPaymentAppliedEvent(b, amount))
	if b.Status == BillStatusPaid {
		b.AddDomainEvent(NewBillPaidEvent(b))
	}

	b.UpdatedAt = now
	b.IncrementVersion()

	return nil
}

// IsPastDue reports whether the bill's due date has lapsed as of the given
// date, regardless of status
func (b *Bill) IsPastDue(asOf time.Time) bool {
	return DateOf(b.DueDate).Before(DateOf(asOf))
}

// MarkOverdue transitions the bill to OVERDUE. Only bills with an
// outstanding balance and a lapsed due date qualify; terminal and
// already-overdue bills are rejected.
func (b *Bill) MarkOverdue(asOf time.Time) error {
	if !b.Status.Sweepable() {
		return NewInvalidStateError("mark overdue", b.Status)
	}
	if !b.DueAmount.IsPositive() {
		return NewValidationError("Bill %s has no outstanding balance", b.ID)
	}
	if !b.IsPastDue(asOf) {
		return NewValidationError("Bill %s is not past due as of %s", b.ID, DateOf(asOf).Format(time.DateOnly))
	}

	b.Status = BillStatusOverdue
	b.AddDomainEvent(NewBillOverdueEvent(b, asOf))

	b.UpdatedAt = asOf
	b.IncrementVersion()

	return nil
}

// Cancel voids the bill. Cancellation is terminal; the recorded amounts are
// retained so a cancelled bill keeps its historical paid/due figures, but it
// no longer counts toward the patient's outstanding balance.
func (b *Bill) Cancel(reason string, now time.Time) error {
	if b.Status.IsTerminal() {
		return NewInvalidStateError("cancel", b.Status)
	}
	if reason == "" {
		return NewValidationError("Cancel reason is required")
	}

	b.Status = BillStatusCancelled
	b.CancelledAt = &now
	b.CancelReason = reason
	b.AddDomainEvent(NewBillCancelledEvent(b))

	b.UpdatedAt = now
	b.IncrementVersion()

	return nil
}

// DetailsPatch carries the updatable non-financial fields of a bill.
/// Nil pointers mean "leave unchanged". BillAmount is intentionally absent:
// amending the amount of an existing bill would invalidate already-applied
// payments, so the only path is cancel and recreate.
type DetailsPatch struct {
	DueDate              *time.Time
	AppointmentID        *uuid.UUID
	ClearAppointment     bool
	ItemizedCharges      *string
	Notes                *string
	InsuranceClaimNumber *string
	InsuranceCoverage    *decimal.Decimal
}

// UpdateDetails applies a patch of non-financial fields. Moving the due date
// re-derives an OVERDUE status against the given clock reading so the
// overdue invariant keeps holding.
func (b *Bill) UpdateDetails(patch DetailsPatch, now time.Time) error {
	if b.Status == BillStatusCancelled {
		return NewInvalidStateError("update", b.Status)
	}

	if patch.DueDate != nil {
		dueDate := DateOf(*patch.DueDate)
		if dueDate.Before(DateOf(b.BillDate)) {
			return NewValidationError("Due date %s cannot be before bill date %s",
				dueDate.Format(time.DateOnly), DateOf(b.BillDate).Format(time.DateOnly))
		}
		b.DueDate = dueDate
		if b.Status == BillStatusOverdue && !b.IsPastDue(now) {
			// Rescheduled into the future; the bill is no longer lapsed.
			if b.PaidAmount.IsPositive() {
				b.Status = BillStatusPartiallyPaid
			} else {
				b.Status = BillStatusPending
			}
		}
	}
	if patch.ClearAppointment {
		b.AppointmentID = nil
	} else if patch.AppointmentID != nil {
		b.AppointmentID = patch.AppointmentID
	}
	if patch.ItemizedCharges != nil {
		b.ItemizedCharges = *patch.ItemizedCharges
	}
	if patch.Notes != nil {
		b.Notes = *patch.Notes
	}
	if patch.InsuranceClaimNumber != nil {
		b.InsuranceClaimNumber = *patch.InsuranceClaimNumber
	}
	if patch.InsuranceCoverage != nil {
		if patch.InsuranceCoverage.IsNegative() {
			return NewValidationError("Insurance coverage cannot be negative")
		}
		b.InsuranceCoverage = *patch.InsuranceCoverage
	}

	b.UpdatedAt = now
	b.IncrementVersion()

	return nil
}

// Invariants verifies the consistency rules that must hold after every
// mutation. Tests call this after each operation; mutators keep it true by
// construction.
func (b *Bill) Invariants() error {
	if !b.DueAmount.Equal(b.BillAmount.Sub(b.PaidAmount)) {
		return NewValidationError("due amount %s != bill amount %s - paid amount %s",
			b.DueAmount.StringFixed(2), b.BillAmount.StringFixed(2), b.PaidAmount.StringFixed(2))
	}
	if b.DueAmount.IsNegative() {
		return NewValidationError("due amount %s is negative", b.DueAmount.StringFixed(2))
	}
	if b.PaidAmount.GreaterThan(b.BillAmount) {
		return NewValidationError("paid amount %s exceeds bill amount %s",
			b.PaidAmount.StringFixed(2), b.BillAmount.StringFixed(2))
	}
	if b.Status != BillStatusCancelled && (b.Status == BillStatusPaid) != b.DueAmount.IsZero() {
		return NewValidationError("status %s inconsistent with due amount %s", b.Status, b.DueAmount.StringFixed(2))
	}
	if b.Status == BillStatusPaid && b.PaidDate == nil {
		return NewValidationError("PAID bill has no paid date")
	}
	return nil
}

// Money accessors

// GetBillAmountMoney returns the bill amount as Money
func (b *Bill) GetBillAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.BillAmount)
}

// GetPaidAmountMoney returns the paid amount as Money
func (b *Bill) GetPaidAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.PaidAmount)
}

// GetDueAmountMoney returns the due amount as Money
func (b *Bill) GetDueAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.DueAmount)
}

// IsPending returns true if the bill is pending
func (b *Bill) IsPending() bool {
	return b.Status == BillStatusPending
}

// IsPaid returns true if the bill is fully paid
func (b *Bill) IsPaid() bool {
	return b.Status == BillStatusPaid
}

// IsCancelled returns true if the bill is cancelled
func (b *Bill) IsCancelled() bool {
	return b.Status == BillStatusCancelled
}

// IsOverdue returns true if the bill is flagged overdue
func (b *Bill) IsOverdue() bool {
	return b.Status == BillStatusOverdue
}

// DaysOverdue returns the number of whole days past due as of the given
// date (0 if not past due)
func (b *Bill) DaysOverdue(asOf time.Time) int {
	if !b.IsPastDue(asOf) {
		return 0
	}
	return int(DateOf(asOf).Sub(DateOf(b.DueDate)).Hours() / 24)
}

// PaymentCount returns the number of payments applied
func (b *Bill) PaymentCount() int {
	return len(b.PaymentRecords)
}

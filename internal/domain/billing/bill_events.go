package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// BillCreatedEvent is raised when a new bill is created
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID        uuid.UUID       `json:"bill_id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	BillAmount    decimal.Decimal `json:"bill_amount"`
	BillDate      time.Time       `json:"bill_date"`
	DueDate       time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *BillCreatedEvent) EventType() string {
	return "BillCreated"
}

// NewBillCreatedEvent creates a new BillCreatedEvent
func NewBillCreatedEvent(b *Bill) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BillCreated", "Bill", b.ID),
		BillID:          b.ID,
		PatientID:       b.PatientID,
		AppointmentID:   b.AppointmentID,
		BillAmount:      b.BillAmount,
		BillDate:        b.BillDate,
		DueDate:         b.DueDate,
	}
}

// PaymentAppliedEvent is raised each time a payment is applied to a bill
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID       `json:"bill_id"`
	PatientID  uuid.UUID       `json:"patient_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	DueAmount  decimal.Decimal `json:"due_amount"`
	NewStatus  BillStatus      `json:"new_status"`
}

// EventType returns the event type name
func (e *PaymentAppliedEvent) EventType() string {
	return "PaymentApplied"
}

// NewPaymentAppliedEvent creates a new PaymentAppliedEvent
func NewPaymentAppliedEvent(b *Bill, amount valueobject.Money) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentApplied", "Bill", b.ID),
		BillID:          b.ID,
		PatientID:       b.PatientID,
		Amount:          amount.Amount(),
		Method:          b.PaymentMethod,
		PaidAmount:      b.PaidAmount,
		DueAmount:       b.DueAmount,
		NewStatus:       b.Status,
	}
}

// BillPaidEvent is raised when a bill becomes fully paid
type BillPaidEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID       `json:"bill_id"`
	PatientID  uuid.UUID       `json:"patient_id"`
	BillAmount decimal.Decimal `json:"bill_amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	PaidAt     time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *BillPaidEvent) EventType() string {
	return "BillPaid"
}

// NewBillPaidEvent creates a new BillPaidEvent
func NewBillPaidEvent(b *Bill) *BillPaidEvent {
	paidAt := time.Now()
	if b.PaidDate != nil {
		paidAt = *b.PaidDate
	}
	return &BillPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BillPaid", "Bill", b.ID),
		BillID:          b.ID,
		PatientID:       b.PatientID,
		BillAmount:      b.BillAmount,
		PaidAmount:      b.PaidAmount,
		PaidAt:          paidAt,
	}
}

// BillOverdueEvent is raised when the overdue sweep flags a bill
type BillOverdueEvent struct {
	shared.BaseDomainEvent
	BillID      uuid.UUID       `json:"bill_id"`
	PatientID   uuid.UUID       `json:"patient_id"`
	DueAmount   decimal.Decimal `json:"due_amount"`
	DueDate     time.Time       `json:"due_date"`
	DaysOverdue int             `json:"days_overdue"`
}

// EventType returns the event type name
func (e *BillOverdueEvent) EventType() string {
	return "BillOverdue"
}

// NewBillOverdueEvent creates a new BillOverdueEvent
func NewBillOverdueEvent(b *Bill, asOf time.Time) *BillOverdueEvent {
	return &BillOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BillOverdue", "Bill", b.ID),
		BillID:          b.ID,
		PatientID:       b.PatientID,
		DueAmount:       b.DueAmount,
		DueDate:         b.DueDate,
		DaysOverdue:     b.DaysOverdue(asOf),
	}
}

// BillCancelledEvent is raised when a bill is cancelled
type BillCancelledEvent struct {
	shared.BaseDomainEvent
	BillID     uuid.UUID       `json:"bill_id"`
	PatientID  uuid.UUID       `json:"patient_id"`
	DueAmount  decimal.Decimal `json:"due_amount"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Reason     string          `json:"reason"`
}

// EventType returns the event type name
func (e *BillCancelledEvent) EventType() string {
	return "BillCancelled"
}

// NewBillCancelledEvent creates a new BillCancelledEvent
func NewBillCancelledEvent(b *Bill) *BillCancelledEvent {
	return &BillCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BillCancelled", "Bill", b.ID),
		BillID:          b.ID,
		PatientID:       b.PatientID,
		DueAmount:       b.DueAmount,
		PaidAmount:      b.PaidAmount,
		Reason:          b.CancelReason,
	}
}

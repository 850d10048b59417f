package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes surfaced by the billing domain
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInvalidState = "INVALID_STATE"
	ErrCodeOverpayment  = "OVERPAYMENT"
)

// NewValidationError creates a validation error with the given message
func NewValidationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(ErrCodeValidation, fmt.Sprintf(format, args...))
}

// NewBillNotFoundError creates a not-found error for a bill
func NewBillNotFoundError(billID uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(ErrCodeNotFound, fmt.Sprintf("Bill %s not found", billID))
}

// NewPatientNotFoundError creates a not-found error for a patient reference
func NewPatientNotFoundError(patientID uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(ErrCodeNotFound, fmt.Sprintf("Patient %s not found", patientID))
}

// NewInvalidStateError creates an invalid-state error describing the rejected
// operation and the bill's current status
func NewInvalidStateError(op string, status BillStatus) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInvalidState, fmt.Sprintf("Cannot %s a bill in %s status", op, status))
}

// OverpaymentError is returned when a payment would exceed the remaining due
// amount. The excess is rejected outright rather than silently truncated, so
// the error carries the bill's authoritative amounts and the maximum payment
// that would be accepted.
type OverpaymentError struct {
	BillID        uuid.UUID
	Attempted     decimal.Decimal
	MaxAcceptable decimal.Decimal
	BillAmount    decimal.Decimal
	PaidAmount    decimal.Decimal
}

// Error implements the error interface
func (e *OverpaymentError) Error() string {
	return fmt.Sprintf(
		"Payment of %s exceeds the due amount on bill %s: at most %s is acceptable (bill amount %s, paid %s)",
		e.Attempted.StringFixed(2), e.BillID, e.MaxAcceptable.StringFixed(2),
		e.BillAmount.StringFixed(2), e.PaidAmount.StringFixed(2),
	)
}

// Code returns the error code for transport mapping
func (e *OverpaymentError) Code() string {
	return ErrCodeOverpayment
}

package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BillFilter defines filter criteria for bill queries
type BillFilter struct {
	shared.Filter
	PatientID     *uuid.UUID
	AppointmentID *uuid.UUID
	Status        *BillStatus
	BillDateFrom  *time.Time
	BillDateTo    *time.Time
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	MinDueAmount  *decimal.Decimal
	MaxDueAmount  *decimal.Decimal
}

// BillRepository defines the persistence interface for bills
type BillRepository interface {
	// FindByID retrieves a bill by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// FindAll retrieves bills matching the filter with pagination
	FindAll(ctx context.Context, filter BillFilter) (*shared.Paginated[*Bill], error)

	// FindByPatient retrieves all bills for a patient
	FindByPatient(ctx context.Context, patientID uuid.UUID) ([]*Bill, error)

	// FindByStatus retrieves all bills with the given status
	FindByStatus(ctx context.Context, status BillStatus) ([]*Bill, error)

	// FindByAppointment retrieves all bills for an appointment
	FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Bill, error)

	// FindDueForSweep retrieves bills the overdue sweep should flag: bills
	// in a sweepable status whose due date lies strictly before the given
	// calendar day
	FindDueForSweep(ctx context.Context, asOf time.Time) ([]*Bill, error)

	// Save persists a bill (insert or update)
	Save(ctx context.Context, bill *Bill) error

	// SaveWithLock persists a bill with optimistic concurrency control on
	// its version; returns shared.ErrConcurrencyConflict when stale
	SaveWithLock(ctx context.Context, bill *Bill) error

	// Delete removes a bill permanently
	Delete(ctx context.Context, id uuid.UUID) error

	// Count returns the number of bills matching the filter
	Count(ctx context.Context, filter BillFilter) (int64, error)

	// SumDueByPatient returns the total outstanding amount across a
	// patient's bills, excluding cancelled ones
	SumDueByPatient(ctx context.Context, patientID uuid.UUID) (decimal.Decimal, error)
}

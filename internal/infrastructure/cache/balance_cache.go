package cache

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceCache caches per-patient outstanding balance totals. Aggregating a
// patient's total due hits every bill row for the patient, so reads go
// through this cache and writes invalidate it.
type BalanceCache interface {
	// GetTotalDue returns the cached total and true on a hit
	GetTotalDue(ctx context.Context, patientID uuid.UUID) (decimal.Decimal, bool, error)

	// SetTotalDue stores the total for a patient
	SetTotalDue(ctx context.Context, patientID uuid.UUID, total decimal.Decimal) error

	// Invalidate evicts the cached total for a patient
	Invalidate(ctx context.Context, patientID uuid.UUID) error

	// Close releases cache resources
	Close() error
}

package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
)

// PatientRepository defines the persistence interface for patients
type PatientRepository interface {
	// FindByID retrieves a patient by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// FindAll retrieves patients matching the filter with pagination
	FindAll(ctx context.Context, filter shared.Filter) (*shared.Paginated[*Patient], error)

	// Exists reports whether a patient with the given ID is registered
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Save persists a patient (insert or update)
	Save(ctx context.Context, p *Patient) error

	// Delete removes a patient record
	Delete(ctx context.Context, id uuid.UUID) error
}

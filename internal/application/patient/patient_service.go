package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/patient"
	"github.com/hms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PatientService provides application-level patient registry operations
type PatientService struct {
	repo   patient.PatientRepository
	logger *zap.Logger
}

// NewPatientService creates a new PatientService
func NewPatientService(repo patient.PatientRepository, logger *zap.Logger) *PatientService {
	return &PatientService{repo: repo, logger: logger}
}

// RegisterPatientCommand carries the parameters for registering a patient
type RegisterPatientCommand struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Gender      patient.Gender
	Phone       string
	Email       string
	Address     string
}

// RegisterPatient registers a new patient record
func (s *PatientService) RegisterPatient(ctx context.Context, cmd RegisterPatientCommand) (*patient.Patient, error) {
	p, err := patient.NewPatient(cmd.FirstName, cmd.LastName)
	if err != nil {
		return nil, err
	}
	if cmd.Gender != "" && !cmd.Gender.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unknown gender value")
	}
	p.DateOfBirth = cmd.DateOfBirth
	p.Gender = cmd.Gender
	p.Phone = cmd.Phone
	p.Email = cmd.Email
	p.Address = cmd.Address

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("patient registered", zap.String("patient_id", p.ID.String()))
	return p, nil
}

// GetPatient retrieves a patient by ID
func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, patient.NewPatientNotFoundError(id)
		}
		return nil, err
	}
	return p, nil
}

// ListPatients retrieves patients matching the filter with pagination
func (s *PatientService) ListPatients(ctx context.Context, filter shared.Filter) (*shared.Paginated[*patient.Patient], error) {
	return s.repo.FindAll(ctx, filter)
}

package patient

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/shared"
)

// Gender of a patient record
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// IsValid checks if the gender value is valid
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Patient is the registration record the billing context charges against.
// Clinical data lives elsewhere; this aggregate only carries identity and
// contact details.
type Patient struct {
	shared.BaseAggregateRoot
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      Gender     `json:"gender,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Address     string     `json:"address,omitempty"`
}

// NewPatient creates a new patient record
func NewPatient(firstName, lastName string) (*Patient, error) {
	if firstName == "" || lastName == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Patient first and last name are required")
	}
	return &Patient{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FirstName:         firstName,
		LastName:          lastName,
	}, nil
}

// FullName returns the patient's display name
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// NewPatientNotFoundError creates a not-found error for a patient
func NewPatientNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError("NOT_FOUND", "Patient "+id.String()+" not found")
}

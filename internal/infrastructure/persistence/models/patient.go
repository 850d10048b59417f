package models

import (
	"time"

	"github.com/hms/backend/internal/domain/patient"
	"github.com/hms/backend/internal/domain/shared"
)

// PatientModel is the persistence model for the Patient aggregate root.
type PatientModel struct {
	AggregateModel
	FirstName   string     `gorm:"type:varchar(100);not null"`
	LastName    string     `gorm:"type:varchar(100);not null;index"`
	DateOfBirth *time.Time `gorm:""`
	Gender      string     `gorm:"type:varchar(10)"`
	Phone       string     `gorm:"type:varchar(30)"`
	Email       string     `gorm:"type:varchar(200);index"`
	Address     string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PatientModel) TableName() string {
	return "patients"
}

// ToDomain converts the persistence model to a domain Patient entity.
func (m *PatientModel) ToDomain() *patient.Patient {
	return &patient.Patient{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		DateOfBirth: m.DateOfBirth,
		Gender:      patient.Gender(m.Gender),
		Phone:       m.Phone,
		Email:       m.Email,
		Address:     m.Address,
	}
}

// FromDomain populates the persistence model from a domain Patient entity.
func (m *PatientModel) FromDomain(p *patient.Patient) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.FirstName = p.FirstName
	m.LastName = p.LastName
	m.DateOfBirth = p.DateOfBirth
	m.Gender = string(p.Gender)
	m.Phone = p.Phone
	m.Email = p.Email
	m.Address = p.Address
}

// PatientModelFromDomain creates a new persistence model from a domain Patient.
func PatientModelFromDomain(p *patient.Patient) *PatientModel {
	m := &PatientModel{}
	m.FromDomain(p)
	return m
}

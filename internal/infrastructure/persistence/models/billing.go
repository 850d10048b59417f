package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BillModel is the persistence model for the Bill aggregate root.
type BillModel struct {
	AggregateModel
	PatientID            uuid.UUID              `gorm:"type:uuid;not null;index"`
	AppointmentID        *uuid.UUID             `gorm:"type:uuid;index"`
	BillAmount           decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	PaidAmount           decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	DueAmount            decimal.Decimal        `gorm:"type:decimal(18,2);not null;index"`
	Status               billing.BillStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	BillDate             time.Time              `gorm:"not null"`
	DueDate              time.Time              `gorm:"not null;index"`
	PaidDate             *time.Time             `gorm:""`
	PaymentMethod        billing.PaymentMethod  `gorm:"type:varchar(20)"`
	PaymentRecords       billing.PaymentRecords `gorm:"type:jsonb;default:'[]'"`
	ItemizedCharges      string                 `gorm:"type:text"`
	Notes                string                 `gorm:"type:text"`
	InsuranceClaimNumber string                 `gorm:"type:varchar(100)"`
	InsuranceCoverage    decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	CancelledAt          *time.Time
	CancelReason         string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// ToDomain converts the persistence model to a domain Bill entity.
func (m *BillModel) ToDomain() *billing.Bill {
	return &billing.Bill{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		PatientID:            m.PatientID,
		AppointmentID:        m.AppointmentID,
		BillAmount:           m.BillAmount,
		PaidAmount:           m.PaidAmount,
		DueAmount:            m.DueAmount,
		Status:               m.Status,
		BillDate:             m.BillDate,
		DueDate:              m.DueDate,
		PaidDate:             m.PaidDate,
		PaymentMethod:        m.PaymentMethod,
		PaymentRecords:       m.PaymentRecords,
		ItemizedCharges:      m.ItemizedCharges,
		Notes:                m.Notes,
		InsuranceClaimNumber: m.InsuranceClaimNumber,
		InsuranceCoverage:    m.InsuranceCoverage,
		CancelledAt:          m.CancelledAt,
		CancelReason:         m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Bill entity.
func (m *BillModel) FromDomain(b *billing.Bill) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.PatientID = b.PatientID
	m.AppointmentID = b.AppointmentID
	m.BillAmount = b.BillAmount
	m.PaidAmount = b.PaidAmount
	m.DueAmount = b.DueAmount
	m.Status = b.Status
	m.BillDate = b.BillDate
	m.DueDate = b.DueDate
	m.PaidDate = b.PaidDate
	m.PaymentMethod = b.PaymentMethod
	m.PaymentRecords = b.PaymentRecords
	m.ItemizedCharges = b.ItemizedCharges
	m.Notes = b.Notes
	m.InsuranceClaimNumber = b.InsuranceClaimNumber
	m.InsuranceCoverage = b.InsuranceCoverage
	m.CancelledAt = b.CancelledAt
	m.CancelReason = b.CancelReason
}

// BillModelFromDomain creates a new persistence model from a domain Bill.
func BillModelFromDomain(b *billing.Bill) *BillModel {
	m := &BillModel{}
	m.FromDomain(b)
	return m
}

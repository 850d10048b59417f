package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/patient"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockBillRepository is a mock implementation of billing.BillRepository
type MockBillRepository struct {
	mock.Mock
}

func (m *MockBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Bill), args.Error(1)
}

func (m *MockBillRepository) FindAll(ctx context.Context, filter billing.BillFilter) (*shared.Paginated[*billing.Bill], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*billing.Bill]), args.Error(1)
}

func (m *MockBillRepository) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]*billing.Bill, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Bill), args.Error(1)
}

func (m *MockBillRepository) FindByStatus(ctx context.Context, status billing.BillStatus) ([]*billing.Bill, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Bill), args.Error(1)
}

func (m *MockBillRepository) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*billing.Bill, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Bill), args.Error(1)
}

func (m *MockBillRepository) FindDueForSweep(ctx context.Context, asOf time.Time) ([]*billing.Bill, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Bill), args.Error(1)
}

func (m *MockBillRepository) Save(ctx context.Context, bill *billing.Bill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockBillRepository) SaveWithLock(ctx context.Context, bill *billing.Bill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockBillRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBillRepository) Count(ctx context.Context, filter billing.BillFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBillRepository) SumDueByPatient(ctx context.Context, patientID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, patientID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockPatientRepository is a mock implementation of patient.PatientRepository
type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) FindByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*patient.Patient), args.Error(1)
}

func (m *MockPatientRepository) FindAll(ctx context.Context, filter shared.Filter) (*shared.Paginated[*patient.Patient], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*patient.Patient]), args.Error(1)
}

func (m *MockPatientRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPatientRepository) Save(ctx context.Context, p *patient.Patient) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher that
// records every published event
type MockEventPublisher struct {
	mock.Mock
	Published []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	m.Published = append(m.Published, events...)
	return args.Error(0)
}

// EventTypes returns the recorded event type names in publish order
func (m *MockEventPublisher) EventTypes() []string {
	types := make([]string, len(m.Published))
	for i, e := range m.Published {
		types[i] = e.EventType()
	}
	return types
}

// MockBalanceCache is a mock implementation of cache.BalanceCache
type MockBalanceCache struct {
	mock.Mock
}

func (m *MockBalanceCache) GetTotalDue(ctx context.Context, patientID uuid.UUID) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, patientID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockBalanceCache) SetTotalDue(ctx context.Context, patientID uuid.UUID, total decimal.Decimal) error {
	args := m.Called(ctx, patientID, total)
	return args.Error(0)
}

func (m *MockBalanceCache) Invalidate(ctx context.Context, patientID uuid.UUID) error {
	args := m.Called(ctx, patientID)
	return args.Error(0)
}

func (m *MockBalanceCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

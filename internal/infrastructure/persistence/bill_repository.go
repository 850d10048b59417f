package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBillRepository implements billing.BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// FindByID finds a bill by its ID
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var model models.BillModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds bills matching the filter with pagination
func (r *GormBillRepository) FindAll(ctx context.Context, filter billing.BillFilter) (*shared.Paginated[*billing.Bill], error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.BillModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	orderBy := "created_at"
	if filter.OrderBy != "" {
		orderBy = filter.OrderBy
	}
	orderDir := "DESC"
	if filter.OrderDir != "" {
		orderDir = filter.OrderDir
	}
	if err := validateBillSort(orderBy, orderDir); err != nil {
		return nil, err
	}

	var billModels []models.BillModel
	if err := query.
		Order(orderBy + " " + orderDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&billModels).Error; err != nil {
		return nil, err
	}

	bills := make([]*billing.Bill, len(billModels))
	for i := range billModels {
		bills[i] = billModels[i].ToDomain()
	}
	paginated := shared.NewPaginated(bills, total, page, pageSize)
	return &paginated, nil
}

// FindByPatient finds all bills for a patient
func (r *GormBillRepository) FindByPatient(ctx context.Context, patientID uuid.UUID) ([]*billing.Bill, error) {
	return r.findAll(ctx, r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("bill_date DESC, created_at DESC"))
}

// FindByStatus finds all bills with the given status
func (r *GormBillRepository) FindByStatus(ctx context.Context, status billing.BillStatus) ([]*billing.Bill, error) {
	return r.findAll(ctx, r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("due_date ASC"))
}

// FindByAppointment finds all bills for an appointment
func (r *GormBillRepository) FindByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*billing.Bill, error) {
	return r.findAll(ctx, r.db.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC"))
}

// FindDueForSweep finds bills the overdue sweep should flag: bills with an
// outstanding balance whose due date lies strictly before the given calendar
// day. Bills already OVERDUE, PAID or CANCELLED are not candidates, which
// keeps repeated sweeps idempotent.
func (r *GormBillRepository) FindDueForSweep(ctx context.Context, asOf time.Time) ([]*billing.Bill, error) {
	return r.findAll(ctx, r.db.WithContext(ctx).
		Where("due_date < ? AND due_amount > 0 AND status IN ?", billing.DateOf(asOf),
			[]billing.BillStatus{billing.BillStatusPending, billing.BillStatusPartiallyPaid}).
		Order("due_date ASC"))
}

// Save creates or updates a bill
func (r *GormBillRepository) Save(ctx context.Context, bill *billing.Bill) error {
	model := models.BillModelFromDomain(bill)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves a bill with optimistic locking on its version.
// Columns are written via an explicit map: a struct update would skip
// zero-valued fields, so a patch that clears the appointment or blanks the
// notes would never reach the row.
func (r *GormBillRepository) SaveWithLock(ctx context.Context, bill *billing.Bill) error {
	model := models.BillModelFromDomain(bill)
	result := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Where("id = ? AND version = ?", bill.ID, bill.Version-1).
		Updates(map[string]interface{}{
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
			"appointment_id":         model.AppointmentID,
			"paid_amount":            model.PaidAmount,
			"due_amount":             model.DueAmount,
			"status":                 model.Status,
			"due_date":               model.DueDate,
			"paid_date":              model.PaidDate,
			"payment_method":         model.PaymentMethod,
			"payment_records":        model.PaymentRecords,
			"itemized_charges":       model.ItemizedCharges,
			"notes":                  model.Notes,
			"insurance_claim_number": model.InsuranceClaimNumber,
			"insurance_coverage":     model.InsuranceCoverage,
			"cancelled_at":           model.CancelledAt,
			"cancel_reason":          model.CancelReason,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete removes a bill permanently
func (r *GormBillRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.BillModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts bills matching the filter
func (r *GormBillRepository) Count(ctx context.Context, filter billing.BillFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.BillModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumDueByPatient sums the outstanding amount across a patient's bills,
// cancelled bills excluded
func (r *GormBillRepository) SumDueByPatient(ctx context.Context, patientID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.BillModel{}).
		Select("COALESCE(SUM(due_amount), 0) AS total").
		Where("patient_id = ? AND status <> ?", patientID, billing.BillStatusCancelled).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *GormBillRepository) findAll(ctx context.Context, query *gorm.DB) ([]*billing.Bill, error) {
	var billModels []models.BillModel
	if err := query.Find(&billModels).Error; err != nil {
		return nil, err
	}
	bills := make([]*billing.Bill, len(billModels))
	for i := range billModels {
		bills[i] = billModels[i].ToDomain()
	}
	return bills, nil
}

func (r *GormBillRepository) applyFilter(query *gorm.DB, filter billing.BillFilter) *gorm.DB {
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.AppointmentID != nil {
		query = query.Where("appointment_id = ?", *filter.AppointmentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BillDateFrom != nil {
		query = query.Where("bill_date >= ?", billing.DateOf(*filter.BillDateFrom))
	}
	if filter.BillDateTo != nil {
		query = query.Where("bill_date <= ?", billing.DateOf(*filter.BillDateTo))
	}
	if filter.DueDateFrom != nil {
		query = query.Where("due_date >= ?", billing.DateOf(*filter.DueDateFrom))
	}
	if filter.DueDateTo != nil {
		query = query.Where("due_date <= ?", billing.DateOf(*filter.DueDateTo))
	}
	if filter.MinDueAmount != nil {
		query = query.Where("due_amount >= ?", *filter.MinDueAmount)
	}
	if filter.MaxDueAmount != nil {
		query = query.Where("due_amount <= ?", *filter.MaxDueAmount)
	}
	return query
}

// validateBillSort restricts ordering to known columns so user input never
// reaches the ORDER BY clause raw
func validateBillSort(orderBy, orderDir string) error {
	switch orderBy {
	case "created_at", "updated_at", "bill_date", "due_date", "bill_amount", "due_amount", "status":
	default:
		return shared.NewDomainError("VALIDATION_ERROR", "unsupported sort column: "+orderBy)
	}
	switch orderDir {
	case "ASC", "DESC", "asc", "desc":
	default:
		return shared.NewDomainError("VALIDATION_ERROR", "unsupported sort direction: "+orderDir)
	}
	return nil
}

var _ billing.BillRepository = (*GormBillRepository)(nil)

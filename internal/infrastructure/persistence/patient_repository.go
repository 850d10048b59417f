package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hms/backend/internal/domain/patient"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPatientRepository implements patient.PatientRepository using GORM
type GormPatientRepository struct {
	db *gorm.DB
}

// NewGormPatientRepository creates a new GormPatientRepository
func NewGormPatientRepository(db *gorm.DB) *GormPatientRepository {
	return &GormPatientRepository{db: db}
}

// FindByID finds a patient by ID
func (r *GormPatientRepository) FindByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var model models.PatientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds patients matching the filter with pagination
func (r *GormPatientRepository) FindAll(ctx context.Context, filter shared.Filter) (*shared.Paginated[*patient.Patient], error) {
	query := r.db.WithContext(ctx).Model(&models.PatientModel{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like)
	}

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

	var patientModels []models.PatientModel
	if err := query.
		Order("last_name ASC, first_name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&patientModels).Error; err != nil {
		return nil, err
	}

	patients := make([]*patient.Patient, len(patientModels))
	for i := range patientModels {
		patients[i] = patientModels[i].ToDomain()
	}
	paginated := shared.NewPaginated(patients, total, page, pageSize)
	return &paginated, nil
}

// Exists reports whether a patient with the given ID is registered
func (r *GormPatientRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PatientModel{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a patient
func (r *GormPatientRepository) Save(ctx context.Context, p *patient.Patient) error {
	model := models.PatientModelFromDomain(p)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a patient record
func (r *GormPatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PatientModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ patient.PatientRepository = (*GormPatientRepository)(nil)

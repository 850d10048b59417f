package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	patientapp "github.com/hms/backend/internal/application/patient"
	"github.com/hms/backend/internal/domain/patient"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/interfaces/http/dto"
	"github.com/hms/backend/internal/interfaces/http/middleware"
)

// PatientHandler handles patient registration API endpoints
type PatientHandler struct {
	BaseHandler
	patientService *patientapp.PatientService
}

// NewPatientHandler creates a new PatientHandler
func NewPatientHandler(patientService *patientapp.PatientService) *PatientHandler {
	return &PatientHandler{patientService: patientService}
}

// RegisterRoutes registers patient routes on the given group
func (h *PatientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	patients := rg.Group("/patients")
	{
		patients.POST("", h.Register)
		patients.GET("", h.List)
		patients.GET("/:id", h.GetByID)
	}
}

// RegisterPatientRequest is the payload for registering a patient
// @Description Register patient request
type RegisterPatientRequest struct {
	FirstName   string     `json:"first_name" binding:"required,min=1,max=100"`
	LastName    string     `json:"last_name" binding:"required,min=1,max=100"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      string     `json:"gender,omitempty" binding:"omitempty,oneof=MALE FEMALE OTHER"`
	Phone       string     `json:"phone,omitempty" binding:"omitempty,max=30"`
	Email       string     `json:"email,omitempty" binding:"omitempty,email"`
	Address     string     `json:"address,omitempty" binding:"omitempty,max=500"`
}

// PatientResponse represents a patient in API responses
// @Description Patient response
type PatientResponse struct {
	ID          string     `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	FirstName   string     `json:"first_name" example:"Jane"`
	LastName    string     `json:"last_name" example:"Doe"`
	FullName    string     `json:"full_name" example:"Jane Doe"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      string     `json:"gender,omitempty" example:"FEMALE"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Address     string     `json:"address,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toPatientResponse(p *patient.Patient) PatientResponse {
	return PatientResponse{
		ID:          p.ID.String(),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		FullName:    p.FullName(),
		DateOfBirth: p.DateOfBirth,
		Gender:      string(p.Gender),
		Phone:       p.Phone,
		Email:       p.Email,
		Address:     p.Address,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Register godoc
// @Summary      Register a patient
// @Tags         patients
// @Accept       json
// @Produce      json
// @Param        request body RegisterPatientRequest true "Patient details"
// @Success      201 {object} dto.Response{data=PatientResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /patients [post]
func (h *PatientHandler) Register(c *gin.Context) {
	var req RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	p, err := h.patientService.RegisterPatient(c.Request.Context(), patientapp.RegisterPatientCommand{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Gender:      patient.Gender(req.Gender),
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toPatientResponse(p))
}

// GetByID godoc
// @Summary      Get patient by ID
// @Tags         patients
// @Produce      json
// @Param        id path string true "Patient ID" format(uuid)
// @Success      200 {object} dto.Response{data=PatientResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /patients/{id} [get]
func (h *PatientHandler) GetByID(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	p, err := h.patientService.GetPatient(c.Request.Context(), patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPatientResponse(p))
}

// List godoc
// @Summary      List patients
// @Tags         patients
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        search query string false "Search by name"
// @Success      200 {object} dto.Response{data=[]PatientResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /patients [get]
func (h *PatientHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.patientService.ListPatients(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]PatientResponse, 0, len(page.Items))
	for _, p := range page.Items {
		responses = append(responses, toPatientResponse(p))
	}

	h.SuccessWithMeta(c, responses, page.Total, page.Page, page.PageSize)
}

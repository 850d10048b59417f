package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/hms/backend/internal/application/billing"
	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/interfaces/http/middleware"
)

// BillingHandler handles billing-related API endpoints
type BillingHandler struct {
	BaseHandler
	ledger  *billingapp.LedgerService
	scanner *billingapp.OverdueScanner
	balance *billingapp.BalanceService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(
	ledger *billingapp.LedgerService,
	scanner *billingapp.OverdueScanner,
	balance *billingapp.BalanceService,
) *BillingHandler {
	return &BillingHandler{
		ledger:  ledger,
		scanner: scanner,
		balance: balance,
	}
}

// RegisterRoutes registers billing routes on the given group
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bills := rg.Group("/bills")
	{
		bills.POST("", h.Create)
		bills.GET("", h.List)
		bills.GET("/overdue", h.ListOverdue)
		bills.POST("/update-overdue", h.SweepOverdue)
		bills.GET("/patient/:patient_id", h.ListByPatient)
		bills.GET("/patient/:patient_id/total-due", h.GetTotalDue)
		bills.GET("/status/:status", h.ListByStatus)
		bills.GET("/appointment/:appointment_id", h.ListByAppointment)
		bills.GET("/:id", h.GetByID)
		bills.PUT("/:id", h.Update)
		bills.DELETE("/:id", h.Delete)
		bills.POST("/:id/payment", h.ApplyPayment)
		bills.POST("/:id/cancel", h.Cancel)
	}
}

// ===================== Request/Response DTOs =====================

// CreateBillRequest is the payload for creating a bill
// @Description Create bill request
type CreateBillRequest struct {
	PatientID            string     `json:"patient_id" binding:"required,uuid"`
	AppointmentID        *string    `json:"appointment_id,omitempty" binding:"omitempty,uuid"`
	BillAmount           float64    `json:"bill_amount" binding:"required,gt=0"`
	BillDate             *time.Time `json:"bill_date,omitempty"`
	DueDate              time.Time  `json:"due_date" binding:"required"`
	ItemizedCharges      string     `json:"itemized_charges,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	InsuranceClaimNumber string     `json:"insurance_claim_number,omitempty"`
	InsuranceCoverage    float64    `json:"insurance_coverage,omitempty" binding:"omitempty,gte=0"`
}

// UpdateBillRequest is the payload for updating the non-financial fields of a
// bill. Absent fields are left untouched.
// @Description Update bill request
type UpdateBillRequest struct {
	DueDate              *time.Time `json:"due_date,omitempty"`
	AppointmentID        *string    `json:"appointment_id,omitempty" binding:"omitempty,uuid"`
	ClearAppointment     bool       `json:"clear_appointment,omitempty"`
	ItemizedCharges      *string    `json:"itemized_charges,omitempty"`
	Notes                *string    `json:"notes,omitempty"`
	InsuranceClaimNumber *string    `json:"insurance_claim_number,omitempty"`
	InsuranceCoverage    *float64   `json:"insurance_coverage,omitempty" binding:"omitempty,gte=0"`
}

// ApplyPaymentRequest is the payload for applying a payment to a bill
// @Description Apply payment request
type ApplyPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required,paymentmethod"`
}

// CancelBillRequest is the payload for cancelling a bill
// @Description Cancel bill request
type CancelBillRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// BillListRequest carries the query parameters for listing bills
type BillListRequest struct {
	Page      int     `form:"page" binding:"omitempty,min=1"`
	PageSize  int     `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy   string  `form:"order_by"`
	OrderDir  string  `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	PatientID *string `form:"patient_id" binding:"omitempty,uuid"`
	Status    *string `form:"status" binding:"omitempty,billstatus"`
}

// PaymentRecordResponse represents a payment record in API responses
// @Description Payment record response
type PaymentRecordResponse struct {
	ID        string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Amount    float64   `json:"amount" example:"150.00"`
	Method    string    `json:"method" example:"CASH"`
	AppliedAt time.Time `json:"applied_at"`
}

// BillResponse represents a bill in API responses
// @Description Bill response
type BillResponse struct {
	ID                   string                  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PatientID            string                  `json:"patient_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	AppointmentID        *string                 `json:"appointment_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440002"`
	BillAmount           float64                 `json:"bill_amount" example:"1000.00"`
	PaidAmount           float64                 `json:"paid_amount" example:"400.00"`
	DueAmount            float64                 `json:"due_amount" example:"600.00"`
	Status               string                  `json:"status" example:"PARTIALLY_PAID"`
	BillDate             time.Time               `json:"bill_date"`
	DueDate              time.Time               `json:"due_date"`
	PaidDate             *time.Time              `json:"paid_date,omitempty"`
	PaymentMethod        string                  `json:"payment_method,omitempty" example:"CASH"`
	PaymentRecords       []PaymentRecordResponse `json:"payment_records"`
	ItemizedCharges      string                  `json:"itemized_charges,omitempty"`
	Notes                string                  `json:"notes,omitempty"`
	InsuranceClaimNumber string                  `json:"insurance_claim_number,omitempty"`
	InsuranceCoverage    float64                 `json:"insurance_coverage" example:"0.00"`
	CancelledAt          *time.Time              `json:"cancelled_at,omitempty"`
	CancelReason         string                  `json:"cancel_reason,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
	Version              int                     `json:"version" example:"1"`
}

// TotalDueResponse represents a patient's outstanding balance
// @Description Patient total due response
type TotalDueResponse struct {
	PatientID string  `json:"patient_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	TotalDue  float64 `json:"total_due" example:"600.00"`
}

// SweepResultResponse summarizes an overdue sweep run
// @Description Overdue sweep result
type SweepResultResponse struct {
	Scanned    int       `json:"scanned" example:"12"`
	Flagged    int       `json:"flagged" example:"3"`
	Failed     int       `json:"failed" example:"0"`
	FailedIDs  []string  `json:"failed_ids,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func toBillResponse(b *billing.Bill) BillResponse {
	records := make([]PaymentRecordResponse, 0, len(b.PaymentRecords))
	for _, r := range b.PaymentRecords {
		records = append(records, PaymentRecordResponse{
			ID:        r.ID.String(),
			Amount:    toFloat(r.Amount),
			Method:    string(r.Method),
			AppliedAt: r.AppliedAt,
		})
	}

	resp := BillResponse{
		ID:                   b.ID.String(),
		PatientID:            b.PatientID.String(),
		BillAmount:           toFloat(b.BillAmount),
		PaidAmount:           toFloat(b.PaidAmount),
		DueAmount:            toFloat(b.DueAmount),
		Status:               string(b.Status),
		BillDate:             b.BillDate,
		DueDate:              b.DueDate,
		PaidDate:             b.PaidDate,
		PaymentMethod:        string(b.PaymentMethod),
		PaymentRecords:       records,
		ItemizedCharges:      b.ItemizedCharges,
		Notes:                b.Notes,
		InsuranceClaimNumber: b.InsuranceClaimNumber,
		InsuranceCoverage:    toFloat(b.InsuranceCoverage),
		CancelledAt:          b.CancelledAt,
		CancelReason:         b.CancelReason,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
		Version:              b.Version,
	}
	if b.AppointmentID != nil {
		id := b.AppointmentID.String()
		resp.AppointmentID = &id
	}
	return resp
}

func toBillResponses(bills []*billing.Bill) []BillResponse {
	responses := make([]BillResponse, 0, len(bills))
	for _, b := range bills {
		responses = append(responses, toBillResponse(b))
	}
	return responses
}

// ===================== Endpoints =====================

// Create godoc
// @Summary      Create a bill
// @Description  Create a new bill for a registered patient
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        request body CreateBillRequest true "Bill details"
// @Success      201 {object} dto.Response{data=BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills [post]
func (h *BillingHandler) Create(c *gin.Context) {
	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	cmd := billingapp.CreateBillCommand{
		PatientID:            patientID,
		BillAmount:           toDecimal(req.BillAmount),
		DueDate:              req.DueDate,
		ItemizedCharges:      req.ItemizedCharges,
		Notes:                req.Notes,
		InsuranceClaimNumber: req.InsuranceClaimNumber,
		InsuranceCoverage:    toDecimal(req.InsuranceCoverage),
	}
	if req.BillDate != nil {
		cmd.BillDate = *req.BillDate
	}
	if req.AppointmentID != nil {
		appointmentID, err := uuid.Parse(*req.AppointmentID)
		if err != nil {
			h.BadRequest(c, "Invalid appointment ID format")
			return
		}
		cmd.AppointmentID = &appointmentID
	}

	bill, err := h.ledger.CreateBill(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toBillResponse(bill))
}

// List godoc
// @Summary      List bills
// @Description  List bills with pagination and optional filters
// @Tags         billing
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        patient_id query string false "Filter by patient" format(uuid)
// @Param        status query string false "Filter by status"
// @Success      200 {object} dto.Response{data=[]BillResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills [get]
func (h *BillingHandler) List(c *gin.Context) {
	var req BillListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	filter := billing.BillFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
		},
	}
	if req.PatientID != nil {
		patientID, err := uuid.Parse(*req.PatientID)
		if err != nil {
			h.BadRequest(c, "Invalid patient ID format")
			return
		}
		filter.PatientID = &patientID
	}
	if req.Status != nil {
		status := billing.BillStatus(*req.Status)
		filter.Status = &status
	}

	page, err := h.ledger.ListBills(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toBillResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @Summary      Get bill by ID
// @Tags         billing
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      200 {object} dto.Response{data=BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/{id} [get]
func (h *BillingHandler) GetByID(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	bill, err := h.ledger.GetBill(c.Request.Context(), billID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBillResponse(bill))
}

// ListByPatient godoc
// @Summary      List bills for a patient
// @Tags         billing
// @Produce      json
// @Param        patient_id path string true "Patient ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/patient/{patient_id} [get]
func (h *BillingHandler) ListByPatient(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	bills, err := h.ledger.GetBillsByPatient(c.Request.Context(), patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBillResponses(bills))
}

// ListByStatus godoc
// @Summary      List bills by status
// @Tags         billing
// @Produce      json
// @Param        status path string true "Bill status"
// @Success      200 {object} dto.Response{data=[]BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/status/{status} [get]
func (h *BillingHandler) ListByStatus(c *gin.Context) {
	status := billing.BillStatus(c.Param("status"))

	bills, err := h.ledger.GetBillsByStatus(c.Request.Context(), status)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBillResponses(bills))
}

// ListByAppointment godoc
// @Summary      List bills for an appointment
// @Tags         billing
// @Produce      json
// @Param        appointment_id path string true "Appointment ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/appointment/{appointment_id} [get]
func (h *BillingHandler) ListByAppointment(c *gin.Context) {
	appointmentID, err := uuid.Parse(c.Param("appointment_id"))
	if err != nil {
		h.BadRequest(c, "Invalid appointment ID format")
		return
	}

	bills, err := h.ledger.GetBillsByAppointment(c.Request.Context(), appointmentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBillResponses(bills))
}

// ListOverdue godoc
// @Summary      List overdue bills
// @Tags         billing
// @Produce      json
// @Success      200 {object} dto.Response{data=[]BillResponse}
// @Router       /billing/bills/overdue [get]
func (h *BillingHandler) ListOverdue(c *gin.Context) {
	bills, err := h.ledger.GetOverdueBills(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBillResponses(bills))
}

// Update godoc
// @Summary      Update a bill
// @Description  Update the non-financial fields of a bill. Amounts and status cannot be changed here.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body UpdateBillRequest true "Fields to update"
// @Success      200 {object} dto.Response{data=BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/{id} [put]
func (h *BillingHandler) Update(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	var req UpdateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cmd := billingapp.UpdateBillCommand{
		DueDate:              req.DueDate,
		ClearAppointment:     req.ClearAppointment,
		ItemizedCharges:      req.ItemizedCharges,
		Notes:                req.Notes,
		InsuranceClaimNumber: req.InsuranceClaimNumber,
	}
	if req.AppointmentID != nil {
		appointmentID, err := uuid.Parse(*req.AppointmentID)
		if err != nil {
			h.BadRequest(c, "Invalid appointment ID format")
			return
		}
		cmd.AppointmentID = &appointmentID
	}
	if req.InsuranceCoverage != nil {
		cmd.InsuranceCoverage = toDecimalPtr(*req.InsuranceCoverage)
	}

	bill, err := h.ledger.UpdateBill(c.Request.Context(), billID, cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBillResponse(bill))
}

// ApplyPayment godoc
// @Summary      Apply a payment to a bill
// @Description  Apply a payment against the outstanding balance. Payments exceeding the balance are rejected with the maximum acceptable amount.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body ApplyPaymentRequest true "Payment details"
// @Success      200 {object} dto.Response{data=BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/{id}/payment [post]
func (h *BillingHandler) ApplyPayment(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	var req ApplyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cmd := billingapp.ApplyPaymentCommand{
		Amount: toDecimal(req.Amount),
		Method: billing.PaymentMethod(req.Method),
	}

	bill, err := h.ledger.ApplyPayment(c.Request.Context(), billID, cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBillResponse(bill))
}

// Cancel godoc
// @Summary      Cancel a bill
// @Description  Cancel a bill. Cancellation is terminal and keeps the recorded amounts for audit.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Param        request body CancelBillRequest true "Cancellation reason"
// @Success      200 {object} dto.Response{data=BillResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/{id}/cancel [post]
func (h *BillingHandler) Cancel(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	var req CancelBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	bill, err := h.ledger.CancelBill(c.Request.Context(), billID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBillResponse(bill))
}

// Delete godoc
// @Summary      Delete a bill
// @Tags         billing
// @Produce      json
// @Param        id path string true "Bill ID" format(uuid)
// @Success      204 "No Content"
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/{id} [delete]
func (h *BillingHandler) Delete(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return
	}

	if err := h.ledger.DeleteBill(c.Request.Context(), billID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// GetTotalDue godoc
// @Summary      Get a patient's outstanding balance
// @Description  Sum of due amounts across the patient's non-cancelled bills
// @Tags         billing
// @Produce      json
// @Param        patient_id path string true "Patient ID" format(uuid)
// @Success      200 {object} dto.Response{data=TotalDueResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/patient/{patient_id}/total-due [get]
func (h *BillingHandler) GetTotalDue(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		h.BadRequest(c, "Invalid patient ID format")
		return
	}

	total, err := h.balance.GetTotalDue(c.Request.Context(), patientID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, TotalDueResponse{
		PatientID: patientID.String(),
		TotalDue:  total.InexactFloat64(),
	})
}

// SweepOverdue godoc
// @Summary      Run the overdue sweep
// @Description  Flag bills whose due date has lapsed with an outstanding balance. Sweeps are idempotent.
// @Tags         billing
// @Produce      json
// @Success      200 {object} dto.Response{data=SweepResultResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/bills/update-overdue [post]
func (h *BillingHandler) SweepOverdue(c *gin.Context) {
	result, err := h.scanner.RunSweep(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := SweepResultResponse{
		Scanned:    result.Scanned,
		Flagged:    result.Flagged,
		Failed:     result.Failed,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	for _, id := range result.FailedIDs {
		resp.FailedIDs = append(resp.FailedIDs, id.String())
	}

	h.Success(c, resp)
}

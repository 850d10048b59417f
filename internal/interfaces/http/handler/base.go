package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/domain/shared"
	"github.com/hms/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// overpaymentDetail is the structured payload returned when a payment is
// rejected for exceeding the outstanding balance. MaxAcceptable tells the
// caller the largest payment the bill can still take.
type overpaymentDetail struct {
	BillID        string  `json:"bill_id"`
	Attempted     float64 `json:"attempted"`
	MaxAcceptable float64 `json:"max_acceptable"`
	BillAmount    float64 `json:"bill_amount"`
	PaidAmount    float64 `json:"paid_amount"`
}

// HandleDomainError maps domain errors to HTTP responses
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	requestID := getRequestID(c)

	var overpaymentErr *billing.OverpaymentError
	if errors.As(err, &overpaymentErr) {
		code := dto.NormalizeErrorCode(overpaymentErr.Code())
		resp := dto.NewErrorResponseWithRequestID(code, overpaymentErr.Error(), requestID)
		resp.Data = overpaymentDetail{
			BillID:        overpaymentErr.BillID.String(),
			Attempted:     overpaymentErr.Attempted.InexactFloat64(),
			MaxAcceptable: overpaymentErr.MaxAcceptable.InexactFloat64(),
			BillAmount:    overpaymentErr.BillAmount.InexactFloat64(),
			PaidAmount:    overpaymentErr.PaidAmount.InexactFloat64(),
		}
		c.JSON(dto.GetHTTPStatus(code), resp)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	// Unknown error type - return as internal error
	h.InternalError(c, "An unexpected error occurred")
}

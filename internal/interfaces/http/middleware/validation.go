package middleware

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/hms/backend/internal/domain/billing"
	"github.com/hms/backend/internal/interfaces/http/dto"
)

// RequestIDKey is the context key for request ID
const RequestIDKey = "X-Request-ID"

// SetupValidator configures the validator with custom tags
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})

		_ = v.RegisterValidation("paymentmethod", validatePaymentMethod)
		_ = v.RegisterValidation("billstatus", validateBillStatus)
	}
}

// validatePaymentMethod checks a string field against the supported payment methods
func validatePaymentMethod(fl validator.FieldLevel) bool {
	return billing.PaymentMethod(fl.Field().String()).IsValid()
}

// validateBillStatus checks a string field against the bill status values
func validateBillStatus(fl validator.FieldLevel) bool {
	return billing.BillStatus(fl.Field().String()).IsValid()
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	requestID := getRequestIDFromContext(c)
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// getRequestIDFromContext extracts request ID from gin context
func getRequestIDFromContext(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader(RequestIDKey); id != "" {
		return id
	}
	return ""
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Must be a valid UUID"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "email":
		return "Invalid email format"
	case "paymentmethod":
		return "Unsupported payment method"
	case "billstatus":
		return "Unknown bill status"
	default:
		return "Invalid value"
	}
}

package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// GetHTTPStatus Tests
// ============================================================================

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{"validation maps to 400", ErrCodeValidation, http.StatusBadRequest},
		{"not found maps to 404", ErrCodeNotFound, http.StatusNotFound},
		{"invalid state maps to 422", ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"concurrency conflict maps to 409", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"overpayment maps to 422", ErrCodeOverpayment, http.StatusUnprocessableEntity},
		{"internal maps to 500", ErrCodeInternal, http.StatusInternalServerError},
		{"unknown code defaults to 500", "ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

// ============================================================================
// NormalizeErrorCode Tests
// ============================================================================

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"domain validation code", "VALIDATION_ERROR", ErrCodeValidation},
		{"domain not found code", "NOT_FOUND", ErrCodeNotFound},
		{"domain invalid state code", "INVALID_STATE", ErrCodeInvalidState},
		{"domain overpayment code", "OVERPAYMENT", ErrCodeOverpayment},
		{"domain concurrency code", "CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"already normalized code passes through", ErrCodeNotFound, ErrCodeNotFound},
		{"unknown code passes through", "SOMETHING_CUSTOM", "SOMETHING_CUSTOM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.code))
		})
	}
}

// ============================================================================
// Response Constructor Tests
// ============================================================================

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"key": "value"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 45, 2, 20)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Bill not found", "req-123")

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Bill not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "bill_amount", Message: "Must be greater than 0"},
	}
	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "bill_amount", resp.Error.Details[0].Field)
}

package dto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bookkeeper/backend/internal/domain/numbering"
	"github.com/bookkeeper/backend/internal/domain/settlement"
	"github.com/bookkeeper/backend/internal/domain/shared"
	"github.com/bookkeeper/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", shared.NewValidationError("amount must be positive"), http.StatusBadRequest},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest},
		{"exceeds balance", settlement.ErrExceedsBalance(decimal.NewFromInt(2), decimal.NewFromInt(1), valueobject.NGN), http.StatusUnprocessableEntity},
		{"already paid", settlement.ErrAlreadyFullyPaid(), http.StatusUnprocessableEntity},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity},
		{"not found", settlement.ErrDocumentNotFound(settlement.TypeSale), http.StatusNotFound},
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized},
		{"concurrency conflict", shared.ErrConcurrencyConflict, http.StatusConflict},
		{"storage failure", settlement.ErrStorage(errors.New("connection reset")), http.StatusInternalServerError},
		{"timeout", settlement.ErrTransactionTimeout(context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"number exhausted", shared.NewInfrastructureError(numbering.CodeExhausted, "exhausted", nil), http.StatusInternalServerError},
		{"wrapped domain error", fmt.Errorf("apply: %w", settlement.ErrNothingToRefund()), http.StatusUnprocessableEntity},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.err))
		})
	}
}

func TestStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusForCode(ErrCodeDuplicateRequest))
	assert.Equal(t, http.StatusUnauthorized, StatusForCode(ErrCodeTokenExpired))
	assert.Equal(t, http.StatusRequestEntityTooLarge, StatusForCode(ErrCodeRequestTooLarge))
	assert.Equal(t, http.StatusInternalServerError, StatusForCode("SOMETHING_ELSE"))
}

func TestErrorResponse_JSON(t *testing.T) {
	resp := NewErrorResponse(settlement.CodeExceedsBalance, "too much", "req-1")

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {"code": "EXCEEDS_BALANCE", "message": "too much", "request_id": "req-1"}
	}`, string(raw))
}

func TestValidationErrorResponse_JSON(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-2", []ValidationDetail{
		{Field: "paymentMethod", Message: "This field is required"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "VALIDATION_ERROR",
			"message": "Request validation failed",
			"request_id": "req-2",
			"details": [{"field": "paymentMethod", "message": "This field is required"}]
		}
	}`, string(raw))
}

func TestSuccessResponse_JSON(t *testing.T) {
	raw, err := json.Marshal(NewSuccessResponse(map[string]string{"status": "ok"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": true, "data": {"status": "ok"}}`, string(raw))
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/js-playground/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		errorType string
		message   string
		field     string
	}{
		{"validation", apperror.ValidationFailed("name", "name is required"), http.StatusBadRequest, "validation_error", "name is required", "name"},
		{"not found", apperror.NotFound("snippet", "abc"), http.StatusNotFound, "not_found", "snippet not found with id abc", ""},
		{"forbidden", apperror.Forbidden("nope"), http.StatusForbidden, "forbidden", "nope", ""},
		{"unavailable", apperror.Unavailable("script execution"), http.StatusServiceUnavailable, "unavailable", "script execution is not available", ""},
		{"wrapped", fmt.Errorf("service: %w", apperror.NotFound("user", "u1")), http.StatusNotFound, "not_found", "user not found with id u1", ""},
		{"plain", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error", "An internal error occurred", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, ErrorResponse{Error: tt.errorType, Message: tt.message, Field: tt.field}, resp)
		})
	}
}

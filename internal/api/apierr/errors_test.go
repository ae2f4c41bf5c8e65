package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/callclock/internal/model"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"captions not found", fmt.Errorf("page %q: %w", "x", model.ErrCaptionsNotFound), http.StatusNotFound, CodeCaptionsNotFound},
		{"empty captions", model.ErrEmptyCaptions, http.StatusBadRequest, CodeEmptyCaptions},
		{"view not found", model.ErrViewNotFound, http.StatusNotFound, CodeViewNotFound},
		{"invalid time", model.ErrInvalidFixedTime, http.StatusBadRequest, CodeInvalidTime},
		{"invalid request", NewInvalidRequestError("bad body"), http.StatusBadRequest, CodeInvalidRequest},
		{"unauthorized", NewUnauthorizedError(), http.StatusUnauthorized, CodeUnauthorized},
		{"forbidden", NewForbiddenError("no"), http.StatusForbidden, CodeForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}
}

func TestUnknownErrorsDoNotLeakDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("redis: connection refused"))
	assert.NotContains(t, rr.Body.String(), "redis")
}

func TestInternalErrorQuotesRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, NewInternalError("req-42"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal server error (request req-42)", resp.Error.Message)

	rr = httptest.NewRecorder()
	WriteError(rr, NewInternalError(""))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Error.Message)
}

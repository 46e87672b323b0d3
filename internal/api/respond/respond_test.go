package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isaac-evs/side-b/internal/model"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{model.NewValidationError("date", "is required"), http.StatusBadRequest},
		{model.NewNotFoundError("entry", "e1"), http.StatusNotFound},
		{model.DuplicateEntryError{UserID: "u", Day: time.Now()}, http.StatusConflict},
		{model.PrimaryWriteError{Op: "insert", Err: errors.New("refused")}, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestWriteDomainError_HidesInternalMessages(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteDomainError(rr, model.PrimaryWriteError{Op: "insert", Err: errors.New("dsn=secret")})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")

	rr = httptest.NewRecorder()
	WriteDomainError(rr, model.NewValidationError("mood", "unsupported"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{Error: "Bad Request", Code: 400, Message: "validation failed for mood: unsupported"}, body)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondWithSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithSuccess(c, gin.H{"id": "p1"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]interface{}{"id": "p1"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "conflict",
			err:        apperrors.NewConflict("patient with this email already exists in your list", nil),
			wantStatus: http.StatusConflict,
			wantMsg:    "patient with this email already exists in your list",
		},
		{
			name:       "wrapped validation",
			err:        fmt.Errorf("upsert: %w", apperrors.NewValidation("invalid email address", nil)),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "invalid email address",
		},
		{
			name:       "store error is hidden",
			err:        apperrors.NewStore(errors.New("pq: relation patients does not exist")),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal server error",
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal server error",
		},
		{
			name:       "dispatch",
			err:        apperrors.NewDispatch("failed to send email. please try again later", errors.New("smtp")),
			wantStatus: http.StatusBadGateway,
			wantMsg:    "failed to send email. please try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondWithError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["error"])
			assert.NotContains(t, body, "data")
			assert.True(t, c.IsAborted())
		})
	}
}

package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-api/internal/middleware"
	"github.com/jwalitptl/patient-api/internal/model"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) UpsertPatient(ctx context.Context, doctorID uuid.UUID, email string, patch model.ProfilePatch) (*model.Patient, error) {
	args := m.Called(ctx, doctorID, email, patch)
	if p := args.Get(0); p != nil {
		return p.(*model.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) InvitePatient(ctx context.Context, doctorID uuid.UUID, email string) (*model.Patient, error) {
	args := m.Called(ctx, doctorID, email)
	if p := args.Get(0); p != nil {
		return p.(*model.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockService) ResendInvitation(ctx context.Context, doctorID, patientID uuid.UUID) error {
	return m.Called(ctx, doctorID, patientID).Error(0)
}

func (m *mockService) DeletePatient(ctx context.Context, doctorID, patientID uuid.UUID) error {
	return m.Called(ctx, doctorID, patientID).Error(0)
}

func (m *mockService) ListPatients(ctx context.Context, doctorID uuid.UUID) ([]*model.Patient, error) {
	args := m.Called(ctx, doctorID)
	if p := args.Get(0); p != nil {
		return p.([]*model.Patient), args.Error(1)
	}
	return nil, args.Error(1)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(svc *mockService, doctorID uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Validation(middleware.DefaultValidationConfig()))
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ContextDoctorID, doctorID)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func strPtr(s string) *string { return &s }

func TestUpsertPatient(t *testing.T) {
	doctorID := uuid.New()
	svc := &mockService{}
	patient := &model.Patient{
		ID:              uuid.New(),
		Email:           "jane@x.com",
		Name:            strPtr("Jane"),
		DoctorID:        doctorID,
		InvitationToken: "secret-token",
		CreatedAt:       time.Now(),
	}
	svc.On("UpsertPatient", mock.Anything, doctorID, "Jane@X.com", model.ProfilePatch{Name: strPtr("Jane")}).
		Return(patient, nil)

	w, env := do(t, setup(svc, doctorID), http.MethodPut, "/api/v1/patients", map[string]interface{}{
		"email": "Jane@X.com",
		"name":  "Jane",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, patient.ID.String(), data["id"])
	assert.Equal(t, "pending", data["status"])
	assert.NotContains(t, data, "invitation_token")
	assert.NotContains(t, w.Body.String(), "secret-token")
	svc.AssertExpectations(t)
}

func TestUpsertPatientOmittedFieldsStayNil(t *testing.T) {
	doctorID := uuid.New()
	svc := &mockService{}
	svc.On("UpsertPatient", mock.Anything, doctorID, "a@b.co", model.ProfilePatch{PhoneNumber: strPtr("")}).
		Return(&model.Patient{ID: uuid.New(), Email: "a@b.co"}, nil)

	w, _ := do(t, setup(svc, doctorID), http.MethodPut, "/api/v1/patients", map[string]interface{}{
		"email":        "a@b.co",
		"phone_number": "",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestUpsertPatientBindingErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		wantMsg string
	}{
		{name: "missing email", body: map[string]interface{}{"name": "Jane"}, wantMsg: "email is required"},
		{name: "bad date", body: map[string]interface{}{"email": "a@b.co", "date_of_birth": "01/02/1990"}, wantMsg: "date_of_birth must be a date in YYYY-MM-DD format"},
		{name: "malformed json", body: "not-an-object", wantMsg: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}

			w, env := do(t, setup(svc, uuid.New()), http.MethodPut, "/api/v1/patients", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantMsg, env.Error)
			svc.AssertNotCalled(t, "UpsertPatient", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInvitePatient(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantErr    string
	}{
		{name: "created", wantStatus: http.StatusCreated},
		{
			name:       "conflict",
			err:        apperrors.NewConflict("patient with this email already exists in your list", nil),
			wantStatus: http.StatusConflict,
			wantErr:    "patient with this email already exists in your list",
		},
		{
			name:       "validation",
			err:        apperrors.NewValidation("invalid email address", nil),
			wantStatus: http.StatusBadRequest,
			wantErr:    "invalid email address",
		},
		{
			name:       "store failure is not leaked",
			err:        apperrors.NewStore(errors.New("pq: connection refused")),
			wantStatus: http.StatusInternalServerError,
			wantErr:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			if tt.err != nil {
				svc.On("InvitePatient", mock.Anything, doctorID, "new@x.com").Return(nil, tt.err)
			} else {
				svc.On("InvitePatient", mock.Anything, doctorID, "new@x.com").
					Return(&model.Patient{ID: patientID, Email: "new@x.com", DoctorID: doctorID}, nil)
			}

			w, env := do(t, setup(svc, doctorID), http.MethodPost, "/api/v1/patients/invite", map[string]string{"email": "new@x.com"})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.err == nil, env.Success)
			assert.Equal(t, tt.wantErr, env.Error)
			svc.AssertExpectations(t)
		})
	}
}

func TestListPatients(t *testing.T) {
	doctorID := uuid.New()
	svc := &mockService{}
	svc.On("ListPatients", mock.Anything, doctorID).Return([]*model.Patient{
		{ID: uuid.New(), Email: "b@x.com", InvitationAccepted: true},
		{ID: uuid.New(), Email: "a@x.com"},
	}, nil)

	w, env := do(t, setup(svc, doctorID), http.MethodGet, "/api/v1/patients", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Patients []struct {
			Email  string `json:"email"`
			Status string `json:"status"`
		} `json:"patients"`
		Summary model.PatientSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Patients, 2)
	assert.Equal(t, "b@x.com", list.Patients[0].Email)
	assert.Equal(t, "active", list.Patients[0].Status)
	assert.Equal(t, "pending", list.Patients[1].Status)
	assert.Equal(t, model.PatientSummary{Total: 2, Pending: 1, Active: 1}, list.Summary)
}

func TestListPatientsEmpty(t *testing.T) {
	doctorID := uuid.New()
	svc := &mockService{}
	svc.On("ListPatients", mock.Anything, doctorID).Return([]*model.Patient{}, nil)

	_, env := do(t, setup(svc, doctorID), http.MethodGet, "/api/v1/patients", nil)

	assert.JSONEq(t, `{"patients":[],"summary":{"total":0,"pending":0,"active":0}}`, string(env.Data))
}

func TestResendInvitation(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantErr    string
	}{
		{name: "sent", wantStatus: http.StatusOK},
		{
			name:       "already accepted",
			err:        apperrors.NewAlreadyAccepted("patient has already accepted the invitation"),
			wantStatus: http.StatusConflict,
			wantErr:    "patient has already accepted the invitation",
		},
		{
			name:       "dispatch failure",
			err:        apperrors.NewDispatch("failed to send email. please try again later", errors.New("smtp")),
			wantStatus: http.StatusBadGateway,
			wantErr:    "failed to send email. please try again later",
		},
		{
			name:       "not found",
			err:        apperrors.NewNotFound("patient", nil),
			wantStatus: http.StatusNotFound,
			wantErr:    "patient not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			svc.On("ResendInvitation", mock.Anything, doctorID, patientID).Return(tt.err)

			w, env := do(t, setup(svc, doctorID), http.MethodPost, "/api/v1/patients/"+patientID.String()+"/resend", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.err == nil, env.Success)
			assert.Equal(t, tt.wantErr, env.Error)
		})
	}
}

func TestDeletePatient(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	svc := &mockService{}
	svc.On("DeletePatient", mock.Anything, doctorID, patientID).Return(nil)

	w, env := do(t, setup(svc, doctorID), http.MethodDelete, "/api/v1/patients/"+patientID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	svc.AssertExpectations(t)
}

func TestInvalidPatientID(t *testing.T) {
	svc := &mockService{}

	w, env := do(t, setup(svc, uuid.New()), http.MethodDelete, "/api/v1/patients/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid patient ID", env.Error)
	svc.AssertNotCalled(t, "DeletePatient", mock.Anything, mock.Anything, mock.Anything)
}

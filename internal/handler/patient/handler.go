package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/patient-api/internal/middleware"
	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/service/patient"
	"github.com/jwalitptl/patient-api/pkg/errors"
	"github.com/jwalitptl/patient-api/pkg/httputil"
)

type Handler struct {
	service patient.PatientService
}

func NewHandler(service patient.PatientService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.PUT("", h.UpsertPatient)
		patients.POST("/invite", h.InvitePatient)
		patients.POST("/:id/resend", h.ResendInvitation)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.ListPatients(c.Request.Context(), middleware.DoctorID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, model.NewPatientList(patients))
}

func (h *Handler) UpsertPatient(c *gin.Context) {
	var req model.UpsertPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	p, err := h.service.UpsertPatient(c.Request.Context(), middleware.DoctorID(c), req.Email, req.Patch())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, model.NewPatientView(p))
}

func (h *Handler) InvitePatient(c *gin.Context) {
	var req model.InvitePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	p, err := h.service.InvitePatient(c.Request.Context(), middleware.DoctorID(c), req.Email)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, model.NewPatientView(p))
}

func (h *Handler) ResendInvitation(c *gin.Context) {
	patientID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.ResendInvitation(c.Request.Context(), middleware.DoctorID(c), patientID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	patientID, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePatient(c.Request.Context(), middleware.DoctorID(c), patientID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, nil)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.NewValidation("invalid patient ID", err))
		return uuid.Nil, false
	}
	return id, true
}

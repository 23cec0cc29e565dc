package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
	"github.com/jwalitptl/patient-api/internal/service/doctor"
	"github.com/jwalitptl/patient-api/internal/service/event"
	"github.com/jwalitptl/patient-api/internal/service/invitation"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
	"github.com/jwalitptl/patient-api/pkg/logger"
	"github.com/jwalitptl/patient-api/pkg/metrics"
	"github.com/jwalitptl/patient-api/pkg/security"
)

const (
	msgPatientExists = "patient with this email already exists in your list"
	msgAccepted      = "patient has already accepted the invitation"
	msgResendFailed  = "failed to send email. please try again later"
)

// PatientService is the invitation lifecycle exposed to transports.
type PatientService interface {
	UpsertPatient(ctx context.Context, doctorID uuid.UUID, email string, patch model.ProfilePatch) (*model.Patient, error)
	InvitePatient(ctx context.Context, doctorID uuid.UUID, email string) (*model.Patient, error)
	ResendInvitation(ctx context.Context, doctorID, patientID uuid.UUID) error
	DeletePatient(ctx context.Context, doctorID, patientID uuid.UUID) error
	ListPatients(ctx context.Context, doctorID uuid.UUID) ([]*model.Patient, error)
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo       repository.PatientRepository
	Doctors    doctor.Directory
	Notifier   invitation.Notifier
	Dispatcher invitation.Deliverer
	Events     event.Emitter
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
	// NewToken defaults to security.GenerateToken.
	NewToken func() (string, error)
}

type Service struct {
	repo       repository.PatientRepository
	doctors    doctor.Directory
	notifier   invitation.Notifier
	dispatcher invitation.Deliverer
	events     event.Emitter
	metrics    *metrics.Metrics
	log        *logger.Logger
	newToken   func() (string, error)
}

func NewService(deps Deps) *Service {
	newToken := deps.NewToken
	if newToken == nil {
		newToken = security.GenerateToken
	}
	return &Service{
		repo:       deps.Repo,
		doctors:    deps.Doctors,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		events:     deps.Events,
		metrics:    deps.Metrics,
		log:        deps.Logger,
		newToken:   newToken,
	}
}

// UpsertPatient refreshes the profile of an existing patient or invites a
// new one. Only supplied profile fields are written.
func (s *Service) UpsertPatient(ctx context.Context, doctorID uuid.UUID, email string, patch model.ProfilePatch) (*model.Patient, error) {
	email, existing, err := s.resolve(ctx, doctorID, email)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return s.invite(ctx, doctorID, email, patch)
	}

	updated, err := s.repo.Update(ctx, existing.ID, doctorID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("patient", err)
		}
		return nil, apperrors.NewStore(err)
	}

	s.metrics.PatientsUpdated.Inc()
	s.emit(ctx, model.EventPatientUpdated, updated)
	return updated, nil
}

// InvitePatient only creates first-time relationships.
func (s *Service) InvitePatient(ctx context.Context, doctorID uuid.UUID, email string) (*model.Patient, error) {
	email, existing, err := s.resolve(ctx, doctorID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.PatientConflicts.Inc()
		return nil, apperrors.NewConflict(msgPatientExists, nil)
	}
	return s.invite(ctx, doctorID, email, model.ProfilePatch{})
}

// ResendInvitation re-sends the stored token to a pending patient.
// Delivery failure is returned to the caller.
func (s *Service) ResendInvitation(ctx context.Context, doctorID, patientID uuid.UUID) error {
	if doctorID == uuid.Nil {
		return apperrors.Unauthenticated(nil)
	}

	patient, err := s.repo.Get(ctx, patientID, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("patient", err)
		}
		return apperrors.NewStore(err)
	}
	if patient.InvitationAccepted {
		return apperrors.NewAlreadyAccepted(msgAccepted)
	}

	inv := s.invitationFor(ctx, patient, true)
	if err := s.dispatcher.Dispatch(ctx, inv); err != nil {
		s.metrics.Dispatches.WithLabelValues("reminder", "failed").Inc()
		s.log.Error(err, "failed to resend invitation",
			"patient_id", patient.ID.String(),
			"doctor_id", doctorID.String(),
			"email", logger.MaskEmail(patient.Email),
		)
		return apperrors.NewDispatch(msgResendFailed, err)
	}

	s.metrics.Dispatches.WithLabelValues("reminder", "sent").Inc()
	s.emit(ctx, model.EventInvitationResent, patient)
	return nil
}

func (s *Service) DeletePatient(ctx context.Context, doctorID, patientID uuid.UUID) error {
	if doctorID == uuid.Nil {
		return apperrors.Unauthenticated(nil)
	}

	if err := s.repo.Delete(ctx, patientID, doctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("patient", err)
		}
		return apperrors.NewStore(err)
	}

	s.emit(ctx, model.EventPatientDeleted, &model.Patient{ID: patientID, DoctorID: doctorID})
	return nil
}

// ListPatients returns the doctor's patients, newest first.
func (s *Service) ListPatients(ctx context.Context, doctorID uuid.UUID) ([]*model.Patient, error) {
	if doctorID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}

	patients, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.NewStore(err)
	}
	if patients == nil {
		patients = []*model.Patient{}
	}
	return patients, nil
}

// resolve runs the checks shared by both entry points before any write.
func (s *Service) resolve(ctx context.Context, doctorID uuid.UUID, rawEmail string) (string, *model.Patient, error) {
	if doctorID == uuid.Nil {
		return "", nil, apperrors.Unauthenticated(nil)
	}

	email, err := NormalizeAndValidate(rawEmail)
	if err != nil {
		return "", nil, err
	}

	existing, err := FindExisting(ctx, s.repo, doctorID, email)
	if err != nil {
		return "", nil, err
	}
	return email, existing, nil
}

// invite persists a new patient and hands the email to the notifier.
// The write is authoritative; notifier outcome never changes the result.
func (s *Service) invite(ctx context.Context, doctorID uuid.UUID, email string, patch model.ProfilePatch) (*model.Patient, error) {
	token, err := s.newToken()
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	created, err := s.repo.Create(ctx, &model.NewPatient{
		DoctorID:    doctorID,
		Email:       email,
		Token:       token,
		Name:        nonEmpty(patch.Name),
		PhoneNumber: nonEmpty(patch.PhoneNumber),
		DateOfBirth: nonEmpty(patch.DateOfBirth),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.PatientConflicts.Inc()
			return nil, apperrors.NewConflict(msgPatientExists, err)
		}
		return nil, apperrors.NewStore(err)
	}

	s.metrics.PatientsCreated.Inc()
	s.log.Info("patient invited",
		"patient_id", created.ID.String(),
		"doctor_id", doctorID.String(),
		"email", logger.MaskEmail(email),
	)

	s.notifier.Notify(ctx, s.invitationFor(ctx, created, false))
	s.emit(ctx, model.EventPatientInvited, created)
	return created, nil
}

func (s *Service) invitationFor(ctx context.Context, p *model.Patient, reminder bool) invitation.Invitation {
	return invitation.Invitation{
		PatientID:  p.ID,
		DoctorID:   p.DoctorID,
		Email:      p.Email,
		DoctorName: s.doctors.DisplayName(ctx, p.DoctorID),
		Token:      p.InvitationToken,
		Reminder:   reminder,
	}
}

// emit records a lifecycle event. Failures are logged only.
func (s *Service) emit(ctx context.Context, eventType string, p *model.Patient) {
	payload := model.PatientEvent{
		PatientID: p.ID,
		DoctorID:  p.DoctorID,
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		s.log.Error(err, "failed to record patient event",
			"event_type", eventType,
			"patient_id", p.ID.String(),
		)
	}
}

// nonEmpty stores an explicitly cleared field as NULL on insert.
func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

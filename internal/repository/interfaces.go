package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/patient-api/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the doctor-scoped lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates (doctor_id, email) uniqueness.
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	// PatientRepository is the invitation state store. Every method is
	// scoped by doctor ID.
	PatientRepository interface {
		GetByEmail(ctx context.Context, doctorID uuid.UUID, email string) (*model.Patient, error)
		Get(ctx context.Context, patientID, doctorID uuid.UUID) (*model.Patient, error)
		Create(ctx context.Context, patient *model.NewPatient) (*model.Patient, error)
		Update(ctx context.Context, patientID, doctorID uuid.UUID, patch model.ProfilePatch) (*model.Patient, error)
		Delete(ctx context.Context, patientID, doctorID uuid.UUID) error
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Patient, error)
	}

	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

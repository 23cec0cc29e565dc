package patient

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
	apperrors "github.com/jwalitptl/patient-api/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeAndValidate returns the normalized address or a validation error.
func NormalizeAndValidate(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if email == "" || !emailPattern.MatchString(email) {
		return "", apperrors.NewValidation("invalid email address", nil)
	}
	return email, nil
}

// FindExisting looks a patient up by its identity key. A missing row is
// reported as (nil, nil).
func FindExisting(ctx context.Context, repo repository.PatientRepository, doctorID uuid.UUID, email string) (*model.Patient, error) {
	patient, err := repo.GetByEmail(ctx, doctorID, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStore(err)
	}
	return patient, nil
}

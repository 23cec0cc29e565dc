package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/patient-api/internal/model"
	"github.com/jwalitptl/patient-api/internal/repository"
)

// date_of_birth is a DATE column; it is read back as YYYY-MM-DD text.
const patientColumns = `id, email, name, phone_number, date_of_birth::text AS date_of_birth,
	doctor_id, invitation_token, invitation_accepted, created_at, updated_at`

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) GetByEmail(ctx context.Context, doctorID uuid.UUID, email string) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE doctor_id = $1 AND email = $2`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, doctorID, email); err != nil {
		return nil, translateError(err)
	}
	return &patient, nil
}

func (r *patientRepository) Get(ctx context.Context, patientID, doctorID uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND doctor_id = $2`
	var patient model.Patient
	if err := r.db.GetContext(ctx, &patient, query, patientID, doctorID); err != nil {
		return nil, translateError(err)
	}
	return &patient, nil
}

func (r *patientRepository) Create(ctx context.Context, p *model.NewPatient) (*model.Patient, error) {
	query := `
		INSERT INTO patients (
			id, email, doctor_id, name, phone_number, date_of_birth,
			invitation_token, invitation_accepted, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW(), NOW())
		RETURNING ` + patientColumns

	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query,
		uuid.New(),
		p.Email,
		p.DoctorID,
		p.Name,
		p.PhoneNumber,
		p.DateOfBirth,
		p.Token,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", translateError(err))
	}
	return &patient, nil
}

// Update writes only the supplied profile fields. Identity columns, the
// token and the acceptance flag are not part of the statement.
func (r *patientRepository) Update(ctx context.Context, patientID, doctorID uuid.UUID, patch model.ProfilePatch) (*model.Patient, error) {
	query := `
		UPDATE patients SET
			name = CASE WHEN $1 THEN NULLIF($2::text, '') ELSE name END,
			phone_number = CASE WHEN $3 THEN NULLIF($4::text, '') ELSE phone_number END,
			date_of_birth = CASE WHEN $5 THEN NULLIF($6::text, '')::date ELSE date_of_birth END,
			updated_at = NOW()
		WHERE id = $7 AND doctor_id = $8
		RETURNING ` + patientColumns

	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query,
		patch.Name != nil, patch.Name,
		patch.PhoneNumber != nil, patch.PhoneNumber,
		patch.DateOfBirth != nil, patch.DateOfBirth,
		patientID,
		doctorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", translateError(err))
	}
	return &patient, nil
}

func (r *patientRepository) Delete(ctx context.Context, patientID, doctorID uuid.UUID) error {
	query := `DELETE FROM patients WHERE id = $1 AND doctor_id = $2`
	result, err := r.db.ExecContext(ctx, query, patientID, doctorID)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *patientRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE doctor_id = $1 ORDER BY created_at DESC`
	patients := make([]*model.Patient, 0)
	if err := r.db.SelectContext(ctx, &patients, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

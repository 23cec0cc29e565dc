package model

import (
	"time"

	"github.com/google/uuid"
)

type PatientStatus string

const (
	PatientStatusPending PatientStatus = "pending"
	PatientStatusActive  PatientStatus = "active"
)

// Patient is one patient relationship owned by exactly one doctor.
// ID, DoctorID and Email never change after creation.
type Patient struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	Name               *string   `db:"name" json:"name"`
	PhoneNumber        *string   `db:"phone_number" json:"phone_number"`
	DateOfBirth        *string   `db:"date_of_birth" json:"date_of_birth"`
	DoctorID           uuid.UUID `db:"doctor_id" json:"doctor_id"`
	InvitationToken    string    `db:"invitation_token" json:"-"`
	InvitationAccepted bool      `db:"invitation_accepted" json:"invitation_accepted"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Status derives the dashboard status from the acceptance flag.
func (p *Patient) Status() PatientStatus {
	if p.InvitationAccepted {
		return PatientStatusActive
	}
	return PatientStatusPending
}

// ProfilePatch carries the mutable profile fields of an upsert.
// A nil field keeps the stored value, an empty string clears it.
type ProfilePatch struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
	DateOfBirth *string `json:"date_of_birth"`
}

// IsEmpty reports whether no field was supplied.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.PhoneNumber == nil && p.DateOfBirth == nil
}

// NewPatient is the insert payload for a first-time invitation.
type NewPatient struct {
	DoctorID    uuid.UUID
	Email       string
	Token       string
	Name        *string
	PhoneNumber *string
	DateOfBirth *string
}

// PatientView is the API representation of a patient.
type PatientView struct {
	*Patient
	Status PatientStatus `json:"status"`
}

func NewPatientView(p *Patient) PatientView {
	return PatientView{Patient: p, Status: p.Status()}
}

// PatientSummary backs the dashboard counters.
type PatientSummary struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Active  int `json:"active"`
}

func SummarizePatients(patients []*Patient) PatientSummary {
	summary := PatientSummary{Total: len(patients)}
	for _, p := range patients {
		if p.InvitationAccepted {
			summary.Active++
		} else {
			summary.Pending++
		}
	}
	return summary
}

// PatientList is the response body of the list endpoint.
type PatientList struct {
	Patients []PatientView  `json:"patients"`
	Summary  PatientSummary `json:"summary"`
}

func NewPatientList(patients []*Patient) PatientList {
	views := make([]PatientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, NewPatientView(p))
	}
	return PatientList{Patients: views, Summary: SummarizePatients(patients)}
}

type UpsertPatientRequest struct {
	Email       string  `json:"email" binding:"required"`
	Name        *string `json:"name" binding:"omitempty,max=200"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=50"`
	DateOfBirth *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
}

func (r UpsertPatientRequest) Patch() ProfilePatch {
	return ProfilePatch{
		Name:        r.Name,
		PhoneNumber: r.PhoneNumber,
		DateOfBirth: r.DateOfBirth,
	}
}

type InvitePatientRequest struct {
	Email string `json:"email" binding:"required"`
}

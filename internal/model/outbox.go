package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusRetry     OutboxStatus = "retry"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types recorded in the outbox.
const (
	EventPatientInvited           = "PATIENT_INVITED"
	EventPatientUpdated           = "PATIENT_UPDATED"
	EventPatientDeleted           = "PATIENT_DELETED"
	EventInvitationResent         = "INVITATION_RESENT"
	EventInvitationDispatchFailed = "INVITATION_DISPATCH_FAILED"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}

// PatientEvent is the payload of patient lifecycle events. Contact details
// are not published; consumers resolve the patient by ID.
type PatientEvent struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
}

// DispatchFailedEvent identifies a failed invitation email. The address
// is looked up again by patient ID on retry.
type DispatchFailedEvent struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Reminder  bool      `json:"reminder"`
	Error     string    `json:"error"`
	FailedAt  time.Time `json:"failed_at"`
}

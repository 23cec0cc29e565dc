package invitation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/patient-api/internal/email"
)

const (
	acceptPath    = "/patient/accept-invitation"
	productName   = "Health App"
	reminderLabel = "Reminder: "
)

// Invitation is everything needed to compose one invitation email.
type Invitation struct {
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	Email      string
	DoctorName string
	Token      string
	Reminder   bool
}

// Dispatcher composes invitation emails and hands them to a Sender.
type Dispatcher struct {
	sender email.Sender
	appURL string
}

func NewDispatcher(sender email.Sender, appURL string) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		appURL: strings.TrimRight(appURL, "/"),
	}
}

// AcceptURL returns the link the patient follows to accept the invitation.
func (d *Dispatcher) AcceptURL(token string) string {
	return d.appURL + acceptPath + "?" + url.Values{"token": {token}}.Encode()
}

// Subject returns the email subject for the given doctor.
func Subject(doctorName string, reminder bool) string {
	subject := fmt.Sprintf("You've been invited by %s - %s", doctorName, productName)
	if reminder {
		return reminderLabel + subject
	}
	return subject
}

// Dispatch makes exactly one delivery attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invitation) error {
	if inv.Token == "" {
		return fmt.Errorf("invitation for patient %s has no token", inv.PatientID)
	}

	html, text, err := email.RenderInvitation(email.InvitationData{
		DoctorName: inv.DoctorName,
		AcceptURL:  d.AcceptURL(inv.Token),
	})
	if err != nil {
		return err
	}

	msg := &email.Message{
		To:      inv.Email,
		Subject: Subject(inv.DoctorName, inv.Reminder),
		HTML:    html,
		Text:    text,
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send invitation: %w", err)
	}
	return nil
}

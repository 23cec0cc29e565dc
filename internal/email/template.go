package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <h2>You've been invited to Health App</h2>
  <p>{{.DoctorName}} has invited you to connect on Health App.</p>
  <p>Accept the invitation to share your records and keep in touch with your doctor.</p>
  <p><a href="{{.AcceptURL}}" style="background:#2563eb;color:#fff;padding:10px 16px;border-radius:6px;text-decoration:none;">Accept invitation</a></p>
  <p style="font-size: 12px; color: #6b7280;">If the button does not work, paste this link into your browser:<br>{{.AcceptURL}}</p>
</body>
</html>
`))

// InvitationData is the input of the invitation template.
type InvitationData struct {
	DoctorName string
	AcceptURL  string
}

// RenderInvitation returns the HTML and plain text bodies of an invitation.
func RenderInvitation(data InvitationData) (string, string, error) {
	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to render invitation: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "%s has invited you to connect on Health App.\n\n", data.DoctorName)
	fmt.Fprintf(&text, "Accept the invitation: %s\n", data.AcceptURL)

	return buf.String(), text.String(), nil
}

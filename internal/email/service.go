package email

import (
	"context"
)

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers messages through an external channel.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

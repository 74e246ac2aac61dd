// Package notify delivers operator-facing reports by email. Patient-facing
// messages never go through here; those belong to the reminder pipeline.
package notify

import "context"

// EmailSender defines the interface for sending emails.
// Implementations can be swapped (SES, SMTP) without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage represents an email to be sent.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

package notifications

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status tracks the lifecycle of a notification.
// pending → sent and pending → failed are the only transitions; both are terminal.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Channel specifies how the notification is delivered.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
)

// OffsetLabelConfirmation marks the immediate confirmation message created
// alongside the reminders when an appointment is confirmed.
const OffsetLabelConfirmation = "confirmation"

// Notification represents one scheduled outbound message for an appointment.
// The body is rendered at creation time and frozen; delivery never re-renders.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	OrgID         string     `json:"org_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Channel       Channel    `json:"channel"`
	Recipient     string     `json:"recipient"`
	Body          string     `json:"body"`
	OffsetLabel   string     `json:"offset_label"`
	Status        Status     `json:"status"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsOrphan reports whether the notification has lost its appointment link.
func (n *Notification) IsOrphan() bool {
	return n.AppointmentID == nil
}

// ErrDuplicateSlot is returned when a pending notification already exists for
// the same (appointment, channel, offset) slot.
var ErrDuplicateSlot = errors.New("notifications: duplicate reminder slot")

// ErrAppointmentNotFound is returned when scheduling against a missing appointment.
var ErrAppointmentNotFound = errors.New("notifications: appointment not found")

// ValidationError rejects malformed notifications at the store boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("notifications: invalid %s: %s", e.Field, e.Reason)
}

// OffsetLabel renders a stable human-readable label for an offset in minutes,
// e.g. 60 → "1h-before", 1440 → "1d-before", 90 → "90m-before".
func OffsetLabel(minutes int) string {
	switch {
	case minutes >= 1440 && minutes%1440 == 0:
		return fmt.Sprintf("%dd-before", minutes/1440)
	case minutes >= 60 && minutes%60 == 0:
		return fmt.Sprintf("%dh-before", minutes/60)
	default:
		return fmt.Sprintf("%dm-before", minutes)
	}
}

package notifications

import (
	"fmt"
	"time"

	"github.com/medreserva/reminder-service/internal/appointments"
)

// ReminderMessage renders the reminder body for an appointment. Bodies are
// rendered once, when the notification is created, and frozen.
func ReminderMessage(a *appointments.Appointment, offsetMinutes int) string {
	name := a.PatientName
	if name == "" {
		name = "there"
	}

	when := fmt.Sprintf("%s at %s",
		a.StartsAt.Format("Monday, January 2"),
		a.StartsAt.Format("3:04 PM"),
	)

	lead := humanLead(offsetMinutes)
	specialist := a.SpecialistName
	if a.Specialty != "" {
		specialist = fmt.Sprintf("%s (%s)", specialist, a.Specialty)
	}

	return fmt.Sprintf(
		"Hi %s! Reminder: your appointment with %s is %s, on %s. Reply to this message if you need to reschedule.",
		name, specialist, lead, when,
	)
}

// ConfirmationMessage renders the immediate confirmation sent when an
// appointment is created or confirmed.
func ConfirmationMessage(a *appointments.Appointment) string {
	name := a.PatientName
	if name == "" {
		name = "there"
	}

	specialist := a.SpecialistName
	if a.Specialty != "" {
		specialist = fmt.Sprintf("%s (%s)", specialist, a.Specialty)
	}

	return fmt.Sprintf(
		"Hi %s! Your appointment with %s is confirmed for %s at %s. We'll remind you as the date gets closer.",
		name, specialist,
		a.StartsAt.Format("Monday, January 2"),
		a.StartsAt.Format("3:04 PM"),
	)
}

// humanLead renders an offset as patient-facing lead time.
func humanLead(minutes int) string {
	d := time.Duration(minutes) * time.Minute
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("in %d days", int(d.Hours()/24))
	case d >= 24*time.Hour:
		return "tomorrow"
	case d >= 2*time.Hour:
		return fmt.Sprintf("in %d hours", int(d.Hours()))
	case d >= time.Hour:
		return "in 1 hour"
	default:
		return fmt.Sprintf("in %d minutes", minutes)
	}
}

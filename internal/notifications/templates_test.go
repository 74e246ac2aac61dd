package notifications

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderMessage(t *testing.T) {
	appt := testAppointment(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	msg := ReminderMessage(appt, 1440)
	assert.Contains(t, msg, "Lucia")
	assert.Contains(t, msg, "Dr. Paz")
	assert.Contains(t, msg, "Dermatology")
	assert.Contains(t, msg, "tomorrow")
	assert.Contains(t, msg, "Saturday, June 1")
	assert.Contains(t, msg, "10:00 AM")

	msg = ReminderMessage(appt, 60)
	assert.Contains(t, msg, "in 1 hour")
}

func TestReminderMessageFallbackName(t *testing.T) {
	appt := testAppointment(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	appt.PatientName = ""

	msg := ReminderMessage(appt, 60)
	assert.True(t, strings.HasPrefix(msg, "Hi there!"), msg)
}

func TestConfirmationMessage(t *testing.T) {
	appt := testAppointment(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	msg := ConfirmationMessage(appt)
	assert.Contains(t, msg, "confirmed")
	assert.Contains(t, msg, "Dr. Paz")
	assert.Contains(t, msg, "Saturday, June 1")
}

func TestHumanLead(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{30, "in 30 minutes"},
		{60, "in 1 hour"},
		{120, "in 2 hours"},
		{1440, "tomorrow"},
		{2880, "in 2 days"},
		{4320, "in 3 days"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, humanLead(tt.minutes))
		})
	}
}

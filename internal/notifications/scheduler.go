package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medreserva/reminder-service/internal/appointments"
	"github.com/medreserva/reminder-service/internal/observability/metrics"
	"github.com/medreserva/reminder-service/pkg/logging"
)

// AppointmentSource provides read access to appointments for rendering and
// existence checks. It is never written to.
type AppointmentSource interface {
	GetByID(ctx context.Context, orgID string, id uuid.UUID) (*appointments.Appointment, error)
}

type notificationCreator interface {
	Create(ctx context.Context, n *Notification) error
}

// Scheduler creates notification rows when an appointment is created or
// confirmed: one immediate confirmation plus one reminder per future offset.
type Scheduler struct {
	store   notificationCreator
	appts   AppointmentSource
	offsets []int
	logger  *logging.Logger
	metrics *metrics.ReminderMetrics
	now     func() time.Time
}

// NewScheduler creates a notification scheduler. offsetsMinutes are the
// configured reminder lead times.
func NewScheduler(store notificationCreator, appts AppointmentSource, offsetsMinutes []int, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		store:   store,
		appts:   appts,
		offsets: offsetsMinutes,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics attaches pipeline metrics.
func (s *Scheduler) WithMetrics(m *metrics.ReminderMetrics) *Scheduler {
	s.metrics = m
	return s
}

// WithClock overrides the scheduler's time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	if now != nil {
		s.now = now
	}
	return s
}

// ScheduleForAppointment creates the confirmation and reminder notifications
// for an appointment. Returns the number of rows created. Slots already
// occupied by a pending notification are skipped, making the call safe to
// repeat.
func (s *Scheduler) ScheduleForAppointment(ctx context.Context, orgID string, appointmentID uuid.UUID) (int, error) {
	appt, err := s.appts.GetByID(ctx, orgID, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("notifications: schedule: %w", err)
	}
	if appt == nil {
		return 0, ErrAppointmentNotFound
	}

	now := s.now()
	created := 0

	// Immediate confirmation, sent regardless of how close the appointment is.
	confirmation := &Notification{
		OrgID:         orgID,
		AppointmentID: &appt.ID,
		Channel:       ChannelWhatsApp,
		Recipient:     appt.PatientPhone,
		Body:          ConfirmationMessage(appt),
		OffsetLabel:   OffsetLabelConfirmation,
		ScheduledAt:   now,
	}
	n, err := s.createOne(ctx, confirmation)
	if err != nil {
		return created, err
	}
	created += n

	for _, target := range ComputeReminderTargets(appt.StartsAt, s.offsets, now) {
		reminder := &Notification{
			OrgID:         orgID,
			AppointmentID: &appt.ID,
			Channel:       ChannelWhatsApp,
			Recipient:     appt.PatientPhone,
			Body:          ReminderMessage(appt, target.OffsetMinutes),
			OffsetLabel:   target.OffsetLabel,
			ScheduledAt:   target.FireAt,
		}
		n, err := s.createOne(ctx, reminder)
		if err != nil {
			return created, err
		}
		created += n
	}

	s.logger.Info("notifications scheduled",
		"org_id", orgID,
		"appointment_id", appointmentID,
		"created", created,
	)
	return created, nil
}

// Redispatch creates fresh reminder notifications for an appointment. Failed
// or sent rows are never resurrected; a new row is created for every reminder
// slot still in the future. Slots with a pending notification are skipped.
func (s *Scheduler) Redispatch(ctx context.Context, orgID string, appointmentID uuid.UUID) (int, error) {
	appt, err := s.appts.GetByID(ctx, orgID, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("notifications: redispatch: %w", err)
	}
	if appt == nil {
		return 0, ErrAppointmentNotFound
	}

	now := s.now()
	created := 0
	for _, target := range ComputeReminderTargets(appt.StartsAt, s.offsets, now) {
		reminder := &Notification{
			OrgID:         orgID,
			AppointmentID: &appt.ID,
			Channel:       ChannelWhatsApp,
			Recipient:     appt.PatientPhone,
			Body:          ReminderMessage(appt, target.OffsetMinutes),
			OffsetLabel:   target.OffsetLabel,
			ScheduledAt:   target.FireAt,
		}
		n, err := s.createOne(ctx, reminder)
		if err != nil {
			return created, err
		}
		created += n
	}

	s.logger.Info("notifications redispatched",
		"org_id", orgID,
		"appointment_id", appointmentID,
		"created", created,
	)
	return created, nil
}

// createOne inserts a notification, treating an occupied slot as a skip
// rather than an error.
func (s *Scheduler) createOne(ctx context.Context, n *Notification) (int, error) {
	err := s.store.Create(ctx, n)
	if errors.Is(err, ErrDuplicateSlot) {
		s.logger.Debug("reminder slot already scheduled",
			"appointment_id", n.AppointmentID,
			"offset_label", n.OffsetLabel,
		)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	s.metrics.ObserveScheduled(n.OffsetLabel)
	return 1, nil
}

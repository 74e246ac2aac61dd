package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides CRUD operations for notifications.
type Store struct {
	db DB
}

// NewStore creates a new notification store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const notificationColumns = `id, org_id, appointment_id, channel, recipient, body, offset_label, status, scheduled_at, sent_at, failure_reason, created_at, updated_at`

// Create inserts a new pending notification.
//
// Returns a *ValidationError when required fields are empty, and
// ErrDuplicateSlot when a pending notification already occupies the same
// (appointment, channel, offset) slot.
func (s *Store) Create(ctx context.Context, n *Notification) error {
	if err := validateForCreate(n); err != nil {
		return err
	}

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	n.Status = StatusPending
	if n.Channel == "" {
		n.Channel = ChannelWhatsApp
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, org_id, appointment_id, channel, recipient, body, offset_label, status, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (appointment_id, channel, offset_label)
			WHERE appointment_id IS NOT NULL AND status = 'pending'
			DO NOTHING`,
		n.ID, n.OrgID, n.AppointmentID, string(n.Channel), n.Recipient, n.Body,
		n.OffsetLabel, string(n.Status), n.ScheduledAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("notifications: create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateSlot
	}
	return nil
}

// FindDue returns pending notifications whose scheduled time has elapsed,
// ordered by scheduled time ascending. Orphans are excluded by construction:
// the row must still reference an existing appointment.
func (s *Store) FindDue(ctx context.Context, orgID string, now time.Time, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications n
		WHERE n.org_id = $1
		  AND n.status = 'pending'
		  AND n.scheduled_at <= $2
		  AND n.appointment_id IS NOT NULL
		  AND EXISTS (SELECT 1 FROM appointments a WHERE a.id = n.appointment_id)
		ORDER BY n.scheduled_at ASC
		LIMIT $3`, orgID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("notifications: find due: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// MarkSent transitions a notification pending → sent and stamps sent_at.
// A notification already in a terminal state is left untouched: delivery is
// at-most-once and sent_at is set exactly once.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET status = 'sent', sent_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, now, id)
	if err != nil {
		return fmt.Errorf("notifications: mark sent: %w", err)
	}
	return nil
}

// MarkFailed transitions a notification pending → failed, recording the
// failure reason. No-op on rows already in a terminal state.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	now := time.Now().UTC()
	reason = strings.TrimSpace(reason)
	_, err := s.db.Exec(ctx, `
		UPDATE notifications SET status = 'failed', failure_reason = NULLIF($1, ''), updated_at = $2
		WHERE id = $3 AND status = 'pending'`, reason, now, id)
	if err != nil {
		return fmt.Errorf("notifications: mark failed: %w", err)
	}
	return nil
}

// FindOrphans returns pending notifications whose appointment link is gone.
// When olderThan is non-nil only rows created before it are returned.
func (s *Store) FindOrphans(ctx context.Context, orgID string, olderThan *time.Time) ([]Notification, error) {
	var rows pgx.Rows
	var err error
	if olderThan != nil {
		rows, err = s.db.Query(ctx, `
			SELECT `+notificationColumns+`
			FROM notifications
			WHERE org_id = $1 AND status = 'pending' AND appointment_id IS NULL AND created_at < $2
			ORDER BY created_at ASC`, orgID, *olderThan)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT `+notificationColumns+`
			FROM notifications
			WHERE org_id = $1 AND status = 'pending' AND appointment_id IS NULL
			ORDER BY created_at ASC`, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("notifications: find orphans: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// CountStaleOrphans counts orphaned rows, in any status, created before the
// cutoff. Used for the reconciler's operator report and the purge guard.
func (s *Store) CountStaleOrphans(ctx context.Context, orgID string, olderThan time.Time) (int64, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE org_id = $1 AND appointment_id IS NULL AND created_at < $2`, orgID, olderThan)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("notifications: count stale orphans: %w", err)
	}
	return count, nil
}

// PurgeOrphans deletes failed orphaned rows created before the cutoff.
// This is the explicit operator action; nothing in the pipeline calls it
// automatically.
func (s *Store) PurgeOrphans(ctx context.Context, orgID string, olderThan time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM notifications
		WHERE org_id = $1 AND appointment_id IS NULL AND status = 'failed' AND created_at < $2`,
		orgID, olderThan)
	if err != nil {
		return 0, fmt.Errorf("notifications: purge orphans: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByAppointment returns all notifications for an appointment, newest slot first.
func (s *Store) ListByAppointment(ctx context.Context, orgID string, appointmentID uuid.UUID) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE org_id = $1 AND appointment_id = $2
		ORDER BY scheduled_at ASC`, orgID, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("notifications: list by appointment: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ActiveOrgs returns the org ids that currently have pending notifications.
// The worker uses it to scope dispatch runs; there is never an unscoped scan.
func (s *Store) ActiveOrgs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT org_id FROM notifications WHERE status = 'pending' ORDER BY org_id`)
	if err != nil {
		return nil, fmt.Errorf("notifications: active orgs: %w", err)
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, fmt.Errorf("notifications: scan org: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func validateForCreate(n *Notification) error {
	if strings.TrimSpace(n.OrgID) == "" {
		return &ValidationError{Field: "org_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(n.Recipient) == "" {
		return &ValidationError{Field: "recipient", Reason: "must not be empty"}
	}
	if strings.TrimSpace(n.Body) == "" {
		return &ValidationError{Field: "body", Reason: "must not be empty"}
	}
	if strings.TrimSpace(n.OffsetLabel) == "" {
		return &ValidationError{Field: "offset_label", Reason: "must not be empty"}
	}
	if n.ScheduledAt.IsZero() {
		return &ValidationError{Field: "scheduled_at", Reason: "must be set"}
	}
	return nil
}

func scanNotifications(rows pgx.Rows) ([]Notification, error) {
	var result []Notification
	for rows.Next() {
		var n Notification
		var status, channel string
		var failureReason *string
		err := rows.Scan(
			&n.ID, &n.OrgID, &n.AppointmentID, &channel, &n.Recipient, &n.Body,
			&n.OffsetLabel, &status, &n.ScheduledAt, &n.SentAt, &failureReason,
			&n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("notifications: scan: %w", err)
		}
		n.Status = Status(status)
		n.Channel = Channel(channel)
		if failureReason != nil {
			n.FailureReason = *failureReason
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

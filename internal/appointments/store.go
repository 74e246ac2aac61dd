package appointments

import (
	"context"
	"errors"
	"fmt"

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

// Store provides read access to appointments.
type Store struct {
	db DB
}

// NewStore creates a new appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetByID returns the appointment, or nil when it does not exist in the org.
func (s *Store) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, org_id, patient_name, patient_phone, specialist_name, specialty, starts_at, status, created_at, updated_at
		FROM appointments
		WHERE org_id = $1 AND id = $2`, orgID, id)

	var a Appointment
	err := row.Scan(
		&a.ID, &a.OrgID, &a.PatientName, &a.PatientPhone,
		&a.SpecialistName, &a.Specialty, &a.StartsAt, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get by id: %w", err)
	}
	return &a, nil
}

// Exists reports whether the appointment exists in the org.
func (s *Store) Exists(ctx context.Context, orgID string, id uuid.UUID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT 1 FROM appointments WHERE org_id = $1 AND id = $2`, orgID, id)

	var one int
	err := row.Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("appointments: exists: %w", err)
	}
	return true, nil
}

package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewStore(mock), mock
}

func TestGetByID(t *testing.T) {
	store, mock := newMockStore(t)

	id := uuid.New()
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "org_id", "patient_name", "patient_phone",
		"specialist_name", "specialty", "starts_at", "status",
		"created_at", "updated_at",
	}).AddRow(id, "org-1", "Lucia Fernandez", "+5491155550001",
		"Dr. Paz", "Dermatology", now.Add(24*time.Hour), "confirmed", now, now)

	mock.ExpectQuery("SELECT id, org_id, patient_name").
		WithArgs("org-1", id).
		WillReturnRows(rows)

	appt, err := store.GetByID(context.Background(), "org-1", id)
	require.NoError(t, err)
	require.NotNil(t, appt)
	assert.Equal(t, id, appt.ID)
	assert.Equal(t, "Lucia Fernandez", appt.PatientName)
	assert.Equal(t, "Dermatology", appt.Specialty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT id, org_id, patient_name").
		WithArgs("org-2", id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "org_id", "patient_name", "patient_phone",
			"specialist_name", "specialty", "starts_at", "status",
			"created_at", "updated_at",
		}))

	appt, err := store.GetByID(context.Background(), "org-2", id)
	require.NoError(t, err)
	assert.Nil(t, appt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	store, mock := newMockStore(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs("org-1", id).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	ok, err := store.Exists(context.Background(), "org-1", id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsFalse(t *testing.T) {
	store, mock := newMockStore(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs("org-1", id).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

	ok, err := store.Exists(context.Background(), "org-1", id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs("org-1", id).
		WillReturnError(errors.New("connection refused"))

	_, err := store.Exists(context.Background(), "org-1", id)
	assert.ErrorContains(t, err, "appointments: exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

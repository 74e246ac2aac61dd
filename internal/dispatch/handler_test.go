package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreserva/reminder-service/internal/notifications"
)

type fakeReminderScheduler struct {
	created int
	err     error
}

func (f *fakeReminderScheduler) ScheduleForAppointment(context.Context, string, uuid.UUID) (int, error) {
	return f.created, f.err
}

func (f *fakeReminderScheduler) Redispatch(context.Context, string, uuid.UUID) (int, error) {
	return f.created, f.err
}

type fakePurger struct {
	deleted int64
	cutoff  time.Time
}

func (f *fakePurger) PurgeOrphans(_ context.Context, _ string, olderThan time.Time) (int64, error) {
	f.cutoff = olderThan
	return f.deleted, nil
}

func newTestHandler(store *fakeStore) *Handler {
	d := NewDispatcher(store, &fakeChecker{}, &fakeSender{}, nil).
		WithSleep(countingSleep(new(int)))
	r := NewReconciler(store, 30, nil)
	return NewHandler(d, r, &fakeReminderScheduler{created: 2}, &fakePurger{deleted: 4}, 30, nil)
}

func TestHandlerDispatch(t *testing.T) {
	store := newFakeStore()
	store.due = []notifications.Notification{dueNotification(uuid.New())}
	srv := httptest.NewServer(newTestHandler(store).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orgs/org-1/dispatch", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var summary Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, Summary{Processed: 1, Sent: 1}, summary)
}

func TestHandlerDispatchHeldLeaseConflicts(t *testing.T) {
	_, client := leaseClient(t)
	lease := NewLease(client, time.Minute)

	_, ok, err := lease.Acquire(context.Background(), "org-1")
	require.NoError(t, err)
	require.True(t, ok)

	h := newTestHandler(newFakeStore()).WithLease(lease)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orgs/org-1/dispatch", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandlerReconcile(t *testing.T) {
	store := newFakeStore()
	store.orphans = []notifications.Notification{orphanNotification()}
	srv := httptest.NewServer(newTestHandler(store).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orgs/org-1/reconcile", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result ReconcileResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result.FailedOrphans)
}

func TestHandlerSchedule(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(newFakeStore()).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orgs/org-1/appointments/"+uuid.NewString()+"/schedule", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 2, payload["created"])
}

func TestHandlerScheduleUnknownAppointment(t *testing.T) {
	store := newFakeStore()
	d := NewDispatcher(store, &fakeChecker{}, &fakeSender{}, nil).WithSleep(countingSleep(new(int)))
	h := NewHandler(d, NewReconciler(store, 30, nil),
		&fakeReminderScheduler{err: notifications.ErrAppointmentNotFound}, &fakePurger{}, 30, nil)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orgs/org-1/appointments/"+uuid.NewString()+"/schedule", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerRedispatch(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(newFakeStore()).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orgs/org-1/appointments/"+uuid.NewString()+"/redispatch", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 2, payload["created"])
}

func TestHandlerRedispatchBadAppointmentID(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(newFakeStore()).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orgs/org-1/appointments/not-a-uuid/redispatch", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerPurgeRequiresConfirm(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(newFakeStore()).Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/orgs/org-1/orphans/purge", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/orgs/org-1/orphans/purge?confirm=true", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, int64(4), payload["deleted"])
}

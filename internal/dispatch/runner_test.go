package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreserva/reminder-service/internal/notifications"
)

// runnerStore is a goroutine-safe store fake; the runner drives it from its
// own goroutine while the test polls.
type runnerStore struct {
	mu   sync.Mutex
	due  []notifications.Notification
	sent []uuid.UUID
	orgs []string
}

func (f *runnerStore) FindDue(context.Context, string, time.Time, int) ([]notifications.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	due := f.due
	f.due = nil
	return due, nil
}

func (f *runnerStore) MarkSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id)
	return nil
}

func (f *runnerStore) MarkFailed(context.Context, uuid.UUID, string) error { return nil }

func (f *runnerStore) FindOrphans(context.Context, string, *time.Time) ([]notifications.Notification, error) {
	return nil, nil
}

func (f *runnerStore) CountStaleOrphans(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func (f *runnerStore) ActiveOrgs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgs, nil
}

func (f *runnerStore) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestRunnerDispatchesActiveOrgs(t *testing.T) {
	store := &runnerStore{
		due:  []notifications.Notification{dueNotification(uuid.New())},
		orgs: []string{"org-1"},
	}
	d := NewDispatcher(store, &fakeChecker{}, &fakeSender{}, nil).
		WithSleep(countingSleep(new(int)))
	runner := NewRunner(d, NewReconciler(store, 30, nil), store, nil).
		WithDispatchInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.sentCount() == 1 },
		time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on context cancel")
	}
}

func TestRunnerSkipsOrgWhenLeaseHeld(t *testing.T) {
	_, client := leaseClient(t)
	lease := NewLease(client, time.Minute)

	_, ok, err := lease.Acquire(context.Background(), "org-1")
	require.NoError(t, err)
	require.True(t, ok)

	store := &runnerStore{
		due:  []notifications.Notification{dueNotification(uuid.New())},
		orgs: []string{"org-1"},
	}
	d := NewDispatcher(store, &fakeChecker{}, &fakeSender{}, nil).
		WithSleep(countingSleep(new(int)))
	runner := NewRunner(d, NewReconciler(store, 30, nil), store, nil).
		WithLease(lease)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	runner.Run(ctx)

	assert.Zero(t, store.sentCount())
}

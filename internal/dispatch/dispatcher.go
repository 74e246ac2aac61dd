// Package dispatch harvests due notifications and delivers them through the
// messaging gateway, one at a time, with a mandatory pacing interval between
// consecutive sends. The gateway suspends accounts that exceed its rate
// limit, so the interval is a hard throughput ceiling.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medreserva/reminder-service/internal/gateway"
	"github.com/medreserva/reminder-service/internal/notifications"
	"github.com/medreserva/reminder-service/internal/observability/metrics"
	"github.com/medreserva/reminder-service/pkg/logging"
)

type notificationStore interface {
	FindDue(ctx context.Context, orgID string, now time.Time, limit int) ([]notifications.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type appointmentChecker interface {
	Exists(ctx context.Context, orgID string, id uuid.UUID) (bool, error)
}

type messageSender interface {
	SendMessage(ctx context.Context, req gateway.SendMessageRequest) (*gateway.MessageResponse, error)
}

// Summary reports the outcome of one dispatch run.
type Summary struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Dispatcher delivers due notifications sequentially with paced sends.
type Dispatcher struct {
	store      notificationStore
	appts      appointmentChecker
	sender     messageSender
	logger     *logging.Logger
	metrics    *metrics.ReminderMetrics
	pacing     time.Duration
	batchLimit int
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a dispatcher with default pacing (5s) and batch limit.
func NewDispatcher(store notificationStore, appts appointmentChecker, sender messageSender, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		store:      store,
		appts:      appts,
		sender:     sender,
		logger:     logger,
		pacing:     5 * time.Second,
		batchLimit: 100,
		now:        func() time.Time { return time.Now().UTC() },
		sleep:      sleepContext,
	}
}

// WithPacingInterval sets the mandatory delay between consecutive sends.
func (d *Dispatcher) WithPacingInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.pacing = interval
	}
	return d
}

// WithBatchLimit caps how many due notifications one run processes.
func (d *Dispatcher) WithBatchLimit(n int) *Dispatcher {
	if n > 0 {
		d.batchLimit = n
	}
	return d
}

// WithMetrics attaches pipeline metrics.
func (d *Dispatcher) WithMetrics(m *metrics.ReminderMetrics) *Dispatcher {
	d.metrics = m
	return d
}

// WithClock overrides the time source.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	if now != nil {
		d.now = now
	}
	return d
}

// WithSleep overrides the pacing sleep.
func (d *Dispatcher) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Dispatcher {
	if sleep != nil {
		d.sleep = sleep
	}
	return d
}

// Run fetches the due set for one org and delivers it. Per-notification
// failures never abort the batch; only a failure to fetch the due set (or
// context cancellation) does. Status writes are conditional on the row still
// being pending, which makes a racing second run harmless.
func (d *Dispatcher) Run(ctx context.Context, orgID string) (Summary, error) {
	start := d.now()
	var summary Summary

	due, err := d.store.FindDue(ctx, orgID, start, d.batchLimit)
	if err != nil {
		return summary, fmt.Errorf("dispatch: fetch due set: %w", err)
	}
	if len(due) == 0 {
		return summary, nil
	}

	d.logger.Info("dispatching due notifications", "org_id", orgID, "count", len(due))

	for i := range due {
		if i > 0 {
			if err := d.sleep(ctx, d.pacing); err != nil {
				return summary, fmt.Errorf("dispatch: interrupted: %w", err)
			}
		}
		n := &due[i]

		switch outcome := d.deliverOne(ctx, orgID, n); outcome {
		case outcomeSent:
			summary.Processed++
			summary.Sent++
		case outcomeFailed:
			summary.Processed++
			summary.Failed++
		case outcomeSkipped:
			// Transient error checking the row; left pending for the next run.
		case outcomeAborted:
			return summary, ctx.Err()
		}
	}

	d.metrics.ObserveDispatchRun(time.Since(start).Seconds())
	d.logger.Info("dispatch run complete",
		"org_id", orgID,
		"processed", summary.Processed,
		"sent", summary.Sent,
		"failed", summary.Failed,
	)
	return summary, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeFailed
	outcomeSkipped
	outcomeAborted
)

func (d *Dispatcher) deliverOne(ctx context.Context, orgID string, n *notifications.Notification) outcome {
	// Re-validate before any network call. A row that fails the check is
	// terminally failed, never retried.
	reason, err := d.revalidate(ctx, orgID, n)
	if err != nil {
		// Transient check failure: leave the row pending for the next run.
		d.logger.Error("appointment check failed", "notification_id", n.ID, "error", err)
		return outcomeSkipped
	}
	if reason != "" {
		d.fail(ctx, n, reason)
		return outcomeFailed
	}

	resp, err := d.sender.SendMessage(ctx, gateway.SendMessageRequest{
		To:   n.Recipient,
		Body: n.Body,
	})
	if err != nil {
		if ctx.Err() != nil {
			return outcomeAborted
		}
		var sendErr *gateway.SendError
		reason := "gateway error"
		if errors.As(err, &sendErr) && sendErr.Reason != "" {
			reason = sendErr.Reason
		}
		d.logger.Error("gateway send failed",
			"notification_id", n.ID,
			"org_id", orgID,
			"error", err,
		)
		d.fail(ctx, n, reason)
		return outcomeFailed
	}

	if err := d.store.MarkSent(ctx, n.ID); err != nil {
		d.logger.Error("mark sent failed", "notification_id", n.ID, "error", err)
	}
	d.metrics.ObserveDispatched("sent")
	d.logger.Info("notification sent",
		"notification_id", n.ID,
		"org_id", orgID,
		"offset_label", n.OffsetLabel,
		"gateway_message_id", resp.ID,
	)
	return outcomeSent
}

func (d *Dispatcher) revalidate(ctx context.Context, orgID string, n *notifications.Notification) (string, error) {
	if n.Recipient == "" {
		return "missing recipient", nil
	}
	if n.Body == "" {
		return "missing body", nil
	}
	if n.AppointmentID == nil {
		return "orphaned: no appointment link", nil
	}
	exists, err := d.appts.Exists(ctx, orgID, *n.AppointmentID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "orphaned: appointment no longer exists", nil
	}
	return "", nil
}

func (d *Dispatcher) fail(ctx context.Context, n *notifications.Notification, reason string) {
	if err := d.store.MarkFailed(ctx, n.ID, reason); err != nil {
		d.logger.Error("mark failed errored", "notification_id", n.ID, "error", err)
	}
	d.metrics.ObserveDispatched("failed")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

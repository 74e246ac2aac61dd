package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medreserva/reminder-service/internal/notifications"
	"github.com/medreserva/reminder-service/internal/observability/metrics"
	"github.com/medreserva/reminder-service/pkg/logging"
)

type reconcilerStore interface {
	FindOrphans(ctx context.Context, orgID string, olderThan *time.Time) ([]notifications.Notification, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	CountStaleOrphans(ctx context.Context, orgID string, olderThan time.Time) (int64, error)
}

// StaleReporter notifies an operator about orphans past the retention window.
type StaleReporter interface {
	ReportStaleOrphans(ctx context.Context, orgID string, count int64, retentionDays int) error
}

// ReconcileResult reports the outcome of one reconciler run.
type ReconcileResult struct {
	FailedOrphans int   `json:"failed_orphans"`
	StaleOrphans  int64 `json:"stale_orphans"`
}

// Reconciler sweeps pending orphans into the failed state and reports stale
// ones. It never deletes rows: purging is a separate, operator-gated action.
type Reconciler struct {
	store         reconcilerStore
	reporter      StaleReporter
	logger        *logging.Logger
	metrics       *metrics.ReminderMetrics
	retentionDays int
	now           func() time.Time
}

// NewReconciler creates a reconciler with the given orphan retention window.
func NewReconciler(store reconcilerStore, retentionDays int, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Reconciler{
		store:         store,
		logger:        logger,
		retentionDays: retentionDays,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithReporter attaches an operator reporter for stale orphans.
func (r *Reconciler) WithReporter(reporter StaleReporter) *Reconciler {
	r.reporter = reporter
	return r
}

// WithMetrics attaches pipeline metrics.
func (r *Reconciler) WithMetrics(m *metrics.ReminderMetrics) *Reconciler {
	r.metrics = m
	return r
}

// WithClock overrides the time source.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// Run marks every pending orphan in the org failed, then counts orphans older
// than the retention window and reports them. A pending orphan can never
// reach sent; resolving it here keeps the due-set clean.
func (r *Reconciler) Run(ctx context.Context, orgID string) (ReconcileResult, error) {
	var result ReconcileResult

	orphans, err := r.store.FindOrphans(ctx, orgID, nil)
	if err != nil {
		return result, fmt.Errorf("dispatch: reconcile: %w", err)
	}

	for i := range orphans {
		n := &orphans[i]
		if err := r.store.MarkFailed(ctx, n.ID, "orphaned: appointment removed"); err != nil {
			r.logger.Error("failed to resolve orphan", "notification_id", n.ID, "error", err)
			continue
		}
		r.metrics.ObserveOrphanFailed()
		result.FailedOrphans++
	}

	cutoff := r.now().AddDate(0, 0, -r.retentionDays)
	stale, err := r.store.CountStaleOrphans(ctx, orgID, cutoff)
	if err != nil {
		return result, fmt.Errorf("dispatch: count stale orphans: %w", err)
	}
	result.StaleOrphans = stale

	if stale > 0 && r.reporter != nil {
		if err := r.reporter.ReportStaleOrphans(ctx, orgID, stale, r.retentionDays); err != nil {
			r.logger.Error("stale orphan report failed", "org_id", orgID, "error", err)
		}
	}

	if result.FailedOrphans > 0 || stale > 0 {
		r.logger.Info("reconcile run complete",
			"org_id", orgID,
			"failed_orphans", result.FailedOrphans,
			"stale_orphans", stale,
		)
	}
	return result, nil
}

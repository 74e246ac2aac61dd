package dispatch

import (
	"context"
	"time"

	"github.com/medreserva/reminder-service/pkg/logging"
)

type orgLister interface {
	ActiveOrgs(ctx context.Context) ([]string, error)
}

// Runner is the outside-scheduler layer for deployments without an external
// cron: it periodically invokes the dispatcher and reconciler for every org
// with pending notifications. The pipeline itself holds no timer state.
type Runner struct {
	dispatcher        *Dispatcher
	reconciler        *Reconciler
	orgs              orgLister
	lease             *Lease
	logger            *logging.Logger
	dispatchInterval  time.Duration
	reconcileInterval time.Duration
}

// NewRunner creates a runner driving paced dispatch and low-frequency
// reconciliation.
func NewRunner(dispatcher *Dispatcher, reconciler *Reconciler, orgs orgLister, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		dispatcher:        dispatcher,
		reconciler:        reconciler,
		orgs:              orgs,
		logger:            logger,
		dispatchInterval:  time.Minute,
		reconcileInterval: time.Hour,
	}
}

// WithLease attaches a per-org run lease.
func (r *Runner) WithLease(lease *Lease) *Runner {
	r.lease = lease
	return r
}

// WithDispatchInterval sets how often due notifications are harvested.
func (r *Runner) WithDispatchInterval(d time.Duration) *Runner {
	if d > 0 {
		r.dispatchInterval = d
	}
	return r
}

// WithReconcileInterval sets how often orphans are reconciled.
func (r *Runner) WithReconcileInterval(d time.Duration) *Runner {
	if d > 0 {
		r.reconcileInterval = d
	}
	return r
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	dispatchTicker := time.NewTicker(r.dispatchInterval)
	defer dispatchTicker.Stop()
	reconcileTicker := time.NewTicker(r.reconcileInterval)
	defer reconcileTicker.Stop()

	r.dispatchAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-dispatchTicker.C:
			r.dispatchAll(ctx)
		case <-reconcileTicker.C:
			r.reconcileAll(ctx)
		}
	}
}

func (r *Runner) dispatchAll(ctx context.Context) {
	orgs, err := r.orgs.ActiveOrgs(ctx)
	if err != nil {
		r.logger.Error("list active orgs failed", "error", err)
		return
	}
	for _, orgID := range orgs {
		if ctx.Err() != nil {
			return
		}
		r.dispatchOrg(ctx, orgID)
	}
}

func (r *Runner) dispatchOrg(ctx context.Context, orgID string) {
	if r.lease != nil {
		token, ok, err := r.lease.Acquire(ctx, orgID)
		if err != nil {
			r.logger.Error("lease acquire failed", "org_id", orgID, "error", err)
			return
		}
		if !ok {
			r.logger.Debug("dispatch already running", "org_id", orgID)
			return
		}
		defer func() {
			if err := r.lease.Release(ctx, orgID, token); err != nil {
				r.logger.Error("lease release failed", "org_id", orgID, "error", err)
			}
		}()
	}

	if _, err := r.dispatcher.Run(ctx, orgID); err != nil {
		r.logger.Error("dispatch run failed", "org_id", orgID, "error", err)
	}
}

func (r *Runner) reconcileAll(ctx context.Context) {
	orgs, err := r.orgs.ActiveOrgs(ctx)
	if err != nil {
		r.logger.Error("list active orgs failed", "error", err)
		return
	}
	for _, orgID := range orgs {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.reconciler.Run(ctx, orgID); err != nil {
			r.logger.Error("reconcile run failed", "org_id", orgID, "error", err)
		}
	}
}

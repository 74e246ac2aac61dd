package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/medreserva/reminder-service/internal/notifications"
	"github.com/medreserva/reminder-service/internal/tenancy"
	"github.com/medreserva/reminder-service/pkg/logging"
)

type reminderScheduler interface {
	ScheduleForAppointment(ctx context.Context, orgID string, appointmentID uuid.UUID) (int, error)
	Redispatch(ctx context.Context, orgID string, appointmentID uuid.UUID) (int, error)
}

type purger interface {
	PurgeOrphans(ctx context.Context, orgID string, olderThan time.Time) (int64, error)
}

// Handler exposes the trigger entry points the surrounding scheduler/cron
// layer calls. Every route is scoped to one org; there is no unscoped run.
type Handler struct {
	dispatcher    *Dispatcher
	reconciler    *Reconciler
	scheduler     reminderScheduler
	store         purger
	lease         *Lease
	logger        *logging.Logger
	retentionDays int
}

// NewHandler creates the trigger handler.
func NewHandler(dispatcher *Dispatcher, reconciler *Reconciler, scheduler reminderScheduler, store purger, retentionDays int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Handler{
		dispatcher:    dispatcher,
		reconciler:    reconciler,
		scheduler:     scheduler,
		store:         store,
		logger:        logger,
		retentionDays: retentionDays,
	}
}

// WithLease attaches a per-org run lease to the dispatch trigger.
func (h *Handler) WithLease(lease *Lease) *Handler {
	h.lease = lease
	return h
}

// Routes returns a chi router with the trigger routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/orgs/{orgID}", func(r chi.Router) {
		r.Use(orgContext)
		r.Post("/dispatch", h.Dispatch)
		r.Post("/reconcile", h.Reconcile)
		r.Post("/appointments/{appointmentID}/schedule", h.Schedule)
		r.Post("/appointments/{appointmentID}/redispatch", h.Redispatch)
		r.Post("/orphans/purge", h.PurgeOrphans)
	})
	return r
}

// orgContext lifts the org id from the URL into the tenancy context so
// downstream logging and store calls stay org-scoped.
func orgContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if orgID := orgIDFromRequest(r); orgID != "" {
			r = r.WithContext(tenancy.WithOrgID(r.Context(), orgID))
		}
		next.ServeHTTP(w, r)
	})
}

// orgIDFromRequest resolves the org scope for a trigger request: tenancy
// context, then the route param, then the X-Org-Id header.
func orgIDFromRequest(r *http.Request) string {
	if orgID, ok := tenancy.OrgIDFromContext(r.Context()); ok {
		return orgID
	}
	if orgID := chi.URLParam(r, "orgID"); orgID != "" {
		return orgID
	}
	return r.Header.Get("X-Org-Id")
}

// Dispatch runs one paced delivery batch for the org.
// POST /internal/orgs/{orgID}/dispatch
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDFromRequest(r)
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "org_id required")
		return
	}

	if h.lease != nil {
		token, ok, err := h.lease.Acquire(r.Context(), orgID)
		if err != nil {
			h.logger.Error("lease acquire failed", "org_id", orgID, "error", err)
			writeError(w, http.StatusInternalServerError, "lease unavailable")
			return
		}
		if !ok {
			writeError(w, http.StatusConflict, "dispatch already running for org")
			return
		}
		defer func() {
			if err := h.lease.Release(r.Context(), orgID, token); err != nil {
				h.logger.Error("lease release failed", "org_id", orgID, "error", err)
			}
		}()
	}

	summary, err := h.dispatcher.Run(r.Context(), orgID)
	if err != nil {
		h.logger.Error("dispatch run failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusInternalServerError, "dispatch run failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Reconcile sweeps pending orphans to failed for the org.
// POST /internal/orgs/{orgID}/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDFromRequest(r)
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "org_id required")
		return
	}

	result, err := h.reconciler.Run(r.Context(), orgID)
	if err != nil {
		h.logger.Error("reconcile run failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusInternalServerError, "reconcile run failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Schedule creates the confirmation and future reminder notifications for a
// freshly booked appointment. Safe to retry: duplicate slots are skipped.
// POST /internal/orgs/{orgID}/appointments/{appointmentID}/schedule
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDFromRequest(r)
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "org_id required")
		return
	}
	appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	created, err := h.scheduler.ScheduleForAppointment(r.Context(), orgID, appointmentID)
	if errors.Is(err, notifications.ErrAppointmentNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("schedule failed", "org_id", orgID, "appointment_id", appointmentID, "error", err)
		writeError(w, http.StatusInternalServerError, "schedule failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

// Redispatch creates fresh reminder notifications for an appointment.
// POST /internal/orgs/{orgID}/appointments/{appointmentID}/redispatch
func (h *Handler) Redispatch(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDFromRequest(r)
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "org_id required")
		return
	}
	appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	created, err := h.scheduler.Redispatch(r.Context(), orgID, appointmentID)
	if errors.Is(err, notifications.ErrAppointmentNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("redispatch failed", "org_id", orgID, "appointment_id", appointmentID, "error", err)
		writeError(w, http.StatusInternalServerError, "redispatch failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

// PurgeOrphans deletes failed orphans past the retention window. Requires
// confirm=true: purging destroys audit trail and is never automatic.
// POST /internal/orgs/{orgID}/orphans/purge?confirm=true
func (h *Handler) PurgeOrphans(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDFromRequest(r)
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "org_id required")
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		writeError(w, http.StatusBadRequest, "purge requires confirm=true")
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -h.retentionDays)
	deleted, err := h.store.PurgeOrphans(r.Context(), orgID, cutoff)
	if err != nil {
		h.logger.Error("purge orphans failed", "org_id", orgID, "error", err)
		writeError(w, http.StatusInternalServerError, "purge failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

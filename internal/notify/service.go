package notify

import (
	"context"
	"fmt"

	"github.com/medreserva/reminder-service/pkg/logging"
)

// Service sends operator reports for the reminder pipeline.
type Service struct {
	email         EmailSender
	operatorEmail string
	logger        *logging.Logger
}

// NewService creates an operator notification service. email may be nil, in
// which case reports are logged and dropped.
func NewService(email EmailSender, operatorEmail string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:         email,
		operatorEmail: operatorEmail,
		logger:        logger,
	}
}

// ReportStaleOrphans emails the operator about orphaned notifications older
// than the retention window. Deleting them stays a manual decision; this only
// surfaces the count.
func (s *Service) ReportStaleOrphans(ctx context.Context, orgID string, count int64, retentionDays int) error {
	if s.email == nil || s.operatorEmail == "" {
		s.logger.Debug("operator email not configured, skipping stale orphan report",
			"org_id", orgID, "count", count)
		return nil
	}

	msg := EmailMessage{
		To:      s.operatorEmail,
		Subject: fmt.Sprintf("[reminders] %d stale orphaned notifications for %s", count, orgID),
		Body: fmt.Sprintf(
			"Organization %s has %d orphaned reminder notifications older than %d days.\n\n"+
				"These rows are kept for audit; review them and purge explicitly via\n"+
				"POST /internal/orgs/%s/orphans/purge?confirm=true if no longer needed.\n",
			orgID, count, retentionDays, orgID,
		),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: stale orphan report: %w", err)
	}
	return nil
}

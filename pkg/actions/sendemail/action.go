// Package sendemail provides the send_email action.
package sendemail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/journeyhq/journey/pkg/actions/audit"
	"github.com/journeyhq/journey/pkg/models"
	"github.com/journeyhq/journey/pkg/persistence"
	"github.com/journeyhq/journey/pkg/protocol"
	"github.com/journeyhq/journey/pkg/template"
	"github.com/journeyhq/journey/pkg/transport"
)

// Action renders the configured recipient, subject, and body against the
// target record, delivers through the mailer, and records the send as an
// activity.
type Action struct {
	config *models.SendEmailConfig
	mailer transport.Mailer
	store  persistence.RecordStore
}

func NewAction(config *models.SendEmailConfig, mailer transport.Mailer, store persistence.RecordStore) *Action {
	return &Action{config: config, mailer: mailer, store: store}
}

func (a *Action) Execute(ctx context.Context, executionCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "send_email_action")

	resolve := func(s string) string {
		return template.Resolve(s, executionCtx.TargetType, executionCtx.Target, executionCtx.Context)
	}

	to := splitRecipients(resolve(a.config.To))
	if len(to) == 0 {
		return nil, fmt.Errorf("send_email: recipient %q resolved to nothing", a.config.To)
	}

	msg := transport.Message{
		To:      to,
		Subject: resolve(a.config.Subject),
		HTML:    resolve(a.config.Body),
	}

	if err := a.mailer.Send(ctx, msg); err != nil {
		// The failed attempt still leaves a trail on the target. The send
		// error stays the primary failure even if the trail write fails too.
		if _, auditErr := audit.Record(ctx, a.store, executionCtx, "email_sent", audit.StatusFailed,
			"Failed to send email: "+msg.Subject,
			map[string]any{"recipients": to, "error": err.Error()},
		); auditErr != nil {
			logger.WarnContext(ctx, "Failed to record failed-send activity", "error", auditErr)
		}

		return nil, fmt.Errorf("send_email: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "to", to, "subject", msg.Subject)

	_, err := audit.Record(ctx, a.store, executionCtx, "email_sent", audit.StatusCompleted,
		"Sent email: "+msg.Subject,
		map[string]any{"recipients": to},
	)
	if err != nil {
		return nil, fmt.Errorf("send_email: failed to record activity: %w", err)
	}

	return map[string]any{
		"last_email_to":      strings.Join(to, ","),
		"last_email_sent_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func splitRecipients(resolved string) []string {
	parts := strings.Split(resolved, ",")
	recipients := make([]string, 0, len(parts))

	for _, part := range parts {
		addr := strings.TrimSpace(part)
		if addr == "" || strings.Contains(addr, "{{") {
			continue
		}

		recipients = append(recipients, addr)
	}

	return recipients
}

package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/streamwatch/report-service/internal/config"
	"github.com/streamwatch/report-service/internal/domain"
	"github.com/streamwatch/report-service/internal/events"
	"github.com/streamwatch/report-service/internal/notify"
	"github.com/streamwatch/report-service/internal/repository"
)

// NotificationService consumes transition events and fans them out: one
// public channel update and one direct message per event. Everything here is
// strictly downstream of a committed state change; delivery failures are
// logged and swallowed, never rolled back into report state.
type NotificationService struct {
	dispatcher events.Dispatcher
	messenger  notify.Messenger
	settings   repository.SettingsRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(
	dispatcher events.Dispatcher,
	messenger notify.Messenger,
	settings repository.SettingsRepository,
	logger *zap.Logger,
	cfg config.NotificationConfig,
) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		messenger:  messenger,
		settings:   settings,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReportSubmitted, n.handleReportSubmitted)
	n.dispatcher.Subscribe(events.EventReportTransitioned, n.handleReportTransitioned)
}

func (n *NotificationService) handleReportSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReportSubmittedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for report_submitted", zap.String("event_id", event.ID))
		return nil
	}

	public := fmt.Sprintf("New %s report %s: %s", payload.Kind, payload.ExternalKey, payload.Subject)
	if n.staffPingsEnabled(ctx) && domain.RequiresStaffAttention(domain.ActionSubmit) {
		public = n.withStaffPing(public)
	}
	n.postPublic(ctx, n.cfg.ReportsChannelID, public, event)

	dm := fmt.Sprintf("Your %s report %s has been submitted. Staff will review it shortly.",
		payload.Kind, payload.ExternalKey)
	n.sendDirect(ctx, payload.ReporterRef, dm, event)
	return nil
}

func (n *NotificationService) handleReportTransitioned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReportTransitionedPayload)
	if !ok {
		n.logger.Warn("unexpected payload for report_transitioned", zap.String("event_id", event.ID))
		return nil
	}

	public := fmt.Sprintf("Report %s (%s) is now %s.",
		payload.ExternalKey, payload.Subject, statusLabel(payload.NewStatus))
	if n.staffPingsEnabled(ctx) && domain.RequiresStaffAttention(payload.Action) {
		public = n.withStaffPing(public)
	}
	if n.cfg.PublicUpdates {
		n.postPublic(ctx, n.cfg.ResponsesChannelID, public, event)
	}

	n.sendDirect(ctx, payload.ReporterRef, directMessageFor(payload), event)
	return nil
}

func (n *NotificationService) postPublic(ctx context.Context, channelID, text string, event events.Event) {
	if channelID == "" {
		return
	}
	if err := n.messenger.PostChannel(ctx, channelID, text); err != nil {
		n.logger.Warn("public update delivery failed",
			zap.String("channel_id", channelID),
			zap.String("report_id", event.ReportID),
			zap.Error(err))
	}
}

func (n *NotificationService) sendDirect(ctx context.Context, reporterRef, text string, event events.Event) {
	if err := n.messenger.SendDirect(ctx, reporterRef, text); err != nil {
		// the user may have DMs disabled or be unreachable; never retried
		n.logger.Info("direct message delivery failed",
			zap.String("reporter_ref", reporterRef),
			zap.String("report_id", event.ReportID),
			zap.Error(err))
	}
}

// staffPingsEnabled reads the runtime toggle, falling back to the configured
// default when the settings store is unreachable.
func (n *NotificationService) staffPingsEnabled(ctx context.Context) bool {
	if n.settings == nil {
		return n.cfg.StaffPingDefault
	}
	fallback := "0"
	if n.cfg.StaffPingDefault {
		fallback = "1"
	}
	value, err := n.settings.Get(ctx, repository.SettingReportPingsEnabled, fallback)
	if err != nil {
		n.logger.Warn("failed to read staff ping setting", zap.Error(err))
		return n.cfg.StaffPingDefault
	}
	return value == "1"
}

func (n *NotificationService) withStaffPing(text string) string {
	if n.cfg.StaffRoleMention == "" {
		return text
	}
	return n.cfg.StaffRoleMention + " " + text
}

func directMessageFor(payload events.ReportTransitionedPayload) string {
	switch payload.NewStatus {
	case domain.ReportStatusFixed:
		return fmt.Sprintf("Good news! Your report %s (%s) has been fixed.", payload.ExternalKey, payload.Subject)
	case domain.ReportStatusCantReplicate:
		return fmt.Sprintf("We could not replicate the issue in your report %s (%s). It may already be resolved on our side.", payload.ExternalKey, payload.Subject)
	case domain.ReportStatusMoreInfoRequired:
		return fmt.Sprintf("Staff need more information about your report %s (%s). Please reply with additional details.", payload.ExternalKey, payload.Subject)
	case domain.ReportStatusFollowUpSent:
		return fmt.Sprintf("A follow-up has been sent for your report %s (%s).", payload.ExternalKey, payload.Subject)
	case domain.ReportStatusClosed:
		return fmt.Sprintf("Your report %s (%s) has been closed. Submit a new report if the issue comes back.", payload.ExternalKey, payload.Subject)
	default:
		return fmt.Sprintf("Your report %s (%s) is now %s.", payload.ExternalKey, payload.Subject, statusLabel(payload.NewStatus))
	}
}

func statusLabel(status domain.ReportStatus) string {
	switch status {
	case domain.ReportStatusOpen:
		return "Open"
	case domain.ReportStatusFixed:
		return "Fixed"
	case domain.ReportStatusCantReplicate:
		return "Can't replicate"
	case domain.ReportStatusMoreInfoRequired:
		return "More info required"
	case domain.ReportStatusFollowUpSent:
		return "Follow-up sent"
	case domain.ReportStatusClosed:
		return "Closed"
	}
	return string(status)
}

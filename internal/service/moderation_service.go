package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/streamwatch/report-service/internal/config"
	"github.com/streamwatch/report-service/internal/domain"
	"github.com/streamwatch/report-service/internal/notify"
	"github.com/streamwatch/report-service/internal/repository"
	apperrors "github.com/streamwatch/report-service/pkg/util"
)

// ModerationService manages report-system blocks and the staff ping toggle.
// Block and unblock actions are mirrored to the modlog channel, best effort.
type ModerationService struct {
	blocks    repository.BlockRepository
	settings  repository.SettingsRepository
	messenger notify.Messenger
	logger    *zap.Logger
	cfg       config.NotificationConfig
}

// NewModerationService constructs the service.
func NewModerationService(
	blocks repository.BlockRepository,
	settings repository.SettingsRepository,
	messenger notify.Messenger,
	logger *zap.Logger,
	cfg config.NotificationConfig,
) *ModerationService {
	return &ModerationService{
		blocks:    blocks,
		settings:  settings,
		messenger: messenger,
		logger:    logger,
		cfg:       cfg,
	}
}

// BlockReporter blocks a reporter from submitting, permanently when
// durationMinutes is nil.
func (m *ModerationService) BlockReporter(ctx context.Context, staffID, reporterRef, reason string, durationMinutes *int) (*domain.ReportBlock, error) {
	reporterRef = strings.TrimSpace(reporterRef)
	if reporterRef == "" {
		return nil, apperrors.NewValidationError("reporter_ref required", nil)
	}

	block := &domain.ReportBlock{
		ReporterRef: reporterRef,
		CreatedBy:   staffID,
		Reason:      strings.TrimSpace(reason),
	}
	if durationMinutes != nil {
		if *durationMinutes <= 0 {
			return nil, apperrors.NewValidationError("duration_minutes must be positive", nil)
		}
		expires := time.Now().Add(time.Duration(*durationMinutes) * time.Minute)
		block.ExpiresAt = &expires
	}

	if err := m.blocks.Upsert(ctx, block); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	m.postModlog(ctx, blockSummary(block))
	return block, nil
}

// UnblockReporter removes a block. Returns false when none existed.
func (m *ModerationService) UnblockReporter(ctx context.Context, staffID, reporterRef string) (bool, error) {
	removed, err := m.blocks.Remove(ctx, strings.TrimSpace(reporterRef))
	if err != nil {
		return false, apperrors.NewStoreUnavailable(err)
	}
	if removed {
		m.postModlog(ctx, fmt.Sprintf("Report system unblock: %s (by %s)", reporterRef, staffID))
	}
	return removed, nil
}

// ListBlocks returns currently active blocks.
func (m *ModerationService) ListBlocks(ctx context.Context) ([]domain.ReportBlock, error) {
	blocks, err := m.blocks.List(ctx, time.Now())
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return blocks, nil
}

// ToggleReportPings flips the staff ping setting and returns the new state.
func (m *ModerationService) ToggleReportPings(ctx context.Context) (bool, error) {
	fallback := "0"
	if m.cfg.StaffPingDefault {
		fallback = "1"
	}
	current, err := m.settings.Get(ctx, repository.SettingReportPingsEnabled, fallback)
	if err != nil {
		return false, apperrors.NewStoreUnavailable(err)
	}

	next := "1"
	if current == "1" {
		next = "0"
	}
	if err := m.settings.Set(ctx, repository.SettingReportPingsEnabled, next); err != nil {
		return false, apperrors.NewStoreUnavailable(err)
	}
	return next == "1", nil
}

func (m *ModerationService) postModlog(ctx context.Context, text string) {
	if m.cfg.ModlogChannelID == "" || m.messenger == nil {
		return
	}
	if err := m.messenger.PostChannel(ctx, m.cfg.ModlogChannelID, text); err != nil {
		m.logger.Warn("modlog delivery failed", zap.Error(err))
	}
}

func blockSummary(block *domain.ReportBlock) string {
	duration := "permanent"
	if block.ExpiresAt != nil {
		duration = "until " + block.ExpiresAt.UTC().Format(time.RFC3339)
	}
	text := fmt.Sprintf("Report system block: %s (%s, by %s)", block.ReporterRef, duration, block.CreatedBy)
	if block.Reason != "" {
		text += " - " + block.Reason
	}
	return text
}

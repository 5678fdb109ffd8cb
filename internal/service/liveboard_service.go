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
)

// LiveboardService renders the active-reports board and, when enabled,
// republishes it to a channel on a fixed interval. Closed reports drop off
// the board automatically.
type LiveboardService struct {
	reports   *ReportService
	messenger notify.Messenger
	logger    *zap.Logger
	cfg       config.LiveboardConfig
	stopCh    chan struct{}
}

// Liveboard is the rendered board.
type Liveboard struct {
	UpdatedAt time.Time      `json:"updated_at"`
	TV        []LiveboardRow `json:"tv"`
	VOD       []LiveboardRow `json:"vod"`
}

// LiveboardRow is one active report on the board.
type LiveboardRow struct {
	ExternalKey string              `json:"external_key"`
	Status      domain.ReportStatus `json:"status"`
	Subject     string              `json:"subject"`
	CreatedAt   time.Time           `json:"created_at"`
}

// NewLiveboardService constructs the service.
func NewLiveboardService(reports *ReportService, messenger notify.Messenger, logger *zap.Logger, cfg config.LiveboardConfig) *LiveboardService {
	return &LiveboardService{
		reports:   reports,
		messenger: messenger,
		logger:    logger,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
	}
}

// Build assembles the current board from active reports.
func (l *LiveboardService) Build(ctx context.Context) (*Liveboard, error) {
	maxRows := l.cfg.MaxRowsPerSection
	if maxRows <= 0 {
		maxRows = 20
	}
	active, err := l.reports.ListActive(ctx, 2*maxRows)
	if err != nil {
		return nil, err
	}

	board := &Liveboard{
		UpdatedAt: time.Now(),
		TV:        []LiveboardRow{},
		VOD:       []LiveboardRow{},
	}
	for _, report := range active {
		row := LiveboardRow{
			ExternalKey: report.ExternalKey,
			Status:      report.Status,
			Subject:     report.Fields.Subject(report.Kind),
			CreatedAt:   report.CreatedAt,
		}
		switch report.Kind {
		case domain.ReportKindTV:
			if len(board.TV) < maxRows {
				board.TV = append(board.TV, row)
			}
		case domain.ReportKindVOD:
			if len(board.VOD) < maxRows {
				board.VOD = append(board.VOD, row)
			}
		}
	}
	return board, nil
}

// Start launches the periodic channel update loop when the board is enabled.
func (l *LiveboardService) Start(ctx context.Context) {
	if !l.cfg.Enabled || l.cfg.ChannelID == "" {
		return
	}

	go func() {
		ticker := time.NewTicker(l.cfg.UpdateInterval())
		defer ticker.Stop()

		l.publish(ctx)
		for {
			select {
			case <-ticker.C:
				l.publish(ctx)
			case <-l.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the update loop.
func (l *LiveboardService) Stop() {
	close(l.stopCh)
}

func (l *LiveboardService) publish(ctx context.Context) {
	board, err := l.Build(ctx)
	if err != nil {
		l.logger.Warn("liveboard build failed", zap.Error(err))
		return
	}
	if err := l.messenger.PostChannel(ctx, l.cfg.ChannelID, renderLiveboard(board)); err != nil {
		l.logger.Warn("liveboard delivery failed", zap.Error(err))
	}
}

func renderLiveboard(board *Liveboard) string {
	var b strings.Builder
	b.WriteString("Liveboard: Active Reports\n")
	b.WriteString("Reports marked Closed are removed automatically.\n\n")

	writeSection(&b, "Live TV", board.TV)
	writeSection(&b, "Movies / TV Shows", board.VOD)
	return b.String()
}

func writeSection(b *strings.Builder, title string, rows []LiveboardRow) {
	b.WriteString(title + ":\n")
	if len(rows) == 0 {
		b.WriteString("  no active reports\n")
		return
	}
	for _, row := range rows {
		fmt.Fprintf(b, "  %s [%s] %s\n", row.ExternalKey, statusLabel(row.Status), row.Subject)
	}
}

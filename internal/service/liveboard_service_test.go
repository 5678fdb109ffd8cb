package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/streamwatch/report-service/internal/config"
	"github.com/streamwatch/report-service/internal/domain"
)

func TestLiveboardBuild(t *testing.T) {
	fx := newReportFixture()
	ctx := context.Background()

	tv := submitTV(t, fx, "user#1")
	if _, err := fx.service.Submit(ctx, SubmitInput{
		Kind:        domain.ReportKindVOD,
		ReporterRef: "user#2",
		Fields:      domain.ReportFields{Title: "Dune", Issue: "no subtitles"},
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	board, err := NewLiveboardService(fx.service, &fakeMessenger{}, zap.NewNop(), config.LiveboardConfig{MaxRowsPerSection: 10}).Build(ctx)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(board.TV) != 1 || len(board.VOD) != 1 {
		t.Fatalf("board sections tv=%d vod=%d, want 1 and 1", len(board.TV), len(board.VOD))
	}
	if board.TV[0].ExternalKey != tv.ExternalKey {
		t.Errorf("tv row key = %s, want %s", board.TV[0].ExternalKey, tv.ExternalKey)
	}
}

func TestLiveboardExcludesClosed(t *testing.T) {
	fx := newReportFixture()
	ctx := context.Background()
	report := submitTV(t, fx, "user#1")

	for _, action := range []domain.ReportAction{domain.ActionMarkFixed, domain.ActionClose} {
		if _, err := fx.service.ApplyAction(ctx, ActionInput{
			ReportID: report.ID,
			Action:   action,
			ActorRef: "staff-1",
			Subject:  domain.SubjectTypeStaff,
		}); err != nil {
			t.Fatalf("ApplyAction(%s) error = %v", action, err)
		}
	}

	board, err := NewLiveboardService(fx.service, &fakeMessenger{}, zap.NewNop(), config.LiveboardConfig{}).Build(ctx)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(board.TV) != 0 || len(board.VOD) != 0 {
		t.Errorf("closed report still on the board: tv=%d vod=%d", len(board.TV), len(board.VOD))
	}
}

func TestRenderLiveboard(t *testing.T) {
	board := &Liveboard{
		TV: []LiveboardRow{{ExternalKey: "RPT-AAAA1111", Status: domain.ReportStatusOpen, Subject: "CNN"}},
	}
	text := renderLiveboard(board)
	if !strings.Contains(text, "RPT-AAAA1111") {
		t.Errorf("rendered board missing report key:\n%s", text)
	}
	if !strings.Contains(text, "no active reports") {
		t.Errorf("empty section not rendered:\n%s", text)
	}
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/streamwatch/report-service/internal/api/dto"
	"github.com/streamwatch/report-service/internal/domain"
	"github.com/streamwatch/report-service/internal/service"
	apperrors "github.com/streamwatch/report-service/pkg/util"
)

// ReportsHandler manages submission and reporter-facing report endpoints.
// These routes are called by the messaging gateway on behalf of reporters,
// which is why the reporter reference travels in the payload.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// SubmitTV POST /reports/tv.
func (h *ReportsHandler) SubmitTV(c *fiber.Ctx) error {
	var req dto.SubmitTVReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ReporterRef) == "" {
		return apperrors.NewValidationError("reporter_ref required", nil)
	}

	report, err := h.service.Submit(c.Context(), service.SubmitInput{
		Kind:        domain.ReportKindTV,
		ReporterRef: strings.TrimSpace(req.ReporterRef),
		Fields: domain.ReportFields{
			ChannelName:     req.ChannelName,
			ChannelCategory: req.ChannelCategory,
			Issue:           req.Issue,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": reportDetail(report)})
}

// SubmitVOD POST /reports/vod.
func (h *ReportsHandler) SubmitVOD(c *fiber.Ctx) error {
	var req dto.SubmitVODReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ReporterRef) == "" {
		return apperrors.NewValidationError("reporter_ref required", nil)
	}

	report, err := h.service.Submit(c.Context(), service.SubmitInput{
		Kind:        domain.ReportKindVOD,
		ReporterRef: strings.TrimSpace(req.ReporterRef),
		Fields: domain.ReportFields{
			Title:         req.Title,
			ReferenceLink: req.ReferenceLink,
			Quality:       req.Quality,
			Issue:         req.Issue,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": reportDetail(report)})
}

// GetReport GET /reports/:id. Accepts either the internal id or the
// external key (RPT-XXXXXXXX).
func (h *ReportsHandler) GetReport(c *fiber.Ctx) error {
	id := c.Params("id")
	var (
		report *domain.Report
		err    error
	)
	if strings.HasPrefix(id, "RPT-") {
		report, err = h.service.GetReportByKey(c.Context(), id)
	} else {
		report, err = h.service.GetReport(c.Context(), id)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportDetail(report)})
}

// ReporterReply POST /reports/:id/reply. Only valid while the report awaits
// more information, and only for the original reporter.
func (h *ReportsHandler) ReporterReply(c *fiber.Ctx) error {
	var req dto.ReporterReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ReporterRef) == "" {
		return apperrors.NewValidationError("reporter_ref required", nil)
	}

	report, err := h.service.ApplyAction(c.Context(), service.ActionInput{
		ReportID: c.Params("id"),
		Action:   domain.ActionReporterReplies,
		ActorRef: strings.TrimSpace(req.ReporterRef),
		Subject:  domain.SubjectTypeReporter,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportDetail(report)})
}

func reportSummary(report *domain.Report) dto.ReportSummary {
	return dto.ReportSummary{
		ID:          report.ID,
		ExternalKey: report.ExternalKey,
		Kind:        report.Kind,
		ReporterRef: report.ReporterRef,
		Subject:     report.Fields.Subject(report.Kind),
		Status:      report.Status,
		CreatedAt:   report.CreatedAt,
		UpdatedAt:   report.UpdatedAt,
	}
}

func reportDetail(report *domain.Report) dto.ReportDetailResponse {
	history := make([]dto.HistoryResponse, 0, len(report.History))
	for _, entry := range report.History {
		history = append(history, dto.HistoryResponse{
			ID:        entry.ID,
			Status:    entry.Status,
			ActorRef:  entry.ActorRef,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto.ReportDetailResponse{
		ID:          report.ID,
		ExternalKey: report.ExternalKey,
		Kind:        report.Kind,
		ReporterRef: report.ReporterRef,
		Fields: dto.ReportFieldsResponse{
			ChannelName:     report.Fields.ChannelName,
			ChannelCategory: report.Fields.ChannelCategory,
			Title:           report.Fields.Title,
			ReferenceLink:   report.Fields.ReferenceLink,
			Quality:         report.Fields.Quality,
			Issue:           report.Fields.Issue,
		},
		Status:      report.Status,
		NextActions: domain.NextActions(report.Status),
		History:     history,
		CreatedAt:   report.CreatedAt,
		UpdatedAt:   report.UpdatedAt,
		ClosedAt:    report.ClosedAt,
	}
}

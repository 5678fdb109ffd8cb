package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/streamwatch/report-service/internal/api/dto"
	"github.com/streamwatch/report-service/internal/auth"
	"github.com/streamwatch/report-service/internal/domain"
	"github.com/streamwatch/report-service/internal/service"
	apperrors "github.com/streamwatch/report-service/pkg/util"
)

// StaffReportsHandler exposes the triage surface for staff.
type StaffReportsHandler struct {
	service *service.ReportService
}

// NewStaffReportsHandler constructs handler.
func NewStaffReportsHandler(reportService *service.ReportService) *StaffReportsHandler {
	return &StaffReportsHandler{service: reportService}
}

// ListActive GET /staff/reports.
func (h *StaffReportsHandler) ListActive(c *fiber.Ctx) error {
	if _, err := requireStaffPrincipal(c); err != nil {
		return err
	}
	limit := 50
	if val := c.Query("limit"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	reports, err := h.service.ListActive(c.Context(), limit)
	if err != nil {
		return err
	}
	items := make([]dto.ReportSummary, 0, len(reports))
	for i := range reports {
		items = append(items, reportSummary(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetReport GET /staff/reports/:id.
func (h *StaffReportsHandler) GetReport(c *fiber.Ctx) error {
	if _, err := requireStaffPrincipal(c); err != nil {
		return err
	}
	report, err := h.service.GetReport(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportDetail(report)})
}

// ApplyAction POST /staff/reports/:id/actions.
func (h *StaffReportsHandler) ApplyAction(c *fiber.Ctx) error {
	staff, err := requireStaffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReportActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	action := domain.ReportAction(strings.ToUpper(strings.TrimSpace(req.Action)))
	if action == "" {
		return apperrors.NewValidationError("action required", nil)
	}

	report, err := h.service.ApplyAction(c.Context(), service.ActionInput{
		ReportID: c.Params("id"),
		Action:   action,
		ActorRef: staff.ID,
		Subject:  domain.SubjectTypeStaff,
		Note:     req.Note,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportDetail(report)})
}

func requireStaffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}

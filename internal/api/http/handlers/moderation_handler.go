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

// ModerationHandler manages reporter blocks and notification toggles.
type ModerationHandler struct {
	service *service.ModerationService
}

// NewModerationHandler constructs handler.
func NewModerationHandler(moderationService *service.ModerationService) *ModerationHandler {
	return &ModerationHandler{service: moderationService}
}

// CreateBlock POST /staff/blocks.
func (h *ModerationHandler) CreateBlock(c *fiber.Ctx) error {
	staff, err := requireStaffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.BlockRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ReporterRef) == "" {
		return apperrors.NewValidationError("reporter_ref required", nil)
	}

	block, err := h.service.BlockReporter(c.Context(), staff.ID, strings.TrimSpace(req.ReporterRef), req.Reason, req.DurationMinutes)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": blockResponse(block)})
}

// RemoveBlock DELETE /staff/blocks/:reporterRef.
func (h *ModerationHandler) RemoveBlock(c *fiber.Ctx) error {
	staff, err := requireStaffPrincipal(c)
	if err != nil {
		return err
	}
	removed, err := h.service.UnblockReporter(c.Context(), staff.ID, c.Params("reporterRef"))
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.NewNotFound("block", nil)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "unblocked"}})
}

// ListBlocks GET /staff/blocks.
func (h *ModerationHandler) ListBlocks(c *fiber.Ctx) error {
	if _, err := requireStaffPrincipal(c); err != nil {
		return err
	}
	blocks, err := h.service.ListBlocks(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.BlockResponse, 0, len(blocks))
	for i := range blocks {
		items = append(items, blockResponse(&blocks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// TogglePings POST /staff/settings/report-pings/toggle.
func (h *ModerationHandler) TogglePings(c *fiber.Ctx) error {
	if _, err := requireStaffPrincipal(c); err != nil {
		return err
	}
	enabled, err := h.service.ToggleReportPings(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"report_pings_enabled": enabled}})
}

func blockResponse(block *domain.ReportBlock) dto.BlockResponse {
	return dto.BlockResponse{
		ID:          block.ID,
		ReporterRef: block.ReporterRef,
		CreatedBy:   block.CreatedBy,
		Reason:      block.Reason,
		ExpiresAt:   block.ExpiresAt,
		CreatedAt:   block.CreatedAt,
	}
}

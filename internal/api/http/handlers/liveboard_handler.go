package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/streamwatch/report-service/internal/api/dto"
	"github.com/streamwatch/report-service/internal/service"
)

// LiveboardHandler serves the active-report overview.
type LiveboardHandler struct {
	service *service.LiveboardService
}

// NewLiveboardHandler constructs handler.
func NewLiveboardHandler(liveboardService *service.LiveboardService) *LiveboardHandler {
	return &LiveboardHandler{service: liveboardService}
}

// Get GET /staff/liveboard.
func (h *LiveboardHandler) Get(c *fiber.Ctx) error {
	if _, err := requireStaffPrincipal(c); err != nil {
		return err
	}
	board, err := h.service.Build(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": liveboardResponse(board)})
}

func liveboardResponse(board *service.Liveboard) dto.LiveboardResponse {
	return dto.LiveboardResponse{
		UpdatedAt: board.UpdatedAt,
		TV:        liveboardRows(board.TV),
		VOD:       liveboardRows(board.VOD),
	}
}

func liveboardRows(rows []service.LiveboardRow) []dto.LiveboardRowResponse {
	out := make([]dto.LiveboardRowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.LiveboardRowResponse{
			ExternalKey: row.ExternalKey,
			Status:      row.Status,
			Subject:     row.Subject,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out
}

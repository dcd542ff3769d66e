package matching

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

// Handler HTTP-обработчики подбора, лайков и отказов
type Handler struct {
	engine *Engine
}

// NewHandler создает обработчики поверх движка
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// GetCandidates возвращает кандидатов для вещи :id
func (h *Handler) GetCandidates(c fiber.Ctx) error {
	lensID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	radius, err := ParseRadius(c.Query("radius"))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	items, err := h.engine.FindCandidates(ctx, middleware.UserID(c), lensID, radius)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"items": items,
		"total": len(items),
	})
}

// LikeItem ставит лайк вещи :itemId
func (h *Handler) LikeItem(c fiber.Ctx) error {
	itemID, err := utils.ParseUUIDParam(c, "itemId")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	matches, err := h.engine.Like(ctx, middleware.UserID(c), itemID)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"liked":   true,
		"matches": matches,
	})
}

// UnlikeItem снимает лайк с вещи :itemId
func (h *Handler) UnlikeItem(c fiber.Ctx) error {
	itemID, err := utils.ParseUUIDParam(c, "itemId")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := h.engine.Unlike(ctx, middleware.UserID(c), itemID); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"liked": false})
}

// GetMatches возвращает совпадения текущего пользователя
func (h *Handler) GetMatches(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	matches, err := h.engine.Matches(ctx, middleware.UserID(c))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"matches": matches})
}

type rejectRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	MyItemID string `json:"my_item_id" validate:"omitempty,uuid"`
}

// RejectItem скрывает вещь глобально или для одной своей вещи
func (h *Handler) RejectItem(c fiber.Ctx) error {
	var req rejectRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных", "kind": "validation"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	itemID := uuid.MustParse(req.ItemID)
	var myItemID *uuid.UUID
	if req.MyItemID != "" {
		id := uuid.MustParse(req.MyItemID)
		myItemID = &id
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := h.engine.RejectItem(ctx, middleware.UserID(c), itemID, myItemID); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"rejected": true})
}

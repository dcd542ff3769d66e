package trade

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

type proposeRequest struct {
	OwnerID          string   `json:"owner_id" validate:"required,uuid"`
	RequesterItemIDs []string `json:"requester_item_ids" validate:"required,min=1,dive,uuid"`
	OwnerItemIDs     []string `json:"owner_item_ids" validate:"required,min=1,dive,uuid"`
	Message          string   `json:"message" validate:"max=500"`
}

type substituteRequest struct {
	ItemIDs []string `json:"item_ids" validate:"required,min=1,dive,uuid"`
}

func parseIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, uuid.MustParse(s))
	}
	return ids
}

func bindBody(c fiber.Ctx, out any) error {
	if err := c.Bind().Body(out); err != nil {
		return apperr.Validation("неверный формат данных")
	}
	return utils.ValidateStruct(out)
}

// CreateTrade создает новое предложение обмена
func (s *TradeService) CreateTrade(c fiber.Ctx) error {
	var req proposeRequest
	if err := bindBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	t, err := s.Propose(ctx, ProposeInput{
		RequesterID:      middleware.UserID(c),
		OwnerID:          uuid.MustParse(req.OwnerID),
		RequesterItemIDs: parseIDs(req.RequesterItemIDs),
		OwnerItemIDs:     parseIDs(req.OwnerItemIDs),
		Message:          req.Message,
	})
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// GetMyTrades возвращает обмены текущего пользователя, ?status= фильтрует
func (s *TradeService) GetMyTrades(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	trades, err := s.List(ctx, middleware.UserID(c), c.Query("status"))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"trades": trades})
}

// GetTrade возвращает обмен по ID
func (s *TradeService) GetTrade(c fiber.Ctx) error {
	return s.transition(c, s.Get)
}

// AcceptTrade подтверждает обмен со стороны текущего пользователя
func (s *TradeService) AcceptTrade(c fiber.Ctx) error {
	return s.transition(c, s.Accept)
}

// RejectTrade отклоняет обмен
func (s *TradeService) RejectTrade(c fiber.Ctx) error {
	return s.transition(c, s.Reject)
}

// CancelTrade отзывает предложение
func (s *TradeService) CancelTrade(c fiber.Ctx) error {
	return s.transition(c, s.Cancel)
}

// CompleteTrade завершает обмен
func (s *TradeService) CompleteTrade(c fiber.Ctx) error {
	return s.transition(c, s.Complete)
}

// SubstituteTradeItems заменяет вещи текущего пользователя в обмене
func (s *TradeService) SubstituteTradeItems(c fiber.Ctx) error {
	tradeID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	var req substituteRequest
	if err := bindBody(c, &req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	t, changed, err := s.SubstituteItems(ctx, tradeID, middleware.UserID(c), parseIDs(req.ItemIDs))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"trade":   t,
		"changed": changed,
	})
}

type transitionFunc func(ctx context.Context, tradeID, actorID uuid.UUID) (*models.TradeConversation, error)

func (s *TradeService) transition(c fiber.Ctx, fn transitionFunc) error {
	tradeID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	t, err := fn(ctx, tradeID, middleware.UserID(c))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(t)
}

package block

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

// SetupRoutes регистрирует маршруты блокировок; api уже защищён авторизацией
func (s *BlockService) SetupRoutes(api fiber.Router) {
	blocks := api.Group("/blocks")
	blocks.Get("/", s.GetBlocks)
	blocks.Post("/:userId", s.BlockUser)
	blocks.Delete("/:userId", s.UnblockUser)
}

// GetBlocks список моих блокировок
func (s *BlockService) GetBlocks(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	blocks, err := s.ListBlocked(ctx, middleware.UserID(c))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"blocks": blocks})
}

// BlockUser блокирует пользователя :userId
func (s *BlockService) BlockUser(c fiber.Ctx) error {
	blockedID, err := utils.ParseUUIDParam(c, "userId")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.Block(ctx, middleware.UserID(c), blockedID); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"blocked": true})
}

// UnblockUser снимает блокировку с пользователя :userId
func (s *BlockService) UnblockUser(c fiber.Ctx) error {
	blockedID, err := utils.ParseUUIDParam(c, "userId")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.Unblock(ctx, middleware.UserID(c), blockedID); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"blocked": false})
}

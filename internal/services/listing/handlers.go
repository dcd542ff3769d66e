package listing

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

type hiddenRequest struct {
	Hidden bool `json:"hidden"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published"`
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

type removeRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func badBody(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных", "kind": "validation"})
}

// CreateItem создает новую вещь текущего пользователя
func (s *ListingService) CreateItem(c fiber.Ctx) error {
	var req ItemInput
	if err := c.Bind().Body(&req); err != nil {
		return badBody(c)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := s.Create(ctx, middleware.UserID(c), req)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// GetMyItems возвращает вещи текущего пользователя
func (s *ListingService) GetMyItems(c fiber.Ctx) error {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	ctx, cancel := db.GetContext()
	defer cancel()

	items, err := s.ListMine(ctx, middleware.UserID(c), status, limit, offset)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

// GetItem возвращает вещь по ID
func (s *ListingService) GetItem(c fiber.Ctx) error {
	itemID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := s.Get(ctx, middleware.UserID(c), itemID)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(item)
}

// UpdateItem заменяет поля вещи
func (s *ListingService) UpdateItem(c fiber.Ctx) error {
	itemID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	var req ItemInput
	if err := c.Bind().Body(&req); err != nil {
		return badBody(c)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := s.Update(ctx, middleware.UserID(c), itemID, req)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(item)
}

// DeleteItem удаляет вещь
func (s *ListingService) DeleteItem(c fiber.Ctx) error {
	itemID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	if err := s.Delete(ctx, middleware.UserID(c), itemID); err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// SetItemHidden скрывает или показывает вещь
func (s *ListingService) SetItemHidden(c fiber.Ctx) error {
	var req hiddenRequest
	return s.modify(c, &req, func(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
		return s.SetHidden(ctx, actorID, itemID, req.Hidden)
	})
}

// SetItemStatus публикует вещь или возвращает её в черновики
func (s *ListingService) SetItemStatus(c fiber.Ctx) error {
	var req statusRequest
	return s.modify(c, &req, func(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
		return s.SetStatus(ctx, actorID, itemID, req.Status)
	})
}

// SetItemAvailability меняет доступность вещи для обмена
func (s *ListingService) SetItemAvailability(c fiber.Ctx) error {
	var req availabilityRequest
	return s.modify(c, &req, func(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
		return s.SetAvailability(ctx, actorID, itemID, req.Available)
	})
}

// RemoveItem снимает вещь с публикации (только администратор)
func (s *ListingService) RemoveItem(c fiber.Ctx) error {
	var req removeRequest
	return s.modify(c, &req, func(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
		return s.Remove(ctx, actorID, itemID, req.Reason)
	})
}

// modify разбирает :id и тело запроса, затем применяет fn от имени текущего пользователя
func (s *ListingService) modify(c fiber.Ctx, req any, fn func(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error)) error {
	itemID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(req); err != nil {
			return badBody(c)
		}
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := fn(ctx, middleware.UserID(c), itemID)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(item)
}

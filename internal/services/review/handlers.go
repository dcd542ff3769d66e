package review

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

type submitRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=140"`
}

// GetEligibility отвечает, может ли текущий пользователь оставить отзыв по обмену :id
func (s *ReviewService) GetEligibility(c fiber.Ctx) error {
	tradeID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	elig, err := s.IsEligible(ctx, tradeID, middleware.UserID(c))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(elig)
}

// SubmitReview сохраняет отзыв по обмену :id
func (s *ReviewService) SubmitReview(c fiber.Ctx) error {
	tradeID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	var req submitRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных", "kind": "validation"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	review, err := s.Submit(ctx, SubmitInput{
		ConversationID: tradeID,
		ReviewerID:     middleware.UserID(c),
		Rating:         req.Rating,
		Comment:        req.Comment,
	})
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// GetUserReviews возвращает отзывы о пользователе :id
func (s *ReviewService) GetUserReviews(c fiber.Ctx) error {
	userID, err := utils.ParseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	summary, err := s.ListForUser(ctx, userID)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(summary)
}

package review

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes регистрирует маршруты отзывов; api уже защищён авторизацией
func (s *ReviewService) SetupRoutes(api fiber.Router) {
	api.Get("/trades/:id/review", s.GetEligibility)
	api.Post("/trades/:id/review", s.SubmitReview)
	api.Get("/users/:id/reviews", s.GetUserReviews)
}

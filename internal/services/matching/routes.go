package matching

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes регистрирует маршруты; api уже защищён авторизацией
func (h *Handler) SetupRoutes(api fiber.Router, limit fiber.Handler) {
	// Кандидаты для своей вещи
	api.Get("/items/:id/candidates", h.GetCandidates)

	// Лайки
	likes := api.Group("/likes")
	likes.Use(limit)
	likes.Post("/:itemId", h.LikeItem)
	likes.Delete("/:itemId", h.UnlikeItem)

	// Совпадения
	api.Get("/matches", h.GetMatches)

	// Отказы
	rejections := api.Group("/rejections")
	rejections.Use(limit)
	rejections.Post("/", h.RejectItem)
}

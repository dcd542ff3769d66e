package listing

import (
	"github.com/gofiber/fiber/v3"

	"github.com/rajivgeraev/flippy-trade/internal/middleware"
)

// SetupRoutes настраивает маршруты для API вещей; api уже защищён авторизацией
func (s *ListingService) SetupRoutes(api fiber.Router, limit fiber.Handler) {
	items := api.Group("/items")
	items.Use(limit)

	items.Post("/", s.CreateItem)
	// /my должен идти раньше /:id
	items.Get("/my", s.GetMyItems)
	items.Get("/:id", s.GetItem)
	items.Put("/:id", s.UpdateItem)
	items.Delete("/:id", s.DeleteItem)

	items.Put("/:id/hidden", s.SetItemHidden)
	items.Put("/:id/status", s.SetItemStatus)
	items.Put("/:id/availability", s.SetItemAvailability)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.Post("/items/:id/remove", s.RemoveItem)
}

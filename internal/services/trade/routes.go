package trade

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API обменов; api уже защищён авторизацией
func (s *TradeService) SetupRoutes(api fiber.Router, limit fiber.Handler) {
	trades := api.Group("/trades")
	trades.Use(limit)

	// Создание предложения и список своих обменов
	trades.Post("/", s.CreateTrade)
	trades.Get("/", s.GetMyTrades)

	// Один обмен
	trades.Get("/:id", s.GetTrade)

	// Переходы состояний
	trades.Post("/:id/accept", s.AcceptTrade)
	trades.Post("/:id/reject", s.RejectTrade)
	trades.Post("/:id/cancel", s.CancelTrade)
	trades.Post("/:id/complete", s.CompleteTrade)

	// Замена своих вещей в предложении
	trades.Put("/:id/items", s.SubstituteTradeItems)
}

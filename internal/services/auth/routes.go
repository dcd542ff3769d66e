package auth

import (
	"github.com/gofiber/fiber/v3"
)

// SetupPublicRoutes регистрирует вход через Telegram, до подключения авторизации
func (s *AuthService) SetupPublicRoutes(app *fiber.App) {
	app.Post("/api/auth/telegram", s.TelegramAuthHandler)
}

// SetupRoutes регистрирует маршруты профиля; api уже защищён авторизацией
func (s *AuthService) SetupRoutes(api fiber.Router) {
	api.Get("/profile", s.GetProfile)
	api.Put("/profile/location", s.UpdateLocation)
}

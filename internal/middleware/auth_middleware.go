package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

const (
	localUserID = "userID"
	localRole   = "role"
)

// AuthMiddleware создаёт middleware для проверки JWT
func AuthMiddleware(jwtService *utils.JWTService) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
				"kind":  "unauthorized",
			})
		}

		// Проверяем Bearer токен
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
				"kind":  "unauthorized",
			})
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
				"kind":  "unauthorized",
			})
		}

		// Проверяем, что userID является валидным UUID
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid user ID",
				"kind":  "unauthorized",
			})
		}

		role := claims.Role
		if role == "" {
			role = models.RoleUser
		}

		c.Locals(localUserID, userID)
		c.Locals(localRole, role)

		return c.Next()
	}
}

// RequireAdmin пропускает только пользователей с ролью admin
func RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		if Role(c) != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Недостаточно прав",
				"kind":  "authorization",
			})
		}
		return c.Next()
	}
}

// UserID возвращает ID авторизованного пользователя
func UserID(c fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(localUserID).(uuid.UUID)
	return id
}

// Role возвращает роль авторизованного пользователя
func Role(c fiber.Ctx) string {
	role, _ := c.Locals(localRole).(string)
	return role
}

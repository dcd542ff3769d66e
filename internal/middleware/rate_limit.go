package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/rajivgeraev/flippy-trade/internal/config"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

// RateLimitMiddleware ограничивает частоту пишущих запросов (GET не считается).
// У каждой группы маршрутов свой счётчик; ключ: пользователь, если авторизован, иначе IP
func RateLimitMiddleware(cfg config.RateLimitConfig) fiber.Handler {
	rate := limiter.Rate{
		Period: cfg.Period,
		Limit:  cfg.Limit,
	}

	store := memory.NewStore()
	instance := limiter.New(store, rate)

	return func(c fiber.Ctx) error {
		if c.Method() == fiber.MethodGet {
			return c.Next()
		}

		key := c.IP()
		if userID := UserID(c); userID != uuid.Nil {
			key = userID.String()
		}

		lctx, err := instance.Get(c.Context(), key)
		if err != nil {
			// Лимитер в памяти не должен ломать запросы
			logger.Warnf("Ошибка лимитера: %v", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Слишком много запросов, попробуйте позже",
				"kind":  "rate_limited",
			})
		}
		return c.Next()
	}
}

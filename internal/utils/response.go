package utils

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

// StatusFor возвращает HTTP-статус для доменной ошибки
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindAuthorization:
		return fiber.StatusForbidden
	case apperr.KindUpstream:
		return fiber.StatusServiceUnavailable
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorResponse отправляет ошибку в формате {"error": ..., "kind": ...}.
// Неклассифицированные ошибки логируются, клиенту уходит общий текст
func ErrorResponse(c fiber.Ctx, err error) error {
	status := StatusFor(err)
	kind := apperr.KindOf(err)

	message := err.Error()
	if kind == apperr.KindUnknown && status == fiber.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Method(), c.Path(), err)
		message = "Внутренняя ошибка сервера"
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"kind":  kind.String(),
	})
}

// ParseUUIDParam читает UUID из параметра пути
func ParseUUIDParam(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("неверный формат ID: %s", name)
	}
	return id, nil
}

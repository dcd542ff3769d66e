package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

// initDataTTL срок жизни initData от Telegram
const initDataTTL = 24 * time.Hour

// Store хранилище пользователей
type Store interface {
	UpsertTelegramUser(ctx context.Context, p db.TelegramProfile) (*models.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateUserLocation(ctx context.Context, userID uuid.UUID, location string) error
}

// Verifier проверяет подпись initData и достаёт из неё профиль
type Verifier func(initData string) (db.TelegramProfile, error)

// TelegramVerifier проверяет initData токеном бота
func TelegramVerifier(botToken string) Verifier {
	return func(raw string) (db.TelegramProfile, error) {
		if err := initdata.Validate(raw, botToken, initDataTTL); err != nil {
			return db.TelegramProfile{}, apperr.Authorization("неверные данные Telegram")
		}
		data, err := initdata.Parse(raw)
		if err != nil {
			return db.TelegramProfile{}, apperr.Validation("не удалось разобрать initData")
		}
		return db.TelegramProfile{
			TelegramID: data.User.ID,
			Username:   data.User.Username,
			FirstName:  data.User.FirstName,
			LastName:   data.User.LastName,
		}, nil
	}
}

// AuthService – структура для обработки авторизации
type AuthService struct {
	store      Store
	verify     Verifier
	jwtService *utils.JWTService
}

// NewAuthService – конструктор AuthService
func NewAuthService(store Store, verify Verifier, jwtService *utils.JWTService) *AuthService {
	return &AuthService{
		store:      store,
		verify:     verify,
		jwtService: jwtService,
	}
}

// Login проверяет initData, создает или обновляет пользователя и выдает JWT
func (s *AuthService) Login(ctx context.Context, rawInitData string) (string, *models.User, error) {
	if strings.TrimSpace(rawInitData) == "" {
		return "", nil, apperr.Validation("init_data обязателен")
	}

	profile, err := s.verify(rawInitData)
	if err != nil {
		return "", nil, err
	}

	user, err := s.store.UpsertTelegramUser(ctx, profile)
	if err != nil {
		return "", nil, err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	logger.WithField("user_id", user.ID).Infof("Пользователь Telegram %d авторизован", profile.TelegramID)
	return token, user, nil
}

// TelegramAuthHandler проверяет initData, создает JWT и возвращает его
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}
	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request", "kind": "validation"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	token, user, err := s.Login(ctx, payload.InitData)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// GetProfile возвращает профиль текущего пользователя
func (s *AuthService) GetProfile(c fiber.Ctx) error {
	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.store.GetUser(ctx, middleware.UserID(c))
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(user)
}

// UpdateLocation сохраняет локацию пользователя: город, адрес или "lat,lng"
func (s *AuthService) UpdateLocation(c fiber.Ctx) error {
	var req struct {
		Location string `json:"location" validate:"max=200"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных", "kind": "validation"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, err)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	userID := middleware.UserID(c)
	if err := s.store.UpdateUserLocation(ctx, userID, strings.TrimSpace(req.Location)); err != nil {
		return utils.ErrorResponse(c, err)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	return c.JSON(user)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/config"
	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/geo"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/internal/services/auth"
	"github.com/rajivgeraev/flippy-trade/internal/services/block"
	"github.com/rajivgeraev/flippy-trade/internal/services/cloudinary"
	"github.com/rajivgeraev/flippy-trade/internal/services/listing"
	"github.com/rajivgeraev/flippy-trade/internal/services/matching"
	"github.com/rajivgeraev/flippy-trade/internal/services/review"
	"github.com/rajivgeraev/flippy-trade/internal/services/trade"
	"github.com/rajivgeraev/flippy-trade/internal/services/visibility"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
	"github.com/rajivgeraev/flippy-trade/internal/websocket"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)

	// Инициализируем базу данных
	if err := db.InitDB(cfg); err != nil {
		logger.Fatalf("❌ Ошибка при инициализации базы данных: %v", err)
	}
	defer db.CloseDB()

	repo := db.NewRepository(db.Pool)
	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := repo.RunMigrations(migrateCtx); err != nil {
		cancel()
		logger.Fatalf("❌ Ошибка миграций: %v", err)
	}
	cancel()

	jwtService := utils.NewJWTService(cfg.JWTSecret)

	// Уведомления: WebSocket всегда, почта только если настроен SMTP
	hub := websocket.NewManager()
	defer hub.Shutdown()
	sinks := notify.Multi{hub}
	if email := notify.NewEmailSink(cfg.SMTPConfig, emailLookup(repo)); email != nil {
		sinks = append(sinks, email)
	}

	resolver := geo.NewResolver(
		geo.NewNominatimProvider(cfg.GeoConfig.ProviderURL, cfg.GeoConfig.UserAgent),
		newRedis(cfg.RedisConfig),
		geo.Options{Timeout: cfg.GeoConfig.Timeout, CacheTTL: cfg.GeoConfig.CacheTTL},
	)

	// Создаём сервисы
	filter := visibility.NewFilter(repo)
	authService := auth.NewAuthService(repo, auth.TelegramVerifier(cfg.TelegramBotToken), jwtService)
	listingService := listing.NewListingService(repo, filter, sinks)
	matchingHandler := matching.NewHandler(matching.NewEngine(repo, filter, resolver, sinks))
	tradeService := trade.NewTradeService(repo, filter, sinks)
	reviewService := review.NewReviewService(repo)
	blockService := block.NewBlockService(repo)
	cloudinaryService := cloudinary.NewCloudinaryService(cfg.CloudinaryConfig)

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Flippy Trade",
		ErrorHandler: errorHandler,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Вход регистрируется до защищённой группы
	authService.SetupPublicRoutes(app)

	api := app.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtService))

	authService.SetupRoutes(api)
	cloudinaryService.SetupRoutes(api)
	blockService.SetupRoutes(api)
	reviewService.SetupRoutes(api)
	// У каждого сервиса свой счётчик запросов
	matchingHandler.SetupRoutes(api, middleware.RateLimitMiddleware(cfg.RateLimit))
	tradeService.SetupRoutes(api, middleware.RateLimitMiddleware(cfg.RateLimit))
	listingService.SetupRoutes(api, middleware.RateLimitMiddleware(cfg.RateLimit))

	// WebSocket слушает отдельный порт
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/ws", websocket.Handler(jwtService, hub))
		logger.Infof("✅ WebSocket запущен на порту %s", cfg.WSPort)
		if err := http.ListenAndServe(":"+cfg.WSPort, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("❌ WebSocket сервер остановлен: %v", err)
		}
	}()

	// Запускаем сервер
	logger.Infof("✅ Flippy Trade запущен на порту %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal(err)
	}
}

// newRedis подключает кэш геокодинга. Без Redis работает только локальный кэш
func newRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warnf("⚠️ Redis недоступен (%s), кэш геокодинга только в памяти: %v", cfg.Addr, err)
		rdb.Close()
		return nil
	}
	return rdb
}

// emailLookup достаёт адрес получателя уведомления
func emailLookup(repo *db.Repository) notify.EmailLookup {
	return func(ctx context.Context, userID uuid.UUID) (string, error) {
		user, err := repo.GetUser(ctx, userID)
		if err != nil {
			return "", err
		}
		return user.Email, nil
	}
}

// errorHandler обрабатывает ошибки, не перехваченные обработчиками
func errorHandler(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := apperr.KindUnknown
		switch fe.Code {
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			kind = apperr.KindValidation
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			kind = apperr.KindNotFound
		case fiber.StatusUnauthorized, fiber.StatusForbidden:
			kind = apperr.KindAuthorization
		}
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
			"kind":  kind.String(),
		})
	}
	return utils.ErrorResponse(c, err)
}

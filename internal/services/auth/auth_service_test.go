package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/db/dbtest"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

func fakeVerifier(raw string) (db.TelegramProfile, error) {
	if raw != "signed" {
		return db.TelegramProfile{}, apperr.Authorization("неверные данные Telegram")
	}
	return db.TelegramProfile{TelegramID: 42, Username: "ivan", FirstName: "Иван"}, nil
}

func TestLogin_UpsertsUserAndIssuesToken(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewMemStore()
	jwtService := utils.NewJWTService("test-secret")
	svc := NewAuthService(store, fakeVerifier, jwtService)

	token, user, err := svc.Login(ctx, "signed")
	require.NoError(t, err)
	assert.Equal(t, "ivan", user.Username)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	// Повторный вход возвращает того же пользователя
	_, again, err := svc.Login(ctx, "signed")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, _, err = svc.Login(ctx, "forged")
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	_, _, err = svc.Login(ctx, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRoutes_LoginProfileAndLocation(t *testing.T) {
	store := dbtest.NewMemStore()
	jwtService := utils.NewJWTService("test-secret")
	svc := NewAuthService(store, fakeVerifier, jwtService)

	app := fiber.New()
	svc.SetupPublicRoutes(app)
	api := app.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtService))
	svc.SetupRoutes(api)

	do := func(method, path, token, body string) (int, map[string]any) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		out := map[string]any{}
		raw, _ := io.ReadAll(resp.Body)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &out), string(raw))
		}
		return resp.StatusCode, out
	}

	code, out := do(fiber.MethodPost, "/api/auth/telegram", "", `{"init_data":"forged"}`)
	assert.Equal(t, fiber.StatusForbidden, code)
	assert.Equal(t, "authorization", out["kind"])

	code, out = do(fiber.MethodPost, "/api/auth/telegram", "", `{"init_data":"signed"}`)
	require.Equal(t, fiber.StatusOK, code)
	token := out["token"].(string)
	require.NotEmpty(t, token)

	code, _ = do(fiber.MethodGet, "/api/profile", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, out = do(fiber.MethodPut, "/api/profile/location", token, `{"location":" Seattle, WA "}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Seattle, WA", out["location"])

	code, out = do(fiber.MethodGet, "/api/profile", token, "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ivan", out["username"])
	assert.Equal(t, models.RoleUser, out["role"])
}

package trade

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/flippy-trade/internal/config"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

type apiClient struct {
	t   *testing.T
	app *fiber.App
	jwt *utils.JWTService
}

func newAPIClient(t *testing.T, svc *TradeService) *apiClient {
	jwtService := utils.NewJWTService("test-secret")
	app := fiber.New()
	api := app.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtService))
	svc.SetupRoutes(api, middleware.RateLimitMiddleware(config.RateLimitConfig{Limit: 100, Period: time.Minute}))
	return &apiClient{t: t, app: app, jwt: jwtService}
}

func (c *apiClient) do(userID uuid.UUID, method, path, body string) (int, map[string]any) {
	c.t.Helper()
	token, err := c.jwt.GenerateToken(userID, models.RoleUser)
	require.NoError(c.t, err)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.app.Test(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestHandlers_TradeFlow(t *testing.T) {
	f := newFixture(t)
	client := newAPIClient(t, f.svc)

	body := `{"owner_id":"` + f.owner.String() + `","requester_item_ids":["` + f.reqItem.ID.String() +
		`"],"owner_item_ids":["` + f.ownItem.ID.String() + `"],"message":"Меняемся?"}`
	code, out := client.do(f.requester, http.MethodPost, "/api/trades", body)
	require.Equal(t, fiber.StatusCreated, code, out)
	tradeID := out["id"].(string)
	assert.Equal(t, models.TradeStatusPending, out["status"])

	code, out = client.do(f.requester, http.MethodPost, "/api/trades/"+tradeID+"/cancel", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, models.TradeStatusCancelled, out["status"])

	code, out = client.do(f.owner, http.MethodPost, "/api/trades/"+tradeID+"/accept", "")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "conflict", out["kind"])

	code, out = client.do(uuid.New(), http.MethodGet, "/api/trades/"+tradeID, "")
	assert.Equal(t, fiber.StatusForbidden, code)

	code, out = client.do(f.owner, http.MethodGet, "/api/trades?status=cancelled", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["trades"], 1)
}

func TestHandlers_ProposeValidation(t *testing.T) {
	f := newFixture(t)
	client := newAPIClient(t, f.svc)

	code, out := client.do(f.requester, http.MethodPost, "/api/trades",
		`{"owner_id":"`+f.owner.String()+`","requester_item_ids":[],"owner_item_ids":["`+f.ownItem.ID.String()+`"]}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "validation", out["kind"])

	code, _ = client.do(f.requester, http.MethodPut, "/api/trades/"+uuid.NewString()+"/items", `{"item_ids":["x"]}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

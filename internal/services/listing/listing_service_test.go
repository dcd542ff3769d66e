package listing

import (
	"context"
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

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/config"
	"github.com/rajivgeraev/flippy-trade/internal/db/dbtest"
	"github.com/rajivgeraev/flippy-trade/internal/middleware"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/internal/services/visibility"
	"github.com/rajivgeraev/flippy-trade/internal/utils"
)

func newService() (*ListingService, *dbtest.MemStore, *notify.Recorder) {
	store := dbtest.NewMemStore()
	rec := &notify.Recorder{}
	return NewListingService(store, visibility.NewFilter(store), rec), store, rec
}

func floatPtr(v float64) *float64 { return &v }

func TestCreate_DefaultsToDraft(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	owner := store.AddUser(models.User{}).ID

	item, err := svc.Create(ctx, owner, ItemInput{Title: " Велосипед ", Category: "Sports"})
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusDraft, item.Status)
	assert.Equal(t, "Велосипед", item.Title)
	assert.True(t, item.IsAvailable)
	assert.Equal(t, owner, item.OwnerID)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	owner := store.AddUser(models.User{}).ID

	_, err := svc.Create(ctx, owner, ItemInput{Title: "Лампа", Status: models.ItemStatusPublished})
	assert.ErrorIs(t, err, apperr.ErrValidation, "публикация без категории")

	_, err = svc.Create(ctx, owner, ItemInput{
		Title: "Лампа",
		Price: models.PriceRange{Min: floatPtr(50), Max: floatPtr(10)},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, owner, ItemInput{Title: "Лампа", Condition: "broken"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOwnerOnlyMutations(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	owner := store.AddUser(models.User{}).ID
	other := store.AddUser(models.User{}).ID

	item, err := svc.Create(ctx, owner, ItemInput{Title: "Книга", Category: "Books"})
	require.NoError(t, err)

	_, err = svc.SetHidden(ctx, other, item.ID, true)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	_, err = svc.Update(ctx, other, item.ID, ItemInput{Title: "Чужая"})
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	assert.ErrorIs(t, svc.Delete(ctx, other, item.ID), apperr.ErrAuthorization)

	item, err = svc.SetStatus(ctx, owner, item.ID, models.ItemStatusPublished)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusPublished, item.Status)

	_, err = svc.SetStatus(ctx, owner, item.ID, models.ItemStatusRemoved)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	item, err = svc.SetAvailability(ctx, owner, item.ID, false)
	require.NoError(t, err)
	assert.False(t, item.IsAvailable)

	require.NoError(t, svc.Delete(ctx, owner, item.ID))
	_, err = svc.Get(ctx, owner, item.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGet_Visibility(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	owner := store.AddUser(models.User{}).ID
	viewer := store.AddUser(models.User{}).ID

	draft, err := svc.Create(ctx, owner, ItemInput{Title: "Черновик"})
	require.NoError(t, err)
	_, err = svc.Get(ctx, viewer, draft.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Get(ctx, owner, draft.ID)
	assert.NoError(t, err)

	pub, err := svc.Create(ctx, owner, ItemInput{Title: "Гитара", Category: "Music", Status: models.ItemStatusPublished})
	require.NoError(t, err)
	_, err = svc.Get(ctx, viewer, pub.ID)
	require.NoError(t, err)

	_, err = svc.SetHidden(ctx, owner, pub.ID, true)
	require.NoError(t, err)
	_, err = svc.Get(ctx, viewer, pub.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.SetHidden(ctx, owner, pub.ID, false)
	require.NoError(t, err)
	_, err = store.InsertBlock(ctx, owner, viewer)
	require.NoError(t, err)
	_, err = svc.Get(ctx, viewer, pub.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "вещи заблокировавшего не видны")
}

func TestRemove_NotifiesOwnerAndFreezesItem(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newService()
	owner := store.AddUser(models.User{}).ID
	admin := store.AddUser(models.User{Role: models.RoleAdmin}).ID

	item, err := svc.Create(ctx, owner, ItemInput{Title: "Подделка", Category: "Bags", Status: models.ItemStatusPublished})
	require.NoError(t, err)

	removed, err := svc.Remove(ctx, admin, item.ID, "нарушение правил")
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusRemoved, removed.Status)

	// Повторное снятие ничего не публикует
	_, err = svc.Remove(ctx, admin, item.ID, "нарушение правил")
	require.NoError(t, err)

	events := rec.OfType(notify.EventItemRemoved)
	require.Len(t, events, 1)
	assert.Equal(t, owner, events[0].UserID)
	assert.Equal(t, "нарушение правил", events[0].Payload["reason"])

	_, err = svc.SetStatus(ctx, owner, item.ID, models.ItemStatusPublished)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	got, err := svc.Get(ctx, owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusRemoved, got.Status)
}

func TestListMine(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newService()
	owner := store.AddUser(models.User{}).ID

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, owner, ItemInput{Title: "Черновик"})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, owner, ItemInput{Title: "Опубликовано", Category: "Toys", Status: models.ItemStatusPublished})
	require.NoError(t, err)

	all, err := svc.ListMine(ctx, owner, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	drafts, err := svc.ListMine(ctx, owner, models.ItemStatusDraft, 2, 0)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	_, err = svc.ListMine(ctx, owner, "archived", 0, 0)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	empty, err := svc.ListMine(ctx, uuid.New(), "", 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRoutes_AdminRemoveRequiresRole(t *testing.T) {
	svc, store, _ := newService()
	owner := store.AddUser(models.User{}).ID
	admin := store.AddUser(models.User{Role: models.RoleAdmin}).ID

	jwtService := utils.NewJWTService("test-secret")
	app := fiber.New()
	api := app.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtService))
	svc.SetupRoutes(api, middleware.RateLimitMiddleware(config.RateLimitConfig{Limit: 100, Period: time.Minute}))

	call := func(userID uuid.UUID, role, method, path, body string) (int, map[string]any) {
		token, err := jwtService.GenerateToken(userID, role)
		require.NoError(t, err)
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
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

	code, out := call(owner, models.RoleUser, http.MethodPost, "/api/items",
		`{"title":"Самокат","category":"Sports","status":"published"}`)
	require.Equal(t, fiber.StatusCreated, code, out)
	itemID := out["id"].(string)

	code, out = call(owner, models.RoleUser, http.MethodPost, "/api/items", `{"title":""}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "validation", out["kind"])

	code, out = call(owner, models.RoleUser, http.MethodGet, "/api/items/my", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["items"], 1)

	code, _ = call(owner, models.RoleUser, http.MethodPost, "/api/admin/items/"+itemID+"/remove", `{"reason":"spam"}`)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, out = call(admin, models.RoleAdmin, http.MethodPost, "/api/admin/items/"+itemID+"/remove", `{"reason":"spam"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, models.ItemStatusRemoved, out["status"])

	code, out = call(owner, models.RoleUser, http.MethodPut, "/api/items/"+itemID+"/hidden", `{"hidden":true}`)
	assert.Equal(t, fiber.StatusForbidden, code)
	assert.Equal(t, "authorization", out["kind"])
}

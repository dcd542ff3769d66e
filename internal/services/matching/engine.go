// Package matching подбирает кандидатов для обмена, ведёт лайки и отказы
// и вычисляет совпадения (взаимные лайки).
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/geo"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/internal/services/visibility"
)

// geoFanout сколько локаций владельцев резолвится параллельно
const geoFanout = 8

// Store данные, нужные движку
type Store interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	ListCandidatePool(ctx context.Context, q db.CandidateQuery) ([]models.Item, error)
	LockedItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetUserLocations(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error)

	InsertLike(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	DeleteLike(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	LikeExists(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	LikesByUser(ctx context.Context, userID uuid.UUID) ([]models.LikedItem, error)
	LikesOnItemsOwnedBy(ctx context.Context, likerID, ownerID uuid.UUID) ([]models.Like, error)

	RejectionExists(ctx context.Context, userID, itemID uuid.UUID, myItemID *uuid.UUID) (bool, error)
	InsertRejection(ctx context.Context, rej *models.Rejection) (bool, error)
	DeleteGlobalRejection(ctx context.Context, userID, itemID uuid.UUID) error
}

// Locator переводит локацию пользователя в координаты
type Locator interface {
	Resolve(ctx context.Context, location string) (geo.Point, bool)
}

// Engine движок подбора
type Engine struct {
	store      Store
	visibility *visibility.Filter
	locator    Locator
	sink       notify.Sink
}

// NewEngine создает движок
func NewEngine(store Store, filter *visibility.Filter, locator Locator, sink notify.Sink) *Engine {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Engine{store: store, visibility: filter, locator: locator, sink: sink}
}

// FindCandidates возвращает вещи, которые можно предложить зрителю в обмен на lensItemID.
// Порядок: сначала новые, при равенстве по ID
func (e *Engine) FindCandidates(ctx context.Context, viewerID, lensItemID uuid.UUID, radius Radius) ([]models.Item, error) {
	lens, err := e.store.GetItem(ctx, lensItemID)
	if err != nil {
		return nil, err
	}
	if lens.OwnerID != viewerID {
		return nil, apperr.Authorization("вещь %s вам не принадлежит", lensItemID)
	}

	excludedOwners, err := e.visibility.ExcludedOwners(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	excludedItems, err := e.visibility.ExcludedItems(ctx, viewerID, &lens.ID)
	if err != nil {
		return nil, err
	}
	locked, err := e.store.LockedItemIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения вещей в активных обменах: %w", err)
	}
	for _, id := range locked {
		excludedItems[id] = struct{}{}
	}

	pool, err := e.store.ListCandidatePool(ctx, db.CandidateQuery{
		ViewerID:      viewerID,
		ExcludeOwners: excludedOwners.Slice(),
		ExcludeItems:  excludedItems.Slice(),
	})
	if err != nil {
		return nil, err
	}

	// Хранилище уже отфильтровало пул, но инварианты видимости проверяем ещё раз
	seen := make(map[uuid.UUID]bool, len(pool))
	candidates := make([]models.Item, 0, len(pool))
	for i := range pool {
		item := &pool[i]
		if seen[item.ID] || !item.IsCandidate() || item.OwnerID == viewerID ||
			excludedOwners.Has(item.OwnerID) || excludedItems.Has(item.ID) {
			continue
		}
		seen[item.ID] = true
		if Compatible(lens, item) {
			candidates = append(candidates, *item)
		}
	}

	if !radius.Nationwide {
		candidates, err = e.withinRadius(ctx, viewerID, candidates, radius.Miles)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ID.String() < candidates[j].ID.String()
	})
	return candidates, nil
}

// withinRadius оставляет кандидатов не дальше miles от зрителя.
// Если локацию зрителя или владельца определить не удалось, кандидат остаётся
func (e *Engine) withinRadius(ctx context.Context, viewerID uuid.UUID, items []models.Item, miles float64) ([]models.Item, error) {
	if e.locator == nil || len(items) == 0 {
		return items, nil
	}

	userIDs := []uuid.UUID{viewerID}
	for _, item := range items {
		userIDs = append(userIDs, item.OwnerID)
	}
	locations, err := e.store.GetUserLocations(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения локаций: %w", err)
	}

	viewerPoint, ok := e.locator.Resolve(ctx, locations[viewerID])
	if !ok {
		return items, nil
	}

	// Каждую уникальную локацию резолвим один раз
	distinct := make(map[string]struct{})
	for _, item := range items {
		if loc := locations[item.OwnerID]; loc != "" {
			distinct[loc] = struct{}{}
		}
	}

	points := make(map[string]geo.Point, len(distinct))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(geoFanout)
	for loc := range distinct {
		loc := loc
		g.Go(func() error {
			if p, ok := e.locator.Resolve(gctx, loc); ok {
				mu.Lock()
				points[loc] = p
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	kept := items[:0]
	for _, item := range items {
		p, ok := points[locations[item.OwnerID]]
		if !ok {
			kept = append(kept, item)
			continue
		}
		// Неопределённое расстояние не исключает кандидата
		if d := geo.DistanceMiles(viewerPoint, p); math.IsNaN(d) || d <= miles {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

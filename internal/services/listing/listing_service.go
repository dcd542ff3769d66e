// Package listing управляет вещами, выставленными на обмен: создание и правка
// владельцем, скрытие, публикация, снятие модератором.
package listing

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/internal/services/visibility"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Store хранилище вещей
type Store interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ListItemsByOwner(ctx context.Context, ownerID uuid.UUID, status string, limit, offset int) ([]models.Item, error)
}

// ItemInput редактируемые владельцем поля вещи
type ItemInput struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	Category    string            `json:"category" validate:"max=100"`
	Condition   string            `json:"condition" validate:"omitempty,oneof=new excellent good used needs_repair damaged"`
	Tags        []string          `json:"tags" validate:"max=20,dive,max=50"`
	Price       models.PriceRange `json:"price"`
	IsAvailable *bool             `json:"is_available"`
	Status      string            `json:"status" validate:"omitempty,oneof=draft published"`
	LookingFor  models.LookingFor `json:"looking_for"`
	ImageURLs   []string          `json:"image_urls" validate:"max=10,dive,url"`
}

// ListingService представляет сервис для работы с объявлениями
type ListingService struct {
	store      Store
	visibility *visibility.Filter
	sink       notify.Sink
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(store Store, filter *visibility.Filter, sink notify.Sink) *ListingService {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &ListingService{store: store, visibility: filter, sink: sink}
}

// Create создает вещь; по умолчанию черновик
func (s *ListingService) Create(ctx context.Context, ownerID uuid.UUID, in ItemInput) (*models.Item, error) {
	item := &models.Item{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Status:      models.ItemStatusDraft,
		IsAvailable: true,
	}
	if err := apply(item, in); err != nil {
		return nil, err
	}
	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	logger.WithField("item_id", item.ID).Infof("Создано объявление пользователя %s (%s)", ownerID, item.Status)
	return item, nil
}

// Update заменяет редактируемые поля вещи
func (s *ListingService) Update(ctx context.Context, actorID, itemID uuid.UUID, in ItemInput) (*models.Item, error) {
	item, err := s.owned(ctx, actorID, itemID)
	if err != nil {
		return nil, err
	}
	if err := apply(item, in); err != nil {
		return nil, err
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// SetHidden скрывает вещь из подбора или возвращает её
func (s *ListingService) SetHidden(ctx context.Context, actorID, itemID uuid.UUID, hidden bool) (*models.Item, error) {
	return s.mutate(ctx, actorID, itemID, func(item *models.Item) error {
		item.IsHidden = hidden
		return nil
	})
}

// SetStatus переводит вещь между черновиком и публикацией
func (s *ListingService) SetStatus(ctx context.Context, actorID, itemID uuid.UUID, status string) (*models.Item, error) {
	return s.mutate(ctx, actorID, itemID, func(item *models.Item) error {
		if status != models.ItemStatusDraft && status != models.ItemStatusPublished {
			return apperr.Validation("статус может быть %s или %s", models.ItemStatusDraft, models.ItemStatusPublished)
		}
		item.Status = status
		return checkPublishable(item)
	})
}

// SetAvailability отмечает, доступна ли вещь для обмена
func (s *ListingService) SetAvailability(ctx context.Context, actorID, itemID uuid.UUID, available bool) (*models.Item, error) {
	return s.mutate(ctx, actorID, itemID, func(item *models.Item) error {
		item.IsAvailable = available
		return nil
	})
}

// Delete удаляет вещь владельца
func (s *ListingService) Delete(ctx context.Context, actorID, itemID uuid.UUID) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != actorID {
		return apperr.Authorization("объявление принадлежит другому пользователю")
	}
	return s.store.DeleteItem(ctx, itemID)
}

// Remove принудительно снимает вещь (модерация) и уведомляет владельца
func (s *ListingService) Remove(ctx context.Context, moderatorID, itemID uuid.UUID, reason string) (*models.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == models.ItemStatusRemoved {
		return item, nil
	}

	item.Status = models.ItemStatusRemoved
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}

	logger.WithField("item_id", itemID).Warnf("Объявление снято модератором %s: %s", moderatorID, reason)
	s.sink.Publish(ctx, notify.Event{
		Type:   notify.EventItemRemoved,
		UserID: item.OwnerID,
		Payload: map[string]any{
			"item_id": item.ID,
			"title":   item.Title,
			"reason":  reason,
		},
	})
	return item, nil
}

// Get возвращает вещь. Черновики, скрытые и снятые вещи видит только владелец,
// вещи заблокированных пользователей не видны вовсе
func (s *ListingService) Get(ctx context.Context, viewerID, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == viewerID {
		return item, nil
	}
	if item.Status != models.ItemStatusPublished || item.IsHidden {
		return nil, apperr.NotFound("объявление не найдено")
	}

	ok, err := s.visibility.CanInteract(ctx, viewerID, item.OwnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("объявление не найдено")
	}
	return item, nil
}

// ListMine возвращает вещи владельца; status == "" означает все
func (s *ListingService) ListMine(ctx context.Context, ownerID uuid.UUID, status string, limit, offset int) ([]models.Item, error) {
	switch status {
	case "", models.ItemStatusDraft, models.ItemStatusPublished, models.ItemStatusRemoved:
	default:
		return nil, apperr.Validation("неизвестный статус %q", status)
	}
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.store.ListItemsByOwner(ctx, ownerID, status, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

// owned загружает вещь и проверяет, что её может править actorID
func (s *ListingService) owned(ctx context.Context, actorID, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != actorID {
		return nil, apperr.Authorization("объявление принадлежит другому пользователю")
	}
	if item.Status == models.ItemStatusRemoved {
		return nil, apperr.Authorization("объявление снято модератором и не может быть изменено")
	}
	return item, nil
}

func (s *ListingService) mutate(ctx context.Context, actorID, itemID uuid.UUID, fn func(*models.Item) error) (*models.Item, error) {
	item, err := s.owned(ctx, actorID, itemID)
	if err != nil {
		return nil, err
	}
	if err := fn(item); err != nil {
		return nil, err
	}
	if err := s.store.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// apply переносит ввод в вещь и проверяет согласованность полей
func apply(item *models.Item, in ItemInput) error {
	if in.Condition != "" && !models.ValidConditions[in.Condition] {
		return apperr.Validation("неизвестное состояние %q", in.Condition)
	}
	if !validRange(in.Price) || !validRange(in.LookingFor.Price) {
		return apperr.Validation("минимальная цена больше максимальной")
	}

	item.Title = strings.TrimSpace(in.Title)
	item.Description = in.Description
	item.Category = strings.TrimSpace(in.Category)
	item.Condition = in.Condition
	item.Tags = in.Tags
	item.Price = in.Price
	item.LookingFor = in.LookingFor
	item.ImageURLs = in.ImageURLs
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if in.Status != "" {
		item.Status = in.Status
	}
	return checkPublishable(item)
}

// checkPublishable опубликованная вещь должна иметь название и категорию
func checkPublishable(item *models.Item) error {
	if item.Status != models.ItemStatusPublished {
		return nil
	}
	if item.Title == "" {
		return apperr.Validation("название обязательно")
	}
	if item.Category == "" {
		return apperr.Validation("выберите категорию перед публикацией")
	}
	return nil
}

func validRange(r models.PriceRange) bool {
	if r.Min != nil && *r.Min < 0 || r.Max != nil && *r.Max < 0 {
		return false
	}
	return r.Min == nil || r.Max == nil || *r.Min <= *r.Max
}

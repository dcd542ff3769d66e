// Package trade ведёт переговоры об обмене: предложение, подтверждение сторонами,
// замену вещей, отказ, отмену и завершение.
//
// Каждый переход записывается условно: строка обновляется, только если её статус
// и версия не изменились с момента чтения. Иначе вызывающий получает Conflict.
package trade

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/internal/services/visibility"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

// Store хранилище обменов и вещей
type Store interface {
	CreateTrade(ctx context.Context, t *models.TradeConversation) error
	GetTrade(ctx context.Context, tradeID uuid.UUID) (*models.TradeConversation, error)
	ListTrades(ctx context.Context, userID uuid.UUID, status string) ([]models.TradeConversation, error)
	UpdateTradeGuarded(ctx context.Context, t *models.TradeConversation, expectedStatus string, expectedVersion int) error
	GetItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Item, error)
}

// TradeService машина состояний обмена
type TradeService struct {
	store      Store
	visibility *visibility.Filter
	sink       notify.Sink
	now        func() time.Time
}

// NewTradeService создает новый экземпляр TradeService
func NewTradeService(store Store, filter *visibility.Filter, sink notify.Sink) *TradeService {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &TradeService{store: store, visibility: filter, sink: sink, now: time.Now}
}

// ProposeInput параметры нового предложения
type ProposeInput struct {
	RequesterID      uuid.UUID
	OwnerID          uuid.UUID
	RequesterItemIDs []uuid.UUID
	OwnerItemIDs     []uuid.UUID
	Message          string
}

// Propose создает обмен в статусе pending, обе стороны ещё не подтвердили
func (s *TradeService) Propose(ctx context.Context, in ProposeInput) (*models.TradeConversation, error) {
	if in.RequesterID == in.OwnerID {
		return nil, apperr.Validation("нельзя предложить обмен самому себе")
	}
	requesterItems := dedupe(in.RequesterItemIDs)
	ownerItems := dedupe(in.OwnerItemIDs)
	if len(requesterItems) == 0 || len(ownerItems) == 0 {
		return nil, apperr.Validation("каждая сторона должна предложить хотя бы одну вещь")
	}

	ok, err := s.visibility.CanInteract(ctx, in.RequesterID, in.OwnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Authorization("обмен с этим пользователем невозможен")
	}

	if err := s.checkItems(ctx, in.RequesterID, requesterItems); err != nil {
		return nil, err
	}
	if err := s.checkItems(ctx, in.OwnerID, ownerItems); err != nil {
		return nil, err
	}

	t := &models.TradeConversation{
		ID:               uuid.New(),
		RequesterID:      in.RequesterID,
		OwnerID:          in.OwnerID,
		RequesterItemIDs: requesterItems,
		OwnerItemIDs:     ownerItems,
		Status:           models.TradeStatusPending,
		Message:          in.Message,
		Version:          1,
	}
	if err := s.store.CreateTrade(ctx, t); err != nil {
		return nil, err
	}

	logger.WithField("trade_id", t.ID).Infof("Новое предложение обмена от %s к %s", t.RequesterID, t.OwnerID)
	return t, nil
}

// checkItems проверяет, что все вещи существуют, принадлежат ownerID и доступны для обмена
func (s *TradeService) checkItems(ctx context.Context, ownerID uuid.UUID, itemIDs []uuid.UUID) error {
	items, err := s.store.GetItems(ctx, itemIDs)
	if err != nil {
		return err
	}
	found := make(map[uuid.UUID]models.Item, len(items))
	for _, item := range items {
		found[item.ID] = item
	}

	for _, id := range itemIDs {
		item, ok := found[id]
		if !ok {
			return apperr.NotFound("объявление %s не найдено", id)
		}
		if item.OwnerID != ownerID {
			return apperr.Authorization("объявление %s принадлежит другому пользователю", id)
		}
		if item.Status != models.ItemStatusPublished || !item.IsAvailable {
			return apperr.Validation("объявление %s недоступно для обмена", id)
		}
	}
	return nil
}

// Get возвращает обмен участнику
func (s *TradeService) Get(ctx context.Context, tradeID, userID uuid.UUID) (*models.TradeConversation, error) {
	return s.load(ctx, tradeID, userID)
}

// List возвращает обмены пользователя; пустой status означает все
func (s *TradeService) List(ctx context.Context, userID uuid.UUID, status string) ([]models.TradeConversation, error) {
	switch status {
	case "", models.TradeStatusPending, models.TradeStatusAccepted, models.TradeStatusCompleted,
		models.TradeStatusRejected, models.TradeStatusCancelled:
	default:
		return nil, apperr.Validation("неизвестный статус %q", status)
	}
	trades, err := s.store.ListTrades(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	if trades == nil {
		trades = []models.TradeConversation{}
	}
	return trades, nil
}

// Accept ставит флаг согласия стороны actorID. Когда согласны обе, обмен переходит в accepted
func (s *TradeService) Accept(ctx context.Context, tradeID, actorID uuid.UUID) (*models.TradeConversation, error) {
	t, err := s.load(ctx, tradeID, actorID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TradeStatusPending {
		return nil, apperr.Conflict("обмен в статусе %s нельзя подтвердить", t.Status)
	}

	if actorID == t.RequesterID {
		if t.RequesterAccepted {
			return t, nil
		}
		t.RequesterAccepted = true
	} else {
		if t.OwnerAccepted {
			return t, nil
		}
		t.OwnerAccepted = true
	}

	if t.RequesterAccepted && t.OwnerAccepted {
		t.Status = models.TradeStatusAccepted
	}
	if err := s.store.UpdateTradeGuarded(ctx, t, models.TradeStatusPending, t.Version); err != nil {
		return nil, err
	}

	if t.Status == models.TradeStatusAccepted {
		s.publish(ctx, notify.EventTradeAccepted, t)
	}
	return t, nil
}

// SubstituteItems заменяет вещи стороны actorID и сбрасывает оба согласия.
// Если набор не изменился, запись не выполняется и changed == false
func (s *TradeService) SubstituteItems(ctx context.Context, tradeID, actorID uuid.UUID, itemIDs []uuid.UUID) (t *models.TradeConversation, changed bool, err error) {
	t, err = s.load(ctx, tradeID, actorID)
	if err != nil {
		return nil, false, err
	}
	itemIDs = dedupe(itemIDs)
	if len(itemIDs) == 0 {
		return nil, false, apperr.Validation("нужно предложить хотя бы одну вещь")
	}
	if t.Status != models.TradeStatusPending && t.Status != models.TradeStatusAccepted {
		return nil, false, apperr.Conflict("обмен в статусе %s нельзя изменить", t.Status)
	}

	current := &t.OwnerItemIDs
	if actorID == t.RequesterID {
		current = &t.RequesterItemIDs
	}
	if sameSet(*current, itemIDs) {
		return t, false, nil
	}

	if err := s.checkItems(ctx, actorID, itemIDs); err != nil {
		return nil, false, err
	}

	prevStatus := t.Status
	*current = itemIDs
	t.RequesterAccepted = false
	t.OwnerAccepted = false
	t.Status = models.TradeStatusPending

	if err := s.store.UpdateTradeGuarded(ctx, t, prevStatus, t.Version); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Reject отклоняет обмен; возможно только в pending
func (s *TradeService) Reject(ctx context.Context, tradeID, actorID uuid.UUID) (*models.TradeConversation, error) {
	t, err := s.load(ctx, tradeID, actorID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TradeStatusPending {
		return nil, apperr.Conflict("обмен в статусе %s нельзя отклонить", t.Status)
	}

	t.Status = models.TradeStatusRejected
	if err := s.store.UpdateTradeGuarded(ctx, t, models.TradeStatusPending, t.Version); err != nil {
		return nil, err
	}
	return t, nil
}

// Cancel отзывает предложение; доступно только инициатору в pending
func (s *TradeService) Cancel(ctx context.Context, tradeID, actorID uuid.UUID) (*models.TradeConversation, error) {
	t, err := s.load(ctx, tradeID, actorID)
	if err != nil {
		return nil, err
	}
	if actorID != t.RequesterID {
		return nil, apperr.Authorization("отменить обмен может только инициатор")
	}
	if t.Status != models.TradeStatusPending {
		return nil, apperr.Conflict("обмен в статусе %s нельзя отменить", t.Status)
	}

	t.Status = models.TradeStatusCancelled
	if err := s.store.UpdateTradeGuarded(ctx, t, models.TradeStatusPending, t.Version); err != nil {
		return nil, err
	}
	return t, nil
}

// Complete завершает подтверждённый обмен и открывает окно отзывов
func (s *TradeService) Complete(ctx context.Context, tradeID, actorID uuid.UUID) (*models.TradeConversation, error) {
	t, err := s.load(ctx, tradeID, actorID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TradeStatusAccepted {
		return nil, apperr.Conflict("завершить можно только подтверждённый обмен, текущий статус %s", t.Status)
	}

	now := s.now()
	t.Status = models.TradeStatusCompleted
	t.CompletedAt = &now
	if err := s.store.UpdateTradeGuarded(ctx, t, models.TradeStatusAccepted, t.Version); err != nil {
		return nil, err
	}

	s.publish(ctx, notify.EventTradeCompleted, t)
	return t, nil
}

// load читает обмен и проверяет, что userID его участник
func (s *TradeService) load(ctx context.Context, tradeID, userID uuid.UUID) (*models.TradeConversation, error) {
	t, err := s.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(userID) {
		return nil, apperr.Authorization("вы не участник этого обмена")
	}
	return t, nil
}

func (s *TradeService) publish(ctx context.Context, eventType notify.EventType, t *models.TradeConversation) {
	for _, userID := range []uuid.UUID{t.RequesterID, t.OwnerID} {
		s.sink.Publish(ctx, notify.Event{
			Type:   eventType,
			UserID: userID,
			Payload: map[string]any{
				"trade_id":   t.ID,
				"partner_id": t.Counterpart(userID),
				"status":     t.Status,
			},
		})
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sameSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uuid.UUID]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

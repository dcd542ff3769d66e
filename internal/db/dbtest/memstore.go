// Package dbtest содержит in-memory реализацию репозитория для тестов сервисов.
// Она повторяет гарантии Postgres-схемы: уникальные ключи лайков, отказов, блокировок
// и отзывов, а также условное обновление обменов по статусу и версии.
package dbtest

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/db"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

type likeKey struct {
	userID, itemID uuid.UUID
}

type rejectionKey struct {
	userID, itemID, myItemID uuid.UUID
}

type blockKey struct {
	blockerID, blockedID uuid.UUID
}

type reviewKey struct {
	conversationID, reviewerID uuid.UUID
}

// MemStore потокобезопасное хранилище в памяти
type MemStore struct {
	mu sync.Mutex

	users       map[uuid.UUID]models.User
	telegramIDs map[int64]uuid.UUID
	items      map[uuid.UUID]models.Item
	likes      map[likeKey]models.Like
	rejections map[rejectionKey]models.Rejection
	blocks     map[blockKey]models.Block
	trades     map[uuid.UUID]models.TradeConversation
	reviews    map[reviewKey]models.Review

	// Now источник времени для created_at; каждое обращение сдвигается на 1мс, чтобы сохранить порядок вставки
	Now  func() time.Time
	tick time.Duration

	// DeleteGlobalRejectionErr если задан, возвращается из DeleteGlobalRejection
	DeleteGlobalRejectionErr error
}

// NewMemStore создает пустое хранилище
func NewMemStore() *MemStore {
	return &MemStore{
		users:       make(map[uuid.UUID]models.User),
		telegramIDs: make(map[int64]uuid.UUID),
		items:      make(map[uuid.UUID]models.Item),
		likes:      make(map[likeKey]models.Like),
		rejections: make(map[rejectionKey]models.Rejection),
		blocks:     make(map[blockKey]models.Block),
		trades:     make(map[uuid.UUID]models.TradeConversation),
		reviews:    make(map[reviewKey]models.Review),
		Now:        time.Now,
	}
}

func (s *MemStore) now() time.Time {
	s.tick += time.Millisecond
	return s.Now().Add(s.tick)
}

// AddUser регистрирует пользователя (вспомогательный метод для тестов)
func (s *MemStore) AddUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	s.users[u.ID] = u
	return u
}

// Users

func (s *MemStore) UpsertTelegramUser(_ context.Context, p db.TelegramProfile) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.telegramIDs[p.TelegramID]; ok {
		u := s.users[id]
		u.Username, u.FirstName, u.LastName = p.Username, p.FirstName, p.LastName
		s.users[id] = u
		return &u, nil
	}
	u := models.User{
		ID:        uuid.New(),
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      models.RoleUser,
		CreatedAt: s.now(),
	}
	s.users[u.ID] = u
	s.telegramIDs[p.TelegramID] = u.ID
	return &u, nil
}

func (s *MemStore) GetUser(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, apperr.NotFound("пользователь не найден")
	}
	return &u, nil
}

func (s *MemStore) GetUserLocations(_ context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	locations := make(map[uuid.UUID]string, len(userIDs))
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok && u.Location != "" {
			locations[id] = u.Location
		}
	}
	return locations, nil
}

func (s *MemStore) UpdateUserLocation(_ context.Context, userID uuid.UUID, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return apperr.NotFound("пользователь не найден")
	}
	u.Location = location
	s.users[userID] = u
	return nil
}

// Items

func (s *MemStore) CreateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	item.UpdatedAt = item.CreatedAt
	s.items[item.ID] = cloneItem(*item)
	return nil
}

func (s *MemStore) GetItem(_ context.Context, itemID uuid.UUID) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return nil, apperr.NotFound("объявление не найдено")
	}
	c := cloneItem(item)
	return &c, nil
}

func (s *MemStore) GetItems(_ context.Context, itemIDs []uuid.UUID) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.Item
	for _, id := range itemIDs {
		if item, ok := s.items[id]; ok {
			items = append(items, cloneItem(item))
		}
	}
	return items, nil
}

func (s *MemStore) UpdateItem(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[item.ID]
	if !ok {
		return apperr.NotFound("объявление не найдено")
	}
	item.OwnerID = stored.OwnerID
	item.CreatedAt = stored.CreatedAt
	item.UpdatedAt = s.now()
	s.items[item.ID] = cloneItem(*item)
	return nil
}

func (s *MemStore) DeleteItem(_ context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return apperr.NotFound("объявление не найдено")
	}
	delete(s.items, itemID)
	for k := range s.likes {
		if k.itemID == itemID {
			delete(s.likes, k)
		}
	}
	for k := range s.rejections {
		if k.itemID == itemID || k.myItemID == itemID {
			delete(s.rejections, k)
		}
	}
	return nil
}

func (s *MemStore) ListItemsByOwner(_ context.Context, ownerID uuid.UUID, status string, limit, offset int) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.Item
	for _, item := range s.items {
		if item.OwnerID == ownerID && (status == "" || item.Status == status) {
			items = append(items, cloneItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.After(items[j].UpdatedAt) })
	return page(items, limit, offset), nil
}

func (s *MemStore) ListCandidatePool(_ context.Context, q db.CandidateQuery) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.Item
	for _, item := range s.items {
		if !item.IsCandidate() || item.OwnerID == q.ViewerID {
			continue
		}
		if slices.Contains(q.ExcludeOwners, item.OwnerID) || slices.Contains(q.ExcludeItems, item.ID) {
			continue
		}
		items = append(items, cloneItem(item))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

// Likes

func (s *MemStore) InsertLike(_ context.Context, userID, itemID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := likeKey{userID, itemID}
	if _, ok := s.likes[k]; ok {
		return false, nil
	}
	s.likes[k] = models.Like{UserID: userID, ItemID: itemID, CreatedAt: s.now()}
	return true, nil
}

func (s *MemStore) DeleteLike(_ context.Context, userID, itemID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := likeKey{userID, itemID}
	if _, ok := s.likes[k]; !ok {
		return false, nil
	}
	delete(s.likes, k)
	return true, nil
}

func (s *MemStore) LikeExists(_ context.Context, userID, itemID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.likes[likeKey{userID, itemID}]
	return ok, nil
}

func (s *MemStore) LikesByUser(_ context.Context, userID uuid.UUID) ([]models.LikedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var likes []models.LikedItem
	for k, like := range s.likes {
		if k.userID != userID {
			continue
		}
		item, ok := s.items[k.itemID]
		if !ok {
			continue
		}
		likes = append(likes, models.LikedItem{Like: like, OwnerID: item.OwnerID})
	}
	sort.Slice(likes, func(i, j int) bool { return likes[i].CreatedAt.Before(likes[j].CreatedAt) })
	return likes, nil
}

func (s *MemStore) LikesOnItemsOwnedBy(_ context.Context, likerID, ownerID uuid.UUID) ([]models.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var likes []models.Like
	for k, like := range s.likes {
		if k.userID != likerID {
			continue
		}
		if item, ok := s.items[k.itemID]; ok && item.OwnerID == ownerID {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool { return likes[i].CreatedAt.Before(likes[j].CreatedAt) })
	return likes, nil
}

// Rejections

func rejKey(userID, itemID uuid.UUID, myItemID *uuid.UUID) rejectionKey {
	k := rejectionKey{userID: userID, itemID: itemID}
	if myItemID != nil {
		k.myItemID = *myItemID
	}
	return k
}

func (s *MemStore) RejectionExists(_ context.Context, userID, itemID uuid.UUID, myItemID *uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.rejections[rejKey(userID, itemID, myItemID)]
	return ok, nil
}

func (s *MemStore) InsertRejection(_ context.Context, rej *models.Rejection) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := rejKey(rej.UserID, rej.ItemID, rej.MyItemID)
	if _, ok := s.rejections[k]; ok {
		return false, nil
	}
	rej.CreatedAt = s.now()
	s.rejections[k] = *rej
	return true, nil
}

func (s *MemStore) DeleteGlobalRejection(_ context.Context, userID, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.DeleteGlobalRejectionErr != nil {
		return s.DeleteGlobalRejectionErr
	}
	delete(s.rejections, rejKey(userID, itemID, nil))
	return nil
}

func (s *MemStore) RejectedItemIDs(_ context.Context, userID uuid.UUID, lensItemID *uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for _, rej := range s.rejections {
		if rej.UserID != userID {
			continue
		}
		if rej.MyItemID == nil || (lensItemID != nil && *rej.MyItemID == *lensItemID) {
			if !slices.Contains(ids, rej.ItemID) {
				ids = append(ids, rej.ItemID)
			}
		}
	}
	return ids, nil
}

// Rejections возвращает все отказы пользователя (для проверок в тестах)
func (s *MemStore) Rejections(userID uuid.UUID) []models.Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Rejection
	for _, rej := range s.rejections {
		if rej.UserID == userID {
			out = append(out, rej)
		}
	}
	return out
}

// Blocks

func (s *MemStore) InsertBlock(_ context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := blockKey{blockerID, blockedID}
	if _, ok := s.blocks[k]; ok {
		return false, nil
	}
	s.blocks[k] = models.Block{BlockerID: blockerID, BlockedID: blockedID, CreatedAt: s.now()}
	return true, nil
}

func (s *MemStore) DeleteBlock(_ context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := blockKey{blockerID, blockedID}
	if _, ok := s.blocks[k]; !ok {
		return false, nil
	}
	delete(s.blocks, k)
	return true, nil
}

func (s *MemStore) BlocksByUser(_ context.Context, blockerID uuid.UUID) ([]models.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocks []models.Block
	for k, b := range s.blocks {
		if k.blockerID == blockerID {
			blocks = append(blocks, b)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].CreatedAt.After(blocks[j].CreatedAt) })
	return blocks, nil
}

func (s *MemStore) BlockedIDs(_ context.Context, blockerID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for k := range s.blocks {
		if k.blockerID == blockerID {
			ids = append(ids, k.blockedID)
		}
	}
	return ids, nil
}

func (s *MemStore) BlockersOf(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for k := range s.blocks {
		if k.blockedID == userID {
			ids = append(ids, k.blockerID)
		}
	}
	return ids, nil
}

// Trades

func (s *MemStore) CreateTrade(_ context.Context, t *models.TradeConversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.trades[t.ID] = cloneTrade(*t)
	return nil
}

func (s *MemStore) GetTrade(_ context.Context, tradeID uuid.UUID) (*models.TradeConversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trades[tradeID]
	if !ok {
		return nil, apperr.NotFound("предложение обмена не найдено")
	}
	c := cloneTrade(t)
	return &c, nil
}

func (s *MemStore) ListTrades(_ context.Context, userID uuid.UUID, status string) ([]models.TradeConversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var trades []models.TradeConversation
	for _, t := range s.trades {
		if t.IsParticipant(userID) && (status == "" || t.Status == status) {
			trades = append(trades, cloneTrade(t))
		}
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].UpdatedAt.After(trades[j].UpdatedAt) })
	return trades, nil
}

func (s *MemStore) UpdateTradeGuarded(_ context.Context, t *models.TradeConversation, expectedStatus string, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.trades[t.ID]
	if !ok || stored.Status != expectedStatus || stored.Version != expectedVersion {
		return apperr.Conflict("предложение обмена было изменено другим участником")
	}
	t.Version = expectedVersion + 1
	t.UpdatedAt = s.now()
	t.CreatedAt = stored.CreatedAt
	s.trades[t.ID] = cloneTrade(*t)
	return nil
}

func (s *MemStore) LockedItemIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for _, t := range s.trades {
		if !t.IsParticipant(userID) || t.IsTerminal() {
			continue
		}
		ids = append(ids, t.RequesterItemIDs...)
		ids = append(ids, t.OwnerItemIDs...)
	}
	return ids, nil
}

// Reviews

func (s *MemStore) InsertReview(_ context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := reviewKey{review.ConversationID, review.ReviewerID}
	if _, ok := s.reviews[k]; ok {
		return apperr.Conflict("отзыв по этому обмену уже оставлен")
	}
	review.CreatedAt = s.now()
	s.reviews[k] = *review
	return nil
}

func (s *MemStore) ReviewExists(_ context.Context, conversationID, reviewerID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.reviews[reviewKey{conversationID, reviewerID}]
	return ok, nil
}

func (s *MemStore) ReviewsForUser(_ context.Context, revieweeID uuid.UUID) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reviews []models.Review
	for _, r := range s.reviews {
		if r.RevieweeID == revieweeID {
			reviews = append(reviews, r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

// SetTradeCompletedAt переписывает время завершения обмена (для тестов окна отзывов)
func (s *MemStore) SetTradeCompletedAt(tradeID uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.trades[tradeID]
	t.CompletedAt = &at
	s.trades[tradeID] = t
}

func cloneItem(item models.Item) models.Item {
	item.Tags = slices.Clone(item.Tags)
	item.ImageURLs = slices.Clone(item.ImageURLs)
	item.LookingFor.Categories = slices.Clone(item.LookingFor.Categories)
	item.LookingFor.Conditions = slices.Clone(item.LookingFor.Conditions)
	return item
}

func cloneTrade(t models.TradeConversation) models.TradeConversation {
	t.RequesterItemIDs = slices.Clone(t.RequesterItemIDs)
	t.OwnerItemIDs = slices.Clone(t.OwnerItemIDs)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	return t
}

func page(items []models.Item, limit, offset int) []models.Item {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

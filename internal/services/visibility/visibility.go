// Package visibility вычисляет, какие владельцы и вещи скрыты от пользователя.
// Множества пересчитываются на каждый запрос и не кэшируются.
package visibility

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Store источник блокировок и отказов
type Store interface {
	BlockersOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	BlockedIDs(ctx context.Context, blockerID uuid.UUID) ([]uuid.UUID, error)
	RejectedItemIDs(ctx context.Context, userID uuid.UUID, lensItemID *uuid.UUID) ([]uuid.UUID, error)
}

// Set множество идентификаторов
type Set map[uuid.UUID]struct{}

// Has проверяет принадлежность
func (s Set) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Slice возвращает элементы множества; для пустого множества пустой срез, не nil
func (s Set) Slice() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

func newSet(groups ...[]uuid.UUID) Set {
	s := make(Set)
	for _, g := range groups {
		for _, id := range g {
			s[id] = struct{}{}
		}
	}
	return s
}

// Filter фильтр видимости
type Filter struct {
	store Store
}

// NewFilter создает фильтр
func NewFilter(store Store) *Filter {
	return &Filter{store: store}
}

// ExcludedOwners пользователи, заблокированные зрителем, и пользователи, заблокировавшие его
func (f *Filter) ExcludedOwners(ctx context.Context, viewerID uuid.UUID) (Set, error) {
	blockedByMe, err := f.store.BlockedIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения блокировок: %w", err)
	}
	blockedMe, err := f.store.BlockersOf(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения блокировок: %w", err)
	}
	return newSet(blockedByMe, blockedMe), nil
}

// ExcludedItems вещи, от которых зритель отказался глобально или для lensItemID
func (f *Filter) ExcludedItems(ctx context.Context, viewerID uuid.UUID, lensItemID *uuid.UUID) (Set, error) {
	ids, err := f.store.RejectedItemIDs(ctx, viewerID, lensItemID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения отказов: %w", err)
	}
	return newSet(ids), nil
}

// CanInteract false, если один из пользователей заблокировал другого
func (f *Filter) CanInteract(ctx context.Context, a, b uuid.UUID) (bool, error) {
	excluded, err := f.ExcludedOwners(ctx, a)
	if err != nil {
		return false, err
	}
	return !excluded.Has(b), nil
}

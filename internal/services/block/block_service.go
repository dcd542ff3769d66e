// Package block управляет блокировками пользователей
package block

import (
	"context"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

// Store хранилище блокировок
type Store interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	InsertBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
	DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error)
	BlocksByUser(ctx context.Context, blockerID uuid.UUID) ([]models.Block, error)
}

// BlockService сервис блокировок
type BlockService struct {
	store Store
}

// NewBlockService создает сервис
func NewBlockService(store Store) *BlockService {
	return &BlockService{store: store}
}

// Block блокирует пользователя; повторная блокировка не ошибка
func (s *BlockService) Block(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	if blockerID == blockedID {
		return apperr.Validation("нельзя заблокировать самого себя")
	}
	if _, err := s.store.GetUser(ctx, blockedID); err != nil {
		return err
	}
	_, err := s.store.InsertBlock(ctx, blockerID, blockedID)
	return err
}

// Unblock снимает блокировку
func (s *BlockService) Unblock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	deleted, err := s.store.DeleteBlock(ctx, blockerID, blockedID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("блокировка не найдена")
	}
	return nil
}

// ListBlocked возвращает пользователей, заблокированных blockerID
func (s *BlockService) ListBlocked(ctx context.Context, blockerID uuid.UUID) ([]models.Block, error) {
	blocks, err := s.store.BlocksByUser(ctx, blockerID)
	if err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []models.Block{}
	}
	return blocks, nil
}

package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/models"
)

// InsertBlock создает блокировку, повторная блокировка возвращает false
func (r *Repository) InsertBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO user_blocks (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("ошибка блокировки пользователя: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteBlock снимает блокировку
func (r *Repository) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2
	`, blockerID, blockedID)
	if err != nil {
		return false, fmt.Errorf("ошибка снятия блокировки: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// BlocksByUser возвращает блокировки, созданные пользователем
func (r *Repository) BlocksByUser(ctx context.Context, blockerID uuid.UUID) ([]models.Block, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT blocker_id, blocked_id, created_at FROM user_blocks
		WHERE blocker_id = $1
		ORDER BY created_at DESC
	`, blockerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса блокировок: %w", err)
	}
	defer rows.Close()

	var blocks []models.Block
	for rows.Next() {
		var b models.Block
		if err := rows.Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования блокировки: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// BlockersOf возвращает пользователей, заблокировавших userID
func (r *Repository) BlockersOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT blocker_id FROM user_blocks WHERE blocked_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса блокировок: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования блокировки: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BlockedIDs возвращает пользователей, заблокированных blockerID
func (r *Repository) BlockedIDs(ctx context.Context, blockerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT blocked_id FROM user_blocks WHERE blocker_id = $1`, blockerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса блокировок: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования блокировки: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

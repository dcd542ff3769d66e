package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/models"
)

// InsertLike добавляет лайк; повторный лайк ничего не меняет и возвращает false
func (r *Repository) InsertLike(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO item_likes (user_id, item_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, item_id) DO NOTHING
	`, userID, itemID)
	if err != nil {
		return false, fmt.Errorf("ошибка добавления лайка: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteLike удаляет лайк, возвращает false если его не было
func (r *Repository) DeleteLike(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM item_likes WHERE user_id = $1 AND item_id = $2`, userID, itemID)
	if err != nil {
		return false, fmt.Errorf("ошибка удаления лайка: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LikeExists проверяет наличие лайка
func (r *Repository) LikeExists(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM item_likes WHERE user_id = $1 AND item_id = $2)
	`, userID, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки лайка: %w", err)
	}
	return exists, nil
}

// LikesByUser возвращает лайки пользователя вместе с владельцами вещей, в порядке добавления
func (r *Repository) LikesByUser(ctx context.Context, userID uuid.UUID) ([]models.LikedItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.user_id, l.item_id, l.created_at, i.owner_id
		FROM item_likes l
		JOIN items i ON i.id = l.item_id
		WHERE l.user_id = $1
		ORDER BY l.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса лайков: %w", err)
	}
	defer rows.Close()

	var likes []models.LikedItem
	for rows.Next() {
		var like models.LikedItem
		if err := rows.Scan(&like.UserID, &like.ItemID, &like.CreatedAt, &like.OwnerID); err != nil {
			return nil, fmt.Errorf("ошибка сканирования лайка: %w", err)
		}
		likes = append(likes, like)
	}
	return likes, rows.Err()
}

// LikesOnItemsOwnedBy возвращает лайки likerID на вещи, принадлежащие ownerID
func (r *Repository) LikesOnItemsOwnedBy(ctx context.Context, likerID, ownerID uuid.UUID) ([]models.Like, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.user_id, l.item_id, l.created_at
		FROM item_likes l
		JOIN items i ON i.id = l.item_id
		WHERE l.user_id = $1 AND i.owner_id = $2
		ORDER BY l.created_at ASC
	`, likerID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса лайков: %w", err)
	}
	defer rows.Close()

	var likes []models.Like
	for rows.Next() {
		var like models.Like
		if err := rows.Scan(&like.UserID, &like.ItemID, &like.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования лайка: %w", err)
		}
		likes = append(likes, like)
	}
	return likes, rows.Err()
}

// RejectionExists проверяет наличие отказа с точно такой же тройкой (user, item, myItem)
func (r *Repository) RejectionExists(ctx context.Context, userID, itemID uuid.UUID, myItemID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM item_rejections
			WHERE user_id = $1 AND item_id = $2 AND my_item_id IS NOT DISTINCT FROM $3
		)
	`, userID, itemID, myItemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки отказа: %w", err)
	}
	return exists, nil
}

// InsertRejection сохраняет отказ; гонка на уникальном индексе считается успехом и возвращает false
func (r *Repository) InsertRejection(ctx context.Context, rej *models.Rejection) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO item_rejections (id, user_id, item_id, my_item_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, rej.ID, rej.UserID, rej.ItemID, rej.MyItemID)
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения отказа: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteGlobalRejection удаляет глобальный отказ (my_item_id IS NULL) для пары (user, item)
func (r *Repository) DeleteGlobalRejection(ctx context.Context, userID, itemID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM item_rejections
		WHERE user_id = $1 AND item_id = $2 AND my_item_id IS NULL
	`, userID, itemID)
	if err != nil {
		return fmt.Errorf("ошибка удаления глобального отказа: %w", err)
	}
	return nil
}

// RejectedItemIDs возвращает вещи, от которых пользователь отказался глобально или для lensItemID
func (r *Repository) RejectedItemIDs(ctx context.Context, userID uuid.UUID, lensItemID *uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT item_id FROM item_rejections
		WHERE user_id = $1 AND (my_item_id IS NULL OR my_item_id = $2)
	`, userID, lensItemID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса отказов: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования отказа: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

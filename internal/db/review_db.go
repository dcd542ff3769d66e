package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

// InsertReview сохраняет отзыв. Уникальность (conversation_id, reviewer_id) обеспечивает база
func (r *Repository) InsertReview(ctx context.Context, review *models.Review) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reviews (id, conversation_id, reviewer_id, reviewee_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, review.ID, review.ConversationID, review.ReviewerID, review.RevieweeID,
		review.Rating, review.Comment).Scan(&review.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("отзыв по этому обмену уже оставлен")
		}
		return fmt.Errorf("ошибка сохранения отзыва: %w", err)
	}
	return nil
}

// ReviewExists проверяет, оставлял ли участник отзыв по обмену
func (r *Repository) ReviewExists(ctx context.Context, conversationID, reviewerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM reviews WHERE conversation_id = $1 AND reviewer_id = $2)
	`, conversationID, reviewerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки отзыва: %w", err)
	}
	return exists, nil
}

// ReviewsForUser возвращает отзывы, полученные пользователем
func (r *Repository) ReviewsForUser(ctx context.Context, revieweeID uuid.UUID) ([]models.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, reviewer_id, reviewee_id, rating, comment, created_at
		FROM reviews
		WHERE reviewee_id = $1
		ORDER BY created_at DESC
	`, revieweeID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса отзывов: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(&review.ID, &review.ConversationID, &review.ReviewerID, &review.RevieweeID,
			&review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования отзыва: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

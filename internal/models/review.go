package models

import (
	"time"

	"github.com/google/uuid"
)

// Review отзыв участника о завершённом обмене
type Review struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	ReviewerID     uuid.UUID `json:"reviewer_id"`
	RevieweeID     uuid.UUID `json:"reviewee_id"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewEligibility ответ на вопрос «можно ли оставить отзыв»
type ReviewEligibility struct {
	CanReview bool `json:"can_review"`
	DaysLeft  int  `json:"days_left"`
}

// ReviewSummary отзывы, полученные пользователем, и средняя оценка
type ReviewSummary struct {
	Reviews       []Review `json:"reviews"`
	Count         int      `json:"count"`
	AverageRating float64  `json:"average_rating"`
}

// Package review управляет отзывами по завершённым обменам. Окно отзывов
// вычисляется лениво из completed_at при каждом чтении и записи.
package review

import (
	"context"
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

const (
	// WindowDays сколько дней после завершения обмена можно оставить отзыв
	WindowDays = 30
	// MaxCommentLength максимальная длина комментария в символах
	MaxCommentLength = 140
)

// Store хранилище отзывов и обменов
type Store interface {
	GetTrade(ctx context.Context, tradeID uuid.UUID) (*models.TradeConversation, error)
	InsertReview(ctx context.Context, review *models.Review) error
	ReviewExists(ctx context.Context, conversationID, reviewerID uuid.UUID) (bool, error)
	ReviewsForUser(ctx context.Context, revieweeID uuid.UUID) ([]models.Review, error)
}

// ReviewService окно отзывов
type ReviewService struct {
	store Store
	now   func() time.Time
}

// NewReviewService создает сервис
func NewReviewService(store Store) *ReviewService {
	return &ReviewService{store: store, now: time.Now}
}

// IsEligible сообщает, может ли reviewerID оставить отзыв, и сколько дней осталось
func (s *ReviewService) IsEligible(ctx context.Context, conversationID, reviewerID uuid.UUID) (models.ReviewEligibility, error) {
	t, err := s.store.GetTrade(ctx, conversationID)
	if err != nil {
		return models.ReviewEligibility{}, err
	}
	return s.eligibility(ctx, t, reviewerID)
}

func (s *ReviewService) eligibility(ctx context.Context, t *models.TradeConversation, reviewerID uuid.UUID) (models.ReviewEligibility, error) {
	if t.Status != models.TradeStatusCompleted || t.CompletedAt == nil || !t.IsParticipant(reviewerID) {
		return models.ReviewEligibility{}, nil
	}

	daysLeft := daysLeft(s.now(), *t.CompletedAt)
	if daysLeft == 0 {
		return models.ReviewEligibility{}, nil
	}

	exists, err := s.store.ReviewExists(ctx, t.ID, reviewerID)
	if err != nil {
		return models.ReviewEligibility{}, err
	}
	if exists {
		return models.ReviewEligibility{DaysLeft: daysLeft}, nil
	}
	return models.ReviewEligibility{CanReview: true, DaysLeft: daysLeft}, nil
}

// daysLeft = max(0, 30 - полных прошедших дней); ровно на 30-й день окно закрыто
func daysLeft(now, completedAt time.Time) int {
	elapsed := int(math.Floor(now.Sub(completedAt).Hours() / 24))
	if elapsed < 0 {
		elapsed = 0
	}
	left := WindowDays - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// SubmitInput данные отзыва
type SubmitInput struct {
	ConversationID uuid.UUID
	ReviewerID     uuid.UUID
	Rating         int
	Comment        string
}

// Submit сохраняет отзыв, заново проверяя право на него в момент записи.
// Одновременные отправки одного участника отсекает уникальный индекс хранилища
func (s *ReviewService) Submit(ctx context.Context, in SubmitInput) (*models.Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("оценка должна быть от 1 до 5")
	}
	if utf8.RuneCountInString(in.Comment) > MaxCommentLength {
		return nil, apperr.Validation("комментарий длиннее %d символов", MaxCommentLength)
	}

	t, err := s.store.GetTrade(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if !t.IsParticipant(in.ReviewerID) {
		return nil, apperr.Authorization("вы не участник этого обмена")
	}
	if t.Status != models.TradeStatusCompleted || t.CompletedAt == nil {
		return nil, apperr.Validation("отзыв можно оставить только после завершения обмена")
	}

	elig, err := s.eligibility(ctx, t, in.ReviewerID)
	if err != nil {
		return nil, err
	}
	if !elig.CanReview {
		if elig.DaysLeft == 0 {
			return nil, apperr.Validation("срок для отзыва истёк")
		}
		return nil, apperr.Conflict("отзыв по этому обмену уже оставлен")
	}

	r := &models.Review{
		ID:             uuid.New(),
		ConversationID: t.ID,
		ReviewerID:     in.ReviewerID,
		RevieweeID:     t.Counterpart(in.ReviewerID),
		Rating:         in.Rating,
		Comment:        in.Comment,
	}
	if err := s.store.InsertReview(ctx, r); err != nil {
		return nil, err
	}

	logger.WithField("trade_id", t.ID).Infof("Отзыв от %s: %d", in.ReviewerID, in.Rating)
	return r, nil
}

// ListForUser возвращает полученные пользователем отзывы и средний рейтинг
func (s *ReviewService) ListForUser(ctx context.Context, userID uuid.UUID) (models.ReviewSummary, error) {
	reviews, err := s.store.ReviewsForUser(ctx, userID)
	if err != nil {
		return models.ReviewSummary{}, err
	}
	if reviews == nil {
		reviews = []models.Review{}
	}

	summary := models.ReviewSummary{Reviews: reviews, Count: len(reviews)}
	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		summary.AverageRating = math.Round(float64(total)/float64(len(reviews))*10) / 10
	}
	return summary, nil
}

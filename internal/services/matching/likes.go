package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/internal/notify"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

// Like фиксирует интерес пользователя к вещи и возвращает совпадения, которые она образует.
// Повторный лайк ничего не меняет и уведомления не дублирует
func (e *Engine) Like(ctx context.Context, userID, itemID uuid.UUID) ([]models.Match, error) {
	item, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == userID {
		return nil, apperr.Validation("нельзя лайкнуть собственную вещь")
	}
	if item.Status != models.ItemStatusPublished {
		return nil, apperr.NotFound("объявление не найдено")
	}

	ok, err := e.visibility.CanInteract(ctx, userID, item.OwnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("объявление не найдено")
	}

	inserted, err := e.store.InsertLike(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	// Взаимность: лайки владельца на вещи пользователя
	reciprocal, err := e.store.LikesOnItemsOwnedBy(ctx, item.OwnerID, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки взаимности: %w", err)
	}

	matches := make([]models.Match, 0, len(reciprocal))
	if len(reciprocal) == 0 {
		return matches, nil
	}

	myLikedAt, err := e.likedAt(ctx, userID, item.OwnerID, itemID)
	if err != nil {
		return nil, err
	}
	for _, their := range reciprocal {
		matches = append(matches, models.Match{
			MyItemID:    their.ItemID,
			TheirItemID: itemID,
			OtherUserID: item.OwnerID,
			MatchedAt:   later(myLikedAt, their.CreatedAt),
		})
	}

	if inserted {
		for _, m := range matches {
			e.publishMatch(ctx, userID, m)
		}
		if len(matches) > 0 {
			logger.WithField("user_id", userID).Infof("Лайк на %s создал совпадений: %d", itemID, len(matches))
		}
	}
	return matches, nil
}

// likedAt время лайка userID на вещь itemID владельца ownerID
func (e *Engine) likedAt(ctx context.Context, userID, ownerID, itemID uuid.UUID) (time.Time, error) {
	likes, err := e.store.LikesOnItemsOwnedBy(ctx, userID, ownerID)
	if err != nil {
		return time.Time{}, fmt.Errorf("ошибка получения лайка: %w", err)
	}
	for _, l := range likes {
		if l.ItemID == itemID {
			return l.CreatedAt, nil
		}
	}
	return time.Time{}, nil
}

// later совпадение возникает в момент второго из двух лайков
func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func (e *Engine) publishMatch(ctx context.Context, userID uuid.UUID, m models.Match) {
	e.sink.Publish(ctx, notify.Event{
		Type:   notify.EventMatchCreated,
		UserID: userID,
		Payload: map[string]any{
			"my_item_id":    m.MyItemID,
			"their_item_id": m.TheirItemID,
			"other_user_id": m.OtherUserID,
		},
	})
	e.sink.Publish(ctx, notify.Event{
		Type:   notify.EventMatchCreated,
		UserID: m.OtherUserID,
		Payload: map[string]any{
			"my_item_id":    m.TheirItemID,
			"their_item_id": m.MyItemID,
			"other_user_id": userID,
		},
	})
}

// Unlike снимает лайк
func (e *Engine) Unlike(ctx context.Context, userID, itemID uuid.UUID) error {
	deleted, err := e.store.DeleteLike(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("лайк не найден")
	}
	return nil
}

// IsMutual true, если userA лайкнул itemB, а userB лайкнул itemA; порядок лайков не важен
func (e *Engine) IsMutual(ctx context.Context, userA, itemB, userB, itemA uuid.UUID) (bool, error) {
	ab, err := e.store.LikeExists(ctx, userA, itemB)
	if err != nil || !ab {
		return false, err
	}
	return e.store.LikeExists(ctx, userB, itemA)
}

// Matches вычисляет совпадения пользователя из лайков при каждом чтении
func (e *Engine) Matches(ctx context.Context, userID uuid.UUID) ([]models.Match, error) {
	myLikes, err := e.store.LikesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded, err := e.visibility.ExcludedOwners(ctx, userID)
	if err != nil {
		return nil, err
	}

	byOwner := make(map[uuid.UUID][]models.LikedItem)
	for _, l := range myLikes {
		if excluded.Has(l.OwnerID) {
			continue
		}
		byOwner[l.OwnerID] = append(byOwner[l.OwnerID], l)
	}

	matches := make([]models.Match, 0)
	for ownerID, mine := range byOwner {
		theirs, err := e.store.LikesOnItemsOwnedBy(ctx, ownerID, userID)
		if err != nil {
			return nil, err
		}
		for _, my := range mine {
			for _, their := range theirs {
				matches = append(matches, models.Match{
					MyItemID:    their.ItemID,
					TheirItemID: my.ItemID,
					OtherUserID: ownerID,
					MatchedAt:   later(my.CreatedAt, their.CreatedAt),
				})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].MatchedAt.Equal(matches[j].MatchedAt) {
			return matches[i].MatchedAt.After(matches[j].MatchedAt)
		}
		return matches[i].TheirItemID.String() < matches[j].TheirItemID.String()
	})
	return matches, nil
}

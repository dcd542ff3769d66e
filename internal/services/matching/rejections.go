package matching

import (
	"context"

	"github.com/google/uuid"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
	"github.com/rajivgeraev/flippy-trade/pkg/logger"
)

// RejectItem скрывает itemID от пользователя: глобально (myItemID == nil)
// или только когда линзой выбрана его вещь myItemID
func (e *Engine) RejectItem(ctx context.Context, userID, itemID uuid.UUID, myItemID *uuid.UUID) error {
	item, err := e.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID == userID {
		return apperr.Validation("нельзя отказаться от собственной вещи")
	}

	if myItemID != nil {
		mine, err := e.store.GetItem(ctx, *myItemID)
		if err != nil {
			return err
		}
		if mine.OwnerID != userID {
			return apperr.Authorization("вещь %s вам не принадлежит", *myItemID)
		}
	}

	exists, err := e.store.RejectionExists(ctx, userID, itemID, myItemID)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := e.store.InsertRejection(ctx, &models.Rejection{
			ID:       uuid.New(),
			UserID:   userID,
			ItemID:   itemID,
			MyItemID: myItemID,
		}); err != nil {
			return err
		}
	}

	// Парный отказ заменяет глобальный, в том числе добавленный после него.
	// Ошибка очистки не критична: парный отказ и так исключает вещь для этой линзы
	if myItemID != nil {
		if err := e.store.DeleteGlobalRejection(ctx, userID, itemID); err != nil {
			logger.Warnf("Не удалось удалить глобальный отказ (%s, %s): %v", userID, itemID, err)
		}
	}
	return nil
}

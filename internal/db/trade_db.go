package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

const tradeColumns = `id, requester_id, owner_id, requester_item_ids, owner_item_ids,
	requester_accepted, owner_accepted, status, message, version, created_at, updated_at, completed_at`

// CreateTrade сохраняет новое предложение обмена
func (r *Repository) CreateTrade(ctx context.Context, t *models.TradeConversation) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO trade_conversations (id, requester_id, owner_id, requester_item_ids, owner_item_ids,
			requester_accepted, owner_accepted, status, message, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, t.ID, t.RequesterID, t.OwnerID, t.RequesterItemIDs, t.OwnerItemIDs,
		t.RequesterAccepted, t.OwnerAccepted, t.Status, t.Message, t.Version).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания предложения обмена: %w", err)
	}
	return nil
}

// GetTrade возвращает обмен по ID
func (r *Repository) GetTrade(ctx context.Context, tradeID uuid.UUID) (*models.TradeConversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trade_conversations WHERE id = $1`, tradeID)

	t, err := scanTrade(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("предложение обмена не найдено")
		}
		return nil, fmt.Errorf("ошибка получения предложения обмена: %w", err)
	}
	return t, nil
}

// ListTrades возвращает обмены пользователя, status == "" означает все статусы
func (r *Repository) ListTrades(ctx context.Context, userID uuid.UUID, status string) ([]models.TradeConversation, error) {
	var rows pgx.Rows
	var err error

	if status == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT `+tradeColumns+` FROM trade_conversations
			WHERE requester_id = $1 OR owner_id = $1
			ORDER BY updated_at DESC
		`, userID)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+tradeColumns+` FROM trade_conversations
			WHERE (requester_id = $1 OR owner_id = $1) AND status = $2
			ORDER BY updated_at DESC
		`, userID, status)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса предложений обмена: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeConversation
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// UpdateTradeGuarded записывает новое состояние обмена, только если в базе всё ещё
// expectedStatus и expectedVersion. Ноль затронутых строк означает конкурентный переход
func (r *Repository) UpdateTradeGuarded(ctx context.Context, t *models.TradeConversation, expectedStatus string, expectedVersion int) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE trade_conversations
		SET requester_item_ids = $1, owner_item_ids = $2,
			requester_accepted = $3, owner_accepted = $4,
			status = $5, completed_at = $6,
			version = version + 1, updated_at = NOW()
		WHERE id = $7 AND status = $8 AND version = $9
		RETURNING version, updated_at
	`, t.RequesterItemIDs, t.OwnerItemIDs, t.RequesterAccepted, t.OwnerAccepted,
		t.Status, t.CompletedAt, t.ID, expectedStatus, expectedVersion).Scan(&t.Version, &t.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return apperr.Conflict("предложение обмена было изменено другим участником")
		}
		return fmt.Errorf("ошибка обновления предложения обмена: %w", err)
	}
	return nil
}

// LockedItemIDs возвращает вещи, участвующие в незавершённых обменах пользователя
func (r *Repository) LockedItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT unnest(requester_item_ids || owner_item_ids)
		FROM trade_conversations
		WHERE (requester_id = $1 OR owner_id = $1) AND status IN ('pending', 'accepted')
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса заблокированных вещей: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTrade(row pgx.Row) (*models.TradeConversation, error) {
	var t models.TradeConversation
	err := row.Scan(
		&t.ID,
		&t.RequesterID,
		&t.OwnerID,
		&t.RequesterItemIDs,
		&t.OwnerItemIDs,
		&t.RequesterAccepted,
		&t.OwnerAccepted,
		&t.Status,
		&t.Message,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

const itemColumns = `id, owner_id, title, description, category, condition, tags, price_min, price_max,
	is_available, status, is_hidden, looking_for_categories, looking_for_conditions,
	looking_for_price_min, looking_for_price_max, looking_for_text, image_urls, created_at, updated_at`

// CandidateQuery параметры выборки пула кандидатов
type CandidateQuery struct {
	ViewerID      uuid.UUID
	ExcludeOwners []uuid.UUID
	ExcludeItems  []uuid.UUID
}

// CreateItem сохраняет новое объявление
func (r *Repository) CreateItem(ctx context.Context, item *models.Item) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO items (id, owner_id, title, description, category, condition, tags, price_min, price_max,
			is_available, status, is_hidden, looking_for_categories, looking_for_conditions,
			looking_for_price_min, looking_for_price_max, looking_for_text, image_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`, item.ID, item.OwnerID, item.Title, item.Description, item.Category, item.Condition,
		nonNilStrings(item.Tags), item.Price.Min, item.Price.Max, item.IsAvailable, item.Status, item.IsHidden,
		nonNilStrings(item.LookingFor.Categories), nonNilStrings(item.LookingFor.Conditions),
		item.LookingFor.Price.Min, item.LookingFor.Price.Max, item.LookingFor.Text,
		nonNilStrings(item.ImageURLs)).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка вставки объявления: %w", err)
	}
	return nil
}

// GetItem возвращает объявление по ID
func (r *Repository) GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, itemID)

	item, err := scanItem(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("объявление не найдено")
		}
		return nil, fmt.Errorf("ошибка получения объявления: %w", err)
	}
	return item, nil
}

// GetItems возвращает объявления по списку ID; отсутствующие пропускаются
func (r *Repository) GetItems(ctx context.Context, itemIDs []uuid.UUID) ([]models.Item, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1)`, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	return collectItems(rows)
}

// UpdateItem перезаписывает изменяемые поля объявления
func (r *Repository) UpdateItem(ctx context.Context, item *models.Item) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE items
		SET title = $1, description = $2, category = $3, condition = $4, tags = $5,
			price_min = $6, price_max = $7, is_available = $8, status = $9, is_hidden = $10,
			looking_for_categories = $11, looking_for_conditions = $12,
			looking_for_price_min = $13, looking_for_price_max = $14, looking_for_text = $15,
			image_urls = $16, updated_at = NOW()
		WHERE id = $17
		RETURNING updated_at
	`, item.Title, item.Description, item.Category, item.Condition, nonNilStrings(item.Tags),
		item.Price.Min, item.Price.Max, item.IsAvailable, item.Status, item.IsHidden,
		nonNilStrings(item.LookingFor.Categories), nonNilStrings(item.LookingFor.Conditions),
		item.LookingFor.Price.Min, item.LookingFor.Price.Max, item.LookingFor.Text,
		nonNilStrings(item.ImageURLs), item.ID).Scan(&item.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return apperr.NotFound("объявление не найдено")
		}
		return fmt.Errorf("ошибка обновления объявления: %w", err)
	}
	return nil
}

// DeleteItem удаляет объявление; лайки и отказы удаляются каскадно
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("ошибка удаления объявления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("объявление не найдено")
	}
	return nil
}

// ListItemsByOwner возвращает объявления владельца, status == "" означает все статусы
func (r *Repository) ListItemsByOwner(ctx context.Context, ownerID uuid.UUID, status string, limit, offset int) ([]models.Item, error) {
	var rows pgx.Rows
	var err error

	if status == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT `+itemColumns+` FROM items
			WHERE owner_id = $1
			ORDER BY updated_at DESC
			LIMIT $2 OFFSET $3
		`, ownerID, limit, offset)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+itemColumns+` FROM items
			WHERE owner_id = $1 AND status = $2
			ORDER BY updated_at DESC
			LIMIT $3 OFFSET $4
		`, ownerID, status, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	return collectItems(rows)
}

// ListCandidatePool выбирает опубликованные, доступные и не скрытые чужие объявления
func (r *Repository) ListCandidatePool(ctx context.Context, q CandidateQuery) ([]models.Item, error) {
	// nil-срез кодируется как NULL, а NOT (x = ANY(NULL)) отбросил бы все строки
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE status = 'published' AND is_available AND NOT is_hidden
			AND owner_id <> $1
			AND NOT (owner_id = ANY($2))
			AND NOT (id = ANY($3))
		ORDER BY created_at DESC, id
	`, q.ViewerID, nonNilIDs(q.ExcludeOwners), nonNilIDs(q.ExcludeItems))
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса кандидатов: %w", err)
	}
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]models.Item, error) {
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования объявления: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&item.Description,
		&item.Category,
		&item.Condition,
		&item.Tags,
		&item.Price.Min,
		&item.Price.Max,
		&item.IsAvailable,
		&item.Status,
		&item.IsHidden,
		&item.LookingFor.Categories,
		&item.LookingFor.Conditions,
		&item.LookingFor.Price.Min,
		&item.LookingFor.Price.Max,
		&item.LookingFor.Text,
		&item.ImageURLs,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

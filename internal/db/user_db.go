package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

// TelegramProfile данные пользователя, полученные из initData Telegram
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}

const userColumns = `id, username, first_name, last_name, email, location, role, created_at`

// UpsertTelegramUser создает нового пользователя через Telegram или обновляет существующего
func (r *Repository) UpsertTelegramUser(ctx context.Context, p TelegramProfile) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = NOW()
		RETURNING `+userColumns,
		p.TelegramID, p.Username, p.FirstName, p.LastName)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("ошибка при сохранении пользователя Telegram: %w", err)
	}
	return user, nil
}

// GetUser получает пользователя по ID
func (r *Repository) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)

	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperr.NotFound("пользователь не найден")
		}
		return nil, fmt.Errorf("ошибка при получении пользователя: %w", err)
	}
	return user, nil
}

// GetUserLocations возвращает сохранённые локации пользователей; пустые локации пропускаются
func (r *Repository) GetUserLocations(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	locations := make(map[uuid.UUID]string, len(userIDs))
	if len(userIDs) == 0 {
		return locations, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, location FROM users
		WHERE id = ANY($1) AND location IS NOT NULL AND location <> ''
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении локаций: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var location string
		if err := rows.Scan(&id, &location); err != nil {
			return nil, fmt.Errorf("ошибка сканирования локации: %w", err)
		}
		locations[id] = location
	}
	return locations, rows.Err()
}

// UpdateUserLocation сохраняет локацию пользователя (индекс, город или "lat,lng")
func (r *Repository) UpdateUserLocation(ctx context.Context, userID uuid.UUID, location string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET location = $1, updated_at = NOW() WHERE id = $2
	`, location, userID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении локации: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("пользователь не найден")
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var username, firstName, lastName, email, location pgtype.Text

	if err := row.Scan(&user.ID, &username, &firstName, &lastName, &email, &location,
		&user.Role, &user.CreatedAt); err != nil {
		return nil, err
	}

	// Преобразуем nullable поля
	user.Username = username.String
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.Email = email.String
	user.Location = location.String
	return &user, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Like запись интереса пользователя к чужой вещи
type Like struct {
	UserID    uuid.UUID `json:"user_id"`
	ItemID    uuid.UUID `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikedItem лайк вместе с владельцем вещи, нужен для вычисления совпадений
type LikedItem struct {
	Like
	OwnerID uuid.UUID `json:"owner_id"`
}

// Rejection отказ от вещи. MyItemID == nil означает глобальный отказ
type Rejection struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ItemID    uuid.UUID  `json:"item_id"`
	MyItemID  *uuid.UUID `json:"my_item_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsGlobal сообщает, действует ли отказ независимо от выбранной своей вещи
func (r *Rejection) IsGlobal() bool {
	return r.MyItemID == nil
}

// Block направленная блокировка; по эффекту она симметрична
type Block struct {
	BlockerID uuid.UUID `json:"blocker_id"`
	BlockedID uuid.UUID `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Match производная сущность: взаимный интерес двух вещей, не хранится отдельно
type Match struct {
	MyItemID    uuid.UUID `json:"my_item_id"`
	TheirItemID uuid.UUID `json:"their_item_id"`
	OtherUserID uuid.UUID `json:"other_user_id"`
	MatchedAt   time.Time `json:"matched_at"`
}

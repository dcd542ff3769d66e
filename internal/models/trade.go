package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы обмена
const (
	TradeStatusPending   = "pending"
	TradeStatusAccepted  = "accepted"
	TradeStatusCompleted = "completed"
	TradeStatusRejected  = "rejected"
	TradeStatusCancelled = "cancelled"
)

// TradeConversation переговоры об обмене между двумя пользователями
type TradeConversation struct {
	ID                uuid.UUID   `json:"id"`
	RequesterID       uuid.UUID   `json:"requester_id"`
	OwnerID           uuid.UUID   `json:"owner_id"`
	RequesterItemIDs  []uuid.UUID `json:"requester_item_ids"`
	OwnerItemIDs      []uuid.UUID `json:"owner_item_ids"`
	RequesterAccepted bool        `json:"requester_accepted"`
	OwnerAccepted     bool        `json:"owner_accepted"`
	Status            string      `json:"status"`
	Message           string      `json:"message,omitempty"`
	Version           int         `json:"version"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`
}

// IsTerminal сообщает, закрыт ли обмен окончательно
func (t *TradeConversation) IsTerminal() bool {
	switch t.Status {
	case TradeStatusCompleted, TradeStatusRejected, TradeStatusCancelled:
		return true
	}
	return false
}

// IsParticipant проверяет, участвует ли пользователь в обмене
func (t *TradeConversation) IsParticipant(userID uuid.UUID) bool {
	return userID == t.RequesterID || userID == t.OwnerID
}

// Counterpart возвращает второго участника
func (t *TradeConversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if userID == t.RequesterID {
		return t.OwnerID
	}
	return t.RequesterID
}

// User представляет минимальную информацию о пользователе для API
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Email     string    `json:"-"`
	Location  string    `json:"location,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы видимости объявления
const (
	ItemStatusDraft     = "draft"
	ItemStatusPublished = "published"
	ItemStatusRemoved   = "removed"
)

// Допустимые состояния вещи
var ValidConditions = map[string]bool{
	"new": true, "excellent": true, "good": true,
	"used": true, "needs_repair": true, "damaged": true,
}

// PriceRange диапазон цены, любая граница может отсутствовать
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Overlaps проверяет пересечение диапазонов; отсутствующая граница считается бесконечной
func (r PriceRange) Overlaps(other PriceRange) bool {
	if r.Min != nil && other.Max != nil && *r.Min > *other.Max {
		return false
	}
	if other.Min != nil && r.Max != nil && *other.Min > *r.Max {
		return false
	}
	return true
}

// LookingFor предпочтения владельца: что он готов получить взамен
type LookingFor struct {
	Categories []string   `json:"categories"`
	Conditions []string   `json:"conditions"`
	Price      PriceRange `json:"price"`
	Text       string     `json:"text,omitempty"`
}

// Item представляет вещь, выставленную на обмен
type Item struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Condition   string     `json:"condition"`
	Tags        []string   `json:"tags"`
	Price       PriceRange `json:"price"`
	IsAvailable bool       `json:"is_available"`
	Status      string     `json:"status"`
	IsHidden    bool       `json:"is_hidden"`
	LookingFor  LookingFor `json:"looking_for"`
	ImageURLs   []string   `json:"image_urls"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsCandidate сообщает, может ли вещь вообще показываться другим пользователям
func (i *Item) IsCandidate() bool {
	return i.Status == ItemStatusPublished && i.IsAvailable && !i.IsHidden
}

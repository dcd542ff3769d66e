package matching

import (
	"strconv"
	"strings"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

// Nationwide значение параметра radius без географического фильтра
const Nationwide = "nationwide"

// Radius радиус поиска кандидатов
type Radius struct {
	Nationwide bool
	Miles      float64
}

// ParseRadius разбирает параметр radius: "nationwide" (или пусто) либо положительное число миль
func ParseRadius(s string) (Radius, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == Nationwide {
		return Radius{Nationwide: true}, nil
	}
	miles, err := strconv.ParseFloat(s, 64)
	if err != nil || miles <= 0 {
		return Radius{}, apperr.Validation("radius должен быть %q или положительным числом миль", Nationwide)
	}
	return Radius{Miles: miles}, nil
}

// Compatible проверяет взаимность предпочтений двух вещей: категория, состояние и цена
// каждой из них должны устраивать другую сторону, если та объявила предпочтения
func Compatible(lens, candidate *models.Item) bool {
	if !accepts(lens.LookingFor.Categories, candidate.Category) ||
		!accepts(candidate.LookingFor.Categories, lens.Category) {
		return false
	}
	if !accepts(lens.LookingFor.Conditions, candidate.Condition) ||
		!accepts(candidate.LookingFor.Conditions, lens.Condition) {
		return false
	}
	return lens.LookingFor.Price.Overlaps(candidate.Price) &&
		candidate.LookingFor.Price.Overlaps(lens.Price)
}

// accepts пустой список предпочтений или пустое значение подходят всегда
func accepts(prefs []string, value string) bool {
	if len(prefs) == 0 || value == "" {
		return true
	}
	for _, p := range prefs {
		if strings.EqualFold(strings.TrimSpace(p), value) {
			return true
		}
	}
	return false
}

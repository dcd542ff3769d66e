package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

func price(v float64) *float64 { return &v }

func TestParseRadius(t *testing.T) {
	r, err := ParseRadius("")
	require.NoError(t, err)
	assert.True(t, r.Nationwide)

	r, err = ParseRadius("Nationwide")
	require.NoError(t, err)
	assert.True(t, r.Nationwide)

	r, err = ParseRadius("25")
	require.NoError(t, err)
	assert.Equal(t, Radius{Miles: 25}, r)

	for _, bad := range []string{"0", "-5", "far"} {
		_, err := ParseRadius(bad)
		assert.ErrorIs(t, err, apperr.ErrValidation, bad)
	}
}

func TestCompatible(t *testing.T) {
	lens := &models.Item{Category: "Electronics", Condition: "good"}
	cand := &models.Item{Category: "Fashion", Condition: "new"}

	// без предпочтений подходит всё
	assert.True(t, Compatible(lens, cand))

	lens.LookingFor.Conditions = []string{"NEW"}
	assert.True(t, Compatible(lens, cand))

	cand.LookingFor.Conditions = []string{"excellent"}
	assert.False(t, Compatible(lens, cand))
	cand.LookingFor.Conditions = nil

	// диапазоны цен: отсутствующая граница не ограничивает
	lens.LookingFor.Price = models.PriceRange{Min: price(100)}
	cand.Price = models.PriceRange{Max: price(50)}
	assert.False(t, Compatible(lens, cand))

	cand.Price = models.PriceRange{Min: price(80), Max: price(120)}
	assert.True(t, Compatible(lens, cand))

	cand.LookingFor.Price = models.PriceRange{Max: price(10)}
	lens.Price = models.PriceRange{Min: price(20), Max: price(30)}
	assert.False(t, Compatible(lens, cand))

	// пустая категория не отсеивается
	cand.LookingFor.Price = models.PriceRange{}
	lens.LookingFor.Categories = []string{"Home"}
	cand.Category = ""
	assert.True(t, Compatible(lens, cand))
}

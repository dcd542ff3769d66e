package block

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/flippy-trade/internal/apperr"
	"github.com/rajivgeraev/flippy-trade/internal/db/dbtest"
	"github.com/rajivgeraev/flippy-trade/internal/models"
)

func TestBlockService(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewMemStore()
	svc := NewBlockService(store)
	a := store.AddUser(models.User{}).ID
	b := store.AddUser(models.User{}).ID

	assert.ErrorIs(t, svc.Block(ctx, a, a), apperr.ErrValidation)
	assert.ErrorIs(t, svc.Block(ctx, a, uuid.New()), apperr.ErrNotFound)

	require.NoError(t, svc.Block(ctx, a, b))
	require.NoError(t, svc.Block(ctx, a, b))

	blocks, err := svc.ListBlocked(ctx, a)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, b, blocks[0].BlockedID)

	require.NoError(t, svc.Unblock(ctx, a, b))
	assert.ErrorIs(t, svc.Unblock(ctx, a, b), apperr.ErrNotFound)

	blocks, err = svc.ListBlocked(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, blocks)
	assert.NotNil(t, blocks)
}

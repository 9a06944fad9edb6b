package services

import (
	"context"
	"testing"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database/memory"
	"github.com/princinho/storefront/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTodoLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewTodoService(memory.NewTodoStore())
	admin := bson.NewObjectID()

	todo, err := svc.Create(ctx, admin, dto.CreateTodoDTO{Title: " restock mugs "})
	require.NoError(t, err)
	assert.Equal(t, "restock mugs", todo.Title)
	assert.False(t, todo.Done)

	var verr *apperrors.ValidationError
	_, err = svc.Create(ctx, admin, dto.CreateTodoDTO{Title: "  "})
	assert.ErrorAs(t, err, &verr)

	require.NoError(t, svc.Update(ctx, todo.Id, dto.UpdateTodoDTO{Done: boolPtr(true)}))
	assert.ErrorAs(t, svc.Update(ctx, todo.Id, dto.UpdateTodoDTO{}), &verr)
	assert.ErrorAs(t, svc.Update(ctx, todo.Id, dto.UpdateTodoDTO{Title: strPtr("")}), &verr)

	list, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Done)
	assert.Equal(t, admin, list[0].CreatedBy)

	open, err := svc.List(ctx, boolPtr(false))
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, svc.Delete(ctx, todo.Id))
	assert.ErrorIs(t, svc.Delete(ctx, todo.Id), apperrors.ErrNotFound)
}

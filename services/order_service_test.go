package services

import (
	"context"
	"testing"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/database/memory"
	"github.com/princinho/storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func seedOrder(t *testing.T, store *memory.OrderStore, user bson.ObjectID, number int64, at time.Time) *models.Order {
	t.Helper()
	o := &models.Order{
		Id:          bson.NewObjectID(),
		OrderNumber: number,
		UserID:      user,
		Items:       []models.OrderItem{{ProductID: bson.NewObjectID(), Name: "Lamp", Price: 500, UnitPrice: 500, Quantity: 1, LineTotal: 500}},
		Total:       500,
		Status:      models.OrderStatusPending,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, store.InsertOrder(context.Background(), o))
	return o
}

func TestOrderStatusUpdate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOrderStore()
	svc := NewOrderService(store)
	o := seedOrder(t, store, bson.NewObjectID(), 1, time.Now().UTC())

	got, err := svc.UpdateStatus(ctx, o.Id, " Shipped ")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, got.Status)

	var verr *apperrors.ValidationError
	_, err = svc.UpdateStatus(ctx, o.Id, "lost")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)

	_, err = svc.UpdateStatus(ctx, bson.NewObjectID(), "shipped")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderListing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOrderStore()
	svc := NewOrderService(store)
	alice, bob := bson.NewObjectID(), bson.NewObjectID()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := seedOrder(t, store, alice, 1, base)
	seedOrder(t, store, bob, 2, base.Add(time.Minute))
	latest := seedOrder(t, store, alice, 3, base.Add(2*time.Minute))
	_, err := svc.UpdateStatus(ctx, first.Id, "cancelled")
	require.NoError(t, err)

	all, total, err := svc.List(ctx, "", database.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.EqualValues(t, 3, all[0].OrderNumber)

	pending, total, err := svc.List(ctx, "pending", database.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, pending, 2)

	_, _, err = svc.List(ctx, "nope", database.Page{})
	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)

	mine, total, err := svc.ListForUser(ctx, alice, database.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, mine, 2)
	assert.Equal(t, latest.Id, mine[0].Id)

	got, err := svc.GetForUser(ctx, alice, latest.Id)
	require.NoError(t, err)
	assert.Equal(t, latest.OrderNumber, got.OrderNumber)

	_, err = svc.GetForUser(ctx, bob, latest.Id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

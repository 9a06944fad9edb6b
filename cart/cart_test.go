package cart

import (
	"context"
	"testing"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetQuantity(t *testing.T) {
	c := &Cart{UserID: "u1"}
	require.NoError(t, c.SetQuantity("p1", 2))
	require.NoError(t, c.SetQuantity("p2", 1))
	require.NoError(t, c.SetQuantity("p1", 5))
	assert.Equal(t, []Item{{ProductID: "p1", Quantity: 5}, {ProductID: "p2", Quantity: 1}}, c.Items)

	require.NoError(t, c.SetQuantity("p1", 0))
	assert.Equal(t, []Item{{ProductID: "p2", Quantity: 1}}, c.Items)

	// removing an absent line is a no-op
	require.NoError(t, c.SetQuantity("p9", 0))
	assert.Len(t, c.Items, 1)

	var verr *apperrors.ValidationError
	assert.ErrorAs(t, c.SetQuantity("p2", -1), &verr)
	assert.ErrorAs(t, c.SetQuantity("", 1), &verr)
	assert.ErrorAs(t, c.SetQuantity("p2", models.MaxItemQuantity+1), &verr)
	require.NoError(t, c.SetQuantity("p2", models.MaxItemQuantity))
	assert.Equal(t, models.MaxItemQuantity, c.Items[0].Quantity)
}

func TestServiceKeepsCartPerUser(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	c, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c.Empty())

	_, err = svc.SetItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.SetShipping(ctx, "u1", models.ShippingInfo{FullName: "Ada", City: "Lomé"})
	require.NoError(t, err)

	c, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	require.NotNil(t, c.Shipping)
	assert.Equal(t, "Ada", c.Shipping.FullName)
	assert.False(t, c.UpdatedAt.IsZero())

	other, err := svc.Get(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, other.Empty())

	require.NoError(t, svc.Clear(ctx, "u1"))
	c, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c.Empty())
	assert.Nil(t, c.Shipping)
}

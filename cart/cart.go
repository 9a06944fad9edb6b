// Package cart keeps each customer's server-side cart: the lines they intend
// to buy and the shipping draft they filled in at the Shipping step.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
)

const DefaultTTL = 30 * 24 * time.Hour

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Cart struct {
	UserID    string               `json:"userId"`
	Items     []Item               `json:"items"`
	Shipping  *models.ShippingInfo `json:"shipping,omitempty"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// SetQuantity replaces the quantity of productID; zero removes the line.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if productID == "" {
		return apperrors.Invalid("productId", "is required")
	}
	if qty < 0 {
		return apperrors.Invalid("quantity", "must not be negative")
	}
	if qty > models.MaxItemQuantity {
		return apperrors.Invalid("quantity", fmt.Sprintf("must be at most %d", models.MaxItemQuantity))
	}

	for i, it := range c.Items {
		if it.ProductID != productID {
			continue
		}
		if qty == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = qty
		}
		return nil
	}
	if qty > 0 {
		c.Items = append(c.Items, Item{ProductID: productID, Quantity: qty})
	}
	return nil
}

// Store persists carts by user id. Get returns an empty cart for unknown users.
type Store interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Clear(ctx context.Context, userID string) error
}

// Service is the cart operations exposed to the HTTP layer.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	return s.store.Get(ctx, userID)
}

func (s *Service) SetItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.SetQuantity(productID, qty); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) SetShipping(ctx context.Context, userID string, info models.ShippingInfo) (*Cart, error) {
	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.Shipping = &info
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.store.Clear(ctx, userID)
}

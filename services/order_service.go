package services

import (
	"context"
	"strings"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type OrderService struct {
	store database.OrderStore
	now   func() time.Time
}

func NewOrderService(store database.OrderStore) *OrderService {
	return &OrderService{store: store, now: time.Now}
}

func parseStatus(v string) (models.OrderStatus, error) {
	status := models.OrderStatus(strings.ToLower(strings.TrimSpace(v)))
	if !status.Valid() {
		return "", apperrors.Invalid("status", "unknown order status "+v)
	}
	return status, nil
}

// List returns orders newest first, optionally filtered by status.
func (s *OrderService) List(ctx context.Context, status string, page database.Page) ([]models.Order, int64, error) {
	f := database.OrderFilter{Page: page}
	if status != "" {
		st, err := parseStatus(status)
		if err != nil {
			return nil, 0, err
		}
		f.Status = st
	}
	return s.store.ListOrders(ctx, f)
}

func (s *OrderService) Get(ctx context.Context, id bson.ObjectID) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id bson.ObjectID, status string) (*models.Order, error) {
	st, err := parseStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateOrderStatus(ctx, id, st, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.store.GetOrder(ctx, id)
}

func (s *OrderService) ListForUser(ctx context.Context, userID bson.ObjectID, page database.Page) ([]models.Order, int64, error) {
	return s.store.ListOrders(ctx, database.OrderFilter{UserID: &userID, Page: page})
}

// GetForUser hides other users' orders behind a not-found error.
func (s *OrderService) GetForUser(ctx context.Context, userID, id bson.ObjectID) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, apperrors.NotFound("order")
	}
	return o, nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoOrders struct {
	col *mongo.Collection
}

func NewOrderStore(db *mongo.Database) OrderStore {
	return &mongoOrders{col: db.Collection(OrdersCollection)}
}

func (s *mongoOrders) InsertOrder(ctx context.Context, o *models.Order) error {
	if o.Id.IsZero() {
		o.Id = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *mongoOrders) GetOrder(ctx context.Context, id bson.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("order")
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

func (s *mongoOrders) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.UserID != nil {
		filter["userId"] = *f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	opts := options.Find().
		SetSkip(f.Page.Skip).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "orderNumber", Value: -1}})
	if f.Page.Limit > 0 {
		opts.SetLimit(f.Page.Limit)
	}

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Order, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode orders: %w", err)
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	return items, total, nil
}

func (s *mongoOrders) UpdateOrderStatus(ctx context.Context, id bson.ObjectID, status models.OrderStatus, at time.Time) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": at}}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("order")
	}
	return nil
}

type mongoCounters struct {
	col *mongo.Collection
}

func NewCounterStore(db *mongo.Database) CounterStore {
	return &mongoCounters{col: db.Collection(CountersCollection)}
}

func (s *mongoCounters) NextSequence(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c models.Counter
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"current": 1}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return c.Current, nil
}

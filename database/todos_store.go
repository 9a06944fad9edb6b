package database

import (
	"context"
	"fmt"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoTodos struct {
	col *mongo.Collection
}

func NewTodoStore(db *mongo.Database) TodoStore {
	return &mongoTodos{col: db.Collection(TodosCollection)}
}

func (s *mongoTodos) InsertTodo(ctx context.Context, t *models.Todo) error {
	if t.Id.IsZero() {
		t.Id = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

func (s *mongoTodos) ListTodos(ctx context.Context) ([]models.Todo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find todos: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Todo, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode todos: %w", err)
	}
	return items, nil
}

func (s *mongoTodos) UpdateTodo(ctx context.Context, id bson.ObjectID, set bson.M) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("todo")
	}
	return nil
}

func (s *mongoTodos) DeleteTodo(ctx context.Context, id bson.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("todo")
	}
	return nil
}

// NewMongoStores builds every store over one database.
func NewMongoStores(db *mongo.Database) *Stores {
	return &Stores{
		Products:      NewProductStore(db),
		Categories:    NewCategoryStore(db),
		Orders:        NewOrderStore(db),
		Counters:      NewCounterStore(db),
		Users:         NewUserStore(db),
		RefreshTokens: NewRefreshTokenStore(db),
		Todos:         NewTodoStore(db),
	}
}

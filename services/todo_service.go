package services

import (
	"context"
	"strings"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// TodoService backs the admin dashboard todo list.
type TodoService struct {
	store database.TodoStore
	now   func() time.Time
}

func NewTodoService(store database.TodoStore) *TodoService {
	return &TodoService{store: store, now: time.Now}
}

// List returns every todo, or only those whose done flag matches when done is set.
func (s *TodoService) List(ctx context.Context, done *bool) ([]models.Todo, error) {
	all, err := s.store.ListTodos(ctx)
	if err != nil || done == nil {
		return all, err
	}
	out := make([]models.Todo, 0, len(all))
	for _, t := range all {
		if t.Done == *done {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TodoService) Create(ctx context.Context, by bson.ObjectID, in dto.CreateTodoDTO) (*models.Todo, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.Invalid("title", "is required")
	}
	now := s.now().UTC()
	t := &models.Todo{
		Id:        bson.NewObjectID(),
		Title:     title,
		CreatedBy: by,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertTodo(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TodoService) Update(ctx context.Context, id bson.ObjectID, in dto.UpdateTodoDTO) error {
	set := bson.M{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return apperrors.Invalid("title", "must not be empty")
		}
		set["title"] = title
	}
	if in.Done != nil {
		set["done"] = *in.Done
	}
	if len(set) == 0 {
		return apperrors.Invalid("", "no updates provided")
	}
	set["updatedAt"] = s.now().UTC()
	return s.store.UpdateTodo(ctx, id, set)
}

func (s *TodoService) Delete(ctx context.Context, id bson.ObjectID) error {
	return s.store.DeleteTodo(ctx, id)
}

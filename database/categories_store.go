package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoCategories struct {
	categories    *mongo.Collection
	subcategories *mongo.Collection
}

func NewCategoryStore(db *mongo.Database) CategoryStore {
	return &mongoCategories{
		categories:    db.Collection(CategoriesCollection),
		subcategories: db.Collection(SubcategoriesCollection),
	}
}

func slugConflict(err error, what string) error {
	if utils.IsDuplicateKey(err) {
		return apperrors.ErrSlugExists
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *mongoCategories) InsertCategory(ctx context.Context, c *models.Category) error {
	if c.Id.IsZero() {
		c.Id = bson.NewObjectID()
	}
	if _, err := s.categories.InsertOne(ctx, c); err != nil {
		return slugConflict(err, "insert category")
	}
	return nil
}

func (s *mongoCategories) findCategory(ctx context.Context, filter bson.M) (*models.Category, error) {
	var cat models.Category
	if err := s.categories.FindOne(ctx, filter).Decode(&cat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("category")
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &cat, nil
}

func (s *mongoCategories) GetCategory(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	return s.findCategory(ctx, bson.M{"_id": id})
}

func (s *mongoCategories) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.findCategory(ctx, bson.M{"slug": slug})
}

func (s *mongoCategories) ListCategories(ctx context.Context, q string, page Page) ([]models.Category, int64, error) {
	filter := bson.M{}
	if q != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
	}

	opts := options.Find().
		SetSkip(page.Skip).
		SetSort(bson.D{{Key: "name", Value: 1}})
	if page.Limit > 0 {
		opts.SetLimit(page.Limit)
	}

	cursor, err := s.categories.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find categories: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Category, 0)
	for cursor.Next(ctx) {
		var cat models.Category
		if err := cursor.Decode(&cat); err != nil {
			return nil, 0, fmt.Errorf("decode category: %w", err)
		}
		items = append(items, cat)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate categories: %w", err)
	}

	total, err := s.categories.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}
	return items, total, nil
}

func (s *mongoCategories) UpdateCategory(ctx context.Context, id bson.ObjectID, set bson.M) error {
	res, err := s.categories.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return slugConflict(err, "update category")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("category")
	}
	return nil
}

func (s *mongoCategories) DeleteCategory(ctx context.Context, id bson.ObjectID) error {
	res, err := s.categories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("category")
	}
	return nil
}

func (s *mongoCategories) InsertSubcategory(ctx context.Context, sub *models.Subcategory) error {
	if sub.Id.IsZero() {
		sub.Id = bson.NewObjectID()
	}
	if _, err := s.subcategories.InsertOne(ctx, sub); err != nil {
		return slugConflict(err, "insert subcategory")
	}
	return nil
}

func (s *mongoCategories) GetSubcategory(ctx context.Context, id bson.ObjectID) (*models.Subcategory, error) {
	var sub models.Subcategory
	if err := s.subcategories.FindOne(ctx, bson.M{"_id": id}).Decode(&sub); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("subcategory")
		}
		return nil, fmt.Errorf("find subcategory: %w", err)
	}
	return &sub, nil
}

func (s *mongoCategories) ListSubcategories(ctx context.Context, categoryID bson.ObjectID) ([]models.Subcategory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.subcategories.Find(ctx, bson.M{"categoryId": categoryID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find subcategories: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Subcategory, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode subcategories: %w", err)
	}
	return items, nil
}

func (s *mongoCategories) UpdateSubcategory(ctx context.Context, id bson.ObjectID, set bson.M) error {
	res, err := s.subcategories.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return slugConflict(err, "update subcategory")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("subcategory")
	}
	return nil
}

func (s *mongoCategories) UpdateSubcategoriesOf(ctx context.Context, categoryID bson.ObjectID, set bson.M) error {
	if _, err := s.subcategories.UpdateMany(ctx, bson.M{"categoryId": categoryID}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("update subcategories: %w", err)
	}
	return nil
}

func (s *mongoCategories) DeleteSubcategory(ctx context.Context, id bson.ObjectID) error {
	res, err := s.subcategories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("subcategory")
	}
	return nil
}

func (s *mongoCategories) DeleteSubcategoriesOf(ctx context.Context, categoryID bson.ObjectID) (int64, error) {
	res, err := s.subcategories.DeleteMany(ctx, bson.M{"categoryId": categoryID})
	if err != nil {
		return 0, fmt.Errorf("delete subcategories: %w", err)
	}
	return res.DeletedCount, nil
}

package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// CatalogService manages categories and their subcategories.
type CatalogService struct {
	store database.CategoryStore
	now   func() time.Time
}

func NewCatalogService(store database.CategoryStore) *CatalogService {
	return &CatalogService{store: store, now: time.Now}
}

func slugFor(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperrors.Invalid("name", "is required")
	}
	slug := utils.GenerateSlug(name)
	if slug == "" {
		return "", "", apperrors.Invalid("name", "must contain at least one letter or digit")
	}
	return name, slug, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in dto.CreateCategoryDTO) (*models.Category, error) {
	name, slug, err := slugFor(in.Name)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	cat := &models.Category{
		Id:          bson.NewObjectID(),
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *CatalogService) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return s.store.GetCategoryBySlug(ctx, strings.TrimSpace(slug))
}

func (s *CatalogService) ListCategories(ctx context.Context, q string, page database.Page) ([]models.Category, int64, error) {
	return s.store.ListCategories(ctx, strings.TrimSpace(q), page)
}

// UpdateCategory re-derives the slug when the name changes and refreshes the
// categorySlug copy held by every subcategory.
func (s *CatalogService) UpdateCategory(ctx context.Context, id bson.ObjectID, in dto.UpdateCategoryDTO) (*models.Category, error) {
	current, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Name != nil {
		name, slug, err := slugFor(*in.Name)
		if err != nil {
			return nil, err
		}
		set["name"] = name
		set["slug"] = slug
	}
	if in.Description != nil {
		set["description"] = strings.TrimSpace(*in.Description)
	}
	if len(set) == 0 {
		return nil, apperrors.Invalid("", "no updates provided")
	}

	now := s.now().UTC()
	set["updatedAt"] = now
	if err := s.store.UpdateCategory(ctx, id, set); err != nil {
		return nil, err
	}

	if slug, ok := set["slug"].(string); ok && slug != current.Slug {
		err := s.store.UpdateSubcategoriesOf(ctx, id, bson.M{"categorySlug": slug, "updatedAt": now})
		if err != nil {
			return nil, fmt.Errorf("refresh subcategories of %s: %w", slug, err)
		}
	}
	return s.store.GetCategory(ctx, id)
}

// DeleteCategory removes the subcategories first, then the category. A
// failure between the two leaves the category in place with fewer children.
func (s *CatalogService) DeleteCategory(ctx context.Context, id bson.ObjectID) (int64, error) {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteSubcategoriesOf(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		log.Printf("[catalog.delete] %d subcategories removed but category %s was not: %v", n, id.Hex(), err)
		return n, err
	}
	return n, nil
}

func (s *CatalogService) CreateSubcategory(ctx context.Context, categoryID bson.ObjectID, in dto.CreateSubcategoryDTO) (*models.Subcategory, error) {
	parent, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	name, slug, err := slugFor(in.Name)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub := &models.Subcategory{
		Id:           bson.NewObjectID(),
		Name:         name,
		Slug:         slug,
		CategoryId:   parent.Id,
		CategorySlug: parent.Slug,
		Description:  strings.TrimSpace(in.Description),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertSubcategory(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *CatalogService) ListSubcategories(ctx context.Context, categoryID bson.ObjectID) ([]models.Subcategory, error) {
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.store.ListSubcategories(ctx, categoryID)
}

func (s *CatalogService) GetSubcategory(ctx context.Context, id bson.ObjectID) (*models.Subcategory, error) {
	return s.store.GetSubcategory(ctx, id)
}

func (s *CatalogService) UpdateSubcategory(ctx context.Context, id bson.ObjectID, in dto.UpdateSubcategoryDTO) (*models.Subcategory, error) {
	set := bson.M{}
	if in.Name != nil {
		name, slug, err := slugFor(*in.Name)
		if err != nil {
			return nil, err
		}
		set["name"] = name
		set["slug"] = slug
	}
	if in.Description != nil {
		set["description"] = strings.TrimSpace(*in.Description)
	}
	if len(set) == 0 {
		return nil, apperrors.Invalid("", "no updates provided")
	}
	set["updatedAt"] = s.now().UTC()

	if err := s.store.UpdateSubcategory(ctx, id, set); err != nil {
		return nil, err
	}
	return s.store.GetSubcategory(ctx, id)
}

func (s *CatalogService) DeleteSubcategory(ctx context.Context, id bson.ObjectID) error {
	return s.store.DeleteSubcategory(ctx, id)
}

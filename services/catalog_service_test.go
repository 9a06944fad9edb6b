package services

import (
	"context"
	"testing"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/database/memory"
	"github.com/princinho/storefront/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func strPtr(s string) *string { return &s }

func TestCreateCategoryDerivesSlug(t *testing.T) {
	svc := NewCatalogService(memory.NewCategoryStore())
	cat, err := svc.CreateCategory(context.Background(), dto.CreateCategoryDTO{Name: "  Maison & Jardin "})
	require.NoError(t, err)
	assert.Equal(t, "Maison & Jardin", cat.Name)
	assert.Equal(t, "maison-jardin", cat.Slug)

	var verr *apperrors.ValidationError
	_, err = svc.CreateCategory(context.Background(), dto.CreateCategoryDTO{Name: "   "})
	assert.ErrorAs(t, err, &verr)
	_, err = svc.CreateCategory(context.Background(), dto.CreateCategoryDTO{Name: "???"})
	assert.ErrorAs(t, err, &verr)
}

func TestCategorySlugMustBeUnique(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCategoryStore())

	_, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Home Decor"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "home  decor!"})
	assert.ErrorIs(t, err, apperrors.ErrSlugExists)
}

func TestSubcategorySlugUniqueWithinParentOnly(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCategoryStore())

	men, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Men"})
	require.NoError(t, err)
	women, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Women"})
	require.NoError(t, err)

	a, err := svc.CreateSubcategory(ctx, men.Id, dto.CreateSubcategoryDTO{Name: "Shoes"})
	require.NoError(t, err)
	b, err := svc.CreateSubcategory(ctx, women.Id, dto.CreateSubcategoryDTO{Name: "Shoes"})
	require.NoError(t, err)
	assert.Equal(t, a.Slug, b.Slug)
	assert.Equal(t, "men", a.CategorySlug)
	assert.Equal(t, "women", b.CategorySlug)

	_, err = svc.CreateSubcategory(ctx, men.Id, dto.CreateSubcategoryDTO{Name: "shoes"})
	assert.ErrorIs(t, err, apperrors.ErrSlugExists)

	_, err = svc.CreateSubcategory(ctx, bson.NewObjectID(), dto.CreateSubcategoryDTO{Name: "Orphan"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteCategoryCascadesToSubcategories(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCategoryStore()
	svc := NewCatalogService(store)

	cat, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Electronics"})
	require.NoError(t, err)
	keep, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Books"})
	require.NoError(t, err)
	for _, name := range []string{"Phones", "Laptops", "Audio"} {
		_, err := svc.CreateSubcategory(ctx, cat.Id, dto.CreateSubcategoryDTO{Name: name})
		require.NoError(t, err)
	}
	_, err = svc.CreateSubcategory(ctx, keep.Id, dto.CreateSubcategoryDTO{Name: "Novels"})
	require.NoError(t, err)

	n, err := svc.DeleteCategory(ctx, cat.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	remaining, err := store.ListSubcategories(ctx, cat.Id)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = svc.GetCategory(ctx, cat.Id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	others, err := svc.ListSubcategories(ctx, keep.Id)
	require.NoError(t, err)
	assert.Len(t, others, 1)

	_, err = svc.DeleteCategory(ctx, cat.Id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRenameCategoryRefreshesSubcategorySlugs(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCategoryStore())

	cat, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Kitchen"})
	require.NoError(t, err)
	sub, err := svc.CreateSubcategory(ctx, cat.Id, dto.CreateSubcategoryDTO{Name: "Knives"})
	require.NoError(t, err)

	updated, err := svc.UpdateCategory(ctx, cat.Id, dto.UpdateCategoryDTO{Name: strPtr("Kitchen & Dining")})
	require.NoError(t, err)
	assert.Equal(t, "kitchen-dining", updated.Slug)

	got, err := svc.GetSubcategory(ctx, sub.Id)
	require.NoError(t, err)
	assert.Equal(t, "kitchen-dining", got.CategorySlug)

	bySlug, err := svc.GetCategoryBySlug(ctx, "kitchen-dining")
	require.NoError(t, err)
	assert.Equal(t, cat.Id, bySlug.Id)

	var verr *apperrors.ValidationError
	_, err = svc.UpdateCategory(ctx, cat.Id, dto.UpdateCategoryDTO{})
	assert.ErrorAs(t, err, &verr)
}

func TestRenameCategoryOntoExistingSlugFails(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCategoryStore())
	_, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Toys"})
	require.NoError(t, err)
	games, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Games"})
	require.NoError(t, err)

	_, err = svc.UpdateCategory(ctx, games.Id, dto.UpdateCategoryDTO{Name: strPtr("TOYS")})
	assert.ErrorIs(t, err, apperrors.ErrSlugExists)
}

func TestListCategoriesFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCategoryStore())
	for _, name := range []string{"Garden", "Games", "Books"} {
		_, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: name})
		require.NoError(t, err)
	}

	items, total, err := svc.ListCategories(ctx, "ga", database.Page{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Games", items[0].Name)
}

func TestUpdateAndDeleteSubcategory(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(memory.NewCategoryStore())
	cat, err := svc.CreateCategory(ctx, dto.CreateCategoryDTO{Name: "Sports"})
	require.NoError(t, err)
	sub, err := svc.CreateSubcategory(ctx, cat.Id, dto.CreateSubcategoryDTO{Name: "Running"})
	require.NoError(t, err)

	updated, err := svc.UpdateSubcategory(ctx, sub.Id, dto.UpdateSubcategoryDTO{Name: strPtr("Trail Running"), Description: strPtr(" off road ")})
	require.NoError(t, err)
	assert.Equal(t, "trail-running", updated.Slug)
	assert.Equal(t, "off road", updated.Description)

	require.NoError(t, svc.DeleteSubcategory(ctx, sub.Id))
	assert.ErrorIs(t, svc.DeleteSubcategory(ctx, sub.Id), apperrors.ErrNotFound)
}

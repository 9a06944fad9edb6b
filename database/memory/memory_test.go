package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func intPtr(n int) *int { return &n }

func TestApplySaleIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()
	p := &models.Product{Name: "Lamp", Price: 1000, Stock: intPtr(3)}
	require.NoError(t, s.InsertProduct(ctx, p))

	err := s.ApplySale(ctx, p.Id, 4, true)
	require.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	got, err := s.GetProduct(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, *got.Stock)
	assert.Equal(t, 0, got.SalesCount)

	require.NoError(t, s.ApplySale(ctx, p.Id, 3, true))
	got, err = s.GetProduct(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, *got.Stock)
	assert.Equal(t, 3, got.SalesCount)
	assert.Equal(t, models.StockOutOfStock, got.StockStatus)

	require.NoError(t, s.RevertSale(ctx, p.Id, 3, true))
	got, err = s.GetProduct(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, 3, *got.Stock)
	assert.Equal(t, 0, got.SalesCount)
	assert.Equal(t, models.StockLimited, got.StockStatus)
}

func TestApplySaleConcurrentNeverOversells(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()
	p := &models.Product{Name: "Mug", Price: 500, Stock: intPtr(5)}
	require.NoError(t, s.InsertProduct(ctx, p))

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ApplySale(ctx, p.Id, 1, true); err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := s.GetProduct(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, 5, sold)
	assert.Equal(t, 0, *got.Stock)
}

func TestUpdateProductSetAndUnset(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()
	p := &models.Product{Name: "Chair", Price: 2000, Stock: intPtr(8), Images: []string{"a"}}
	require.NoError(t, s.InsertProduct(ctx, p))

	require.NoError(t, s.UpdateProduct(ctx, p.Id, bson.M{"name": "Stool", "unlimited": true}, "stock"))
	got, err := s.GetProduct(ctx, p.Id)
	require.NoError(t, err)
	assert.Equal(t, "Stool", got.Name)
	assert.True(t, got.Unlimited)
	assert.Nil(t, got.Stock)
	assert.Equal(t, []string{"a"}, got.Images)

	err = s.UpdateProduct(ctx, bson.NewObjectID(), bson.M{"name": "x"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := NewProductStore()
	for _, p := range []*models.Product{
		{Name: "Blue Shirt", Price: 3000, Category: "clothing", Brand: "acme"},
		{Name: "Red Shirt", Price: 1000, Category: "clothing", Brand: "other"},
		{Name: "Kettle", Price: 2000, Category: "kitchen", Brand: "acme"},
	} {
		require.NoError(t, s.InsertProduct(ctx, p))
	}

	items, total, err := s.ListProducts(ctx, database.ProductFilter{Category: "clothing", Sort: database.SortPriceAsc})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Red Shirt", items[0].Name)

	items, total, err = s.ListProducts(ctx, database.ProductFilter{Query: "shirt", Page: database.Page{Skip: 1, Limit: 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Red Shirt", items[0].Name)
}

func TestCategorySlugUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewCategoryStore()
	a := &models.Category{Name: "Shoes", Slug: "shoes"}
	b := &models.Category{Name: "Bags", Slug: "bags"}
	require.NoError(t, s.InsertCategory(ctx, a))
	require.NoError(t, s.InsertCategory(ctx, b))

	assert.ErrorIs(t, s.InsertCategory(ctx, &models.Category{Name: "Shoes", Slug: "shoes"}), apperrors.ErrSlugExists)
	assert.ErrorIs(t, s.UpdateCategory(ctx, b.Id, bson.M{"slug": "shoes"}), apperrors.ErrSlugExists)

	// subcategory slugs only clash inside one parent
	require.NoError(t, s.InsertSubcategory(ctx, &models.Subcategory{Name: "Kids", Slug: "kids", CategoryId: a.Id}))
	require.NoError(t, s.InsertSubcategory(ctx, &models.Subcategory{Name: "Kids", Slug: "kids", CategoryId: b.Id}))
	err := s.InsertSubcategory(ctx, &models.Subcategory{Name: "Kids", Slug: "kids", CategoryId: a.Id})
	assert.ErrorIs(t, err, apperrors.ErrSlugExists)

	n, err := s.DeleteSubcategoriesOf(ctx, a.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCounterStartsFromOne(t *testing.T) {
	ctx := context.Background()
	s := NewCounterStore()
	first, err := s.NextSequence(ctx, "orders")
	require.NoError(t, err)
	second, err := s.NextSequence(ctx, "orders")
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)
	assert.EqualValues(t, 2, second)
}

func TestUsersEmailUniqueAndUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore()
	u := &models.User{Email: "a@example.com", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, s.InsertUser(ctx, u))
	assert.ErrorIs(t, s.InsertUser(ctx, &models.User{Email: "a@example.com"}), apperrors.ErrEmailTaken)

	got, created, err := s.UpsertUserByEmail(ctx, &models.User{Email: "a@example.com", Role: models.RoleUser})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, models.RoleAdmin, got.Role)

	at := time.Now().UTC()
	require.NoError(t, s.IncrementOrderStats(ctx, u.ID, at))
	got, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Orders)
	assert.Equal(t, 1, got.OrderHistory)
	require.NotNil(t, got.LastOrderDate)
}

package services

import (
	"context"
	"errors"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/database/memory"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type recordingUploader struct {
	mu      sync.Mutex
	n       int
	failOn  int
	deleted []string
}

func (u *recordingUploader) Upload(_ context.Context, prefix string, fh *multipart.FileHeader) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.n++
	if u.failOn > 0 && u.n == u.failOn {
		return "", errors.New("bucket unavailable")
	}
	return "https://cdn.test/" + prefix + "/" + fh.Filename, nil
}

func (u *recordingUploader) Delete(_ context.Context, urls ...string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, urls...)
	return nil
}

func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }
func boolPtr(b bool) *bool    { return &b }

func files(names ...string) []*multipart.FileHeader {
	out := make([]*multipart.FileHeader, 0, len(names))
	for _, n := range names {
		out = append(out, &multipart.FileHeader{Filename: n})
	}
	return out
}

func newProductService(up *recordingUploader) (*ProductService, *memory.ProductStore) {
	store := memory.NewProductStore()
	return NewProductService(store, up, 3), store
}

func TestCreateProductDerivesFields(t *testing.T) {
	svc, _ := newProductService(&recordingUploader{})
	ctx := context.Background()

	p, err := svc.Create(ctx, dto.CreateProductDTO{
		Name:               "Desk Lamp",
		Price:              5000,
		Stock:              intPtr(4),
		HasDiscount:        true,
		DiscountPercentage: 15,
	}, files("lamp.png"))
	require.NoError(t, err)
	assert.Equal(t, models.StockLimited, p.StockStatus)
	assert.EqualValues(t, 4250, p.DiscountedPrice)
	assert.Equal(t, []string{"https://cdn.test/products/desk-lamp/lamp.png"}, p.Images)
	assert.Zero(t, p.SalesCount)

	plenty, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Mug", Price: 900, Stock: intPtr(50)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StockInStock, plenty.StockStatus)
	assert.EqualValues(t, 900, plenty.DiscountedPrice)

	none, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Poster", Price: 900, Stock: intPtr(0)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StockOutOfStock, none.StockStatus)

	unlimited, err := svc.Create(ctx, dto.CreateProductDTO{Name: "E-book", Price: 900, Unlimited: true, Stock: intPtr(3)}, nil)
	require.NoError(t, err)
	assert.Nil(t, unlimited.Stock)
	assert.Equal(t, models.StockInStock, unlimited.StockStatus)
}

func TestCreateProductStatusOverride(t *testing.T) {
	svc, _ := newProductService(&recordingUploader{})
	p, err := svc.Create(context.Background(), dto.CreateProductDTO{
		Name: "Vase", Price: 1000, Stock: intPtr(100), StockStatus: strPtr("limited"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StockLimited, p.StockStatus)

	var verr *apperrors.ValidationError
	_, err = svc.Create(context.Background(), dto.CreateProductDTO{
		Name: "Vase", Price: 1000, Stock: intPtr(1), StockStatus: strPtr("plenty"),
	}, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stockStatus", verr.Field)
}

func TestCreateProductValidation(t *testing.T) {
	svc, store := newProductService(&recordingUploader{})
	cases := map[string]struct {
		in    dto.CreateProductDTO
		field string
	}{
		"missing name":     {dto.CreateProductDTO{Price: 100, Stock: intPtr(1)}, "name"},
		"zero price":       {dto.CreateProductDTO{Name: "x", Stock: intPtr(1)}, "price"},
		"negative stock":   {dto.CreateProductDTO{Name: "x", Price: 100, Stock: intPtr(-1)}, "stock"},
		"stock required":   {dto.CreateProductDTO{Name: "x", Price: 100}, "stock"},
		"discount too big": {dto.CreateProductDTO{Name: "x", Price: 100, Stock: intPtr(1), DiscountPercentage: 120}, "discountPercentage"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.in, nil)
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	_, total, err := store.ListProducts(context.Background(), database.ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateProductImageLimitAndRollback(t *testing.T) {
	up := &recordingUploader{}
	svc, _ := newProductService(up)
	ctx := context.Background()

	var verr *apperrors.ValidationError
	_, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Rug", Price: 100, Stock: intPtr(1), Images: []string{"a", "b"}}, files("c.png", "d.png"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "images", verr.Field)
	assert.Zero(t, up.n)

	failing := &recordingUploader{failOn: 2}
	svc, store := newProductService(failing)
	_, err = svc.Create(ctx, dto.CreateProductDTO{Name: "Rug", Price: 100, Stock: intPtr(1)}, files("a.png", "b.png"))
	require.Error(t, err)
	assert.Equal(t, []string{"https://cdn.test/products/rug/a.png"}, failing.deleted)
	_, total, _ := store.ListProducts(ctx, database.ProductFilter{})
	assert.Zero(t, total)
}

func TestUpdateProductRederivesStatus(t *testing.T) {
	up := &recordingUploader{}
	svc, _ := newProductService(up)
	ctx := context.Background()

	p, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Chair", Price: 10000, Stock: intPtr(30)}, nil)
	require.NoError(t, err)

	got, err := svc.Update(ctx, p.Id, dto.UpdateProductDTO{Stock: intPtr(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, *got.Stock)
	assert.Equal(t, models.StockLimited, got.StockStatus)
	assert.Equal(t, "Chair", got.Name)

	got, err = svc.Update(ctx, p.Id, dto.UpdateProductDTO{StockStatus: strPtr("out-of-stock")}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StockOutOfStock, got.StockStatus)

	got, err = svc.Update(ctx, p.Id, dto.UpdateProductDTO{Price: int64Ptr(8000), HasDiscount: boolPtr(true), DiscountPercentage: intPtr(25)}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 6000, got.DiscountedPrice)
	assert.Equal(t, models.StockOutOfStock, got.StockStatus, "price edit keeps the status override")

	got, err = svc.Update(ctx, p.Id, dto.UpdateProductDTO{Stock: intPtr(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StockLimited, got.StockStatus)

	got, err = svc.Update(ctx, p.Id, dto.UpdateProductDTO{Unlimited: boolPtr(true)}, nil)
	require.NoError(t, err)
	assert.True(t, got.Unlimited)
	assert.Nil(t, got.Stock)
	assert.Equal(t, models.StockInStock, got.StockStatus)
}

func TestUpdateProductDiscountEndDate(t *testing.T) {
	svc, _ := newProductService(&recordingUploader{})
	ctx := context.Background()
	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	p, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Kettle", Price: 3000, Stock: intPtr(5), HasDiscount: true, DiscountPercentage: 10, DiscountEndDate: &end}, nil)
	require.NoError(t, err)
	require.NotNil(t, p.DiscountEndDate)

	got, err := svc.Update(ctx, p.Id, dto.UpdateProductDTO{ClearDiscountEndDate: true}, nil)
	require.NoError(t, err)
	assert.Nil(t, got.DiscountEndDate)
}

func TestUpdateProductImages(t *testing.T) {
	up := &recordingUploader{}
	svc, _ := newProductService(up)
	ctx := context.Background()

	p, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Sofa", Price: 100, Stock: intPtr(1), Images: []string{"https://cdn.test/old1", "https://cdn.test/old2"}}, nil)
	require.NoError(t, err)

	got, err := svc.Update(ctx, p.Id, dto.UpdateProductDTO{RemovedImagesUrls: []string{"https://cdn.test/old1", "https://elsewhere/x"}}, files("new.png"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.test/old2", "https://cdn.test/products/sofa/new.png"}, got.Images)
	assert.Equal(t, []string{"https://cdn.test/old1"}, up.deleted)

	var verr *apperrors.ValidationError
	_, err = svc.Update(ctx, p.Id, dto.UpdateProductDTO{}, files("a.png", "b.png"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "images", verr.Field)
}

func TestUpdateProductErrors(t *testing.T) {
	svc, _ := newProductService(&recordingUploader{})
	ctx := context.Background()

	_, err := svc.Update(ctx, bson.NewObjectID(), dto.UpdateProductDTO{Name: strPtr("x")}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	p, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Table", Price: 100, Stock: intPtr(1)}, nil)
	require.NoError(t, err)

	var verr *apperrors.ValidationError
	_, err = svc.Update(ctx, p.Id, dto.UpdateProductDTO{}, nil)
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Update(ctx, p.Id, dto.UpdateProductDTO{Price: int64Ptr(0)}, nil)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	unchanged, err := svc.Get(ctx, p.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 100, unchanged.Price)
}

func TestDeleteProductRemovesImages(t *testing.T) {
	up := &recordingUploader{}
	svc, _ := newProductService(up)
	ctx := context.Background()

	p, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Bed", Price: 100, Stock: intPtr(1)}, files("bed.png"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.Id))
	assert.Equal(t, p.Images, up.deleted)

	_, err = svc.Get(ctx, p.Id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.Id), apperrors.ErrNotFound)
}

func TestListProductsRejectsUnknownSort(t *testing.T) {
	svc, _ := newProductService(&recordingUploader{})
	var verr *apperrors.ValidationError
	_, _, err := svc.List(context.Background(), database.ProductFilter{Sort: "random"})
	assert.ErrorAs(t, err, &verr)

	_, _, err = svc.List(context.Background(), database.ProductFilter{Sort: database.SortBestSelling})
	assert.NoError(t, err)
}

func TestUploadImageWithoutBackend(t *testing.T) {
	svc := NewProductService(memory.NewProductStore(), nil, 0)
	_, err := svc.UploadImage(context.Background(), &multipart.FileHeader{Filename: "x.png"})
	assert.Error(t, err)
}

// saleDuringUpdate lands a checkout sale between the service's read and its write.
type saleDuringUpdate struct {
	*memory.ProductStore
	qty int
}

func (s *saleDuringUpdate) UpdateProduct(ctx context.Context, id bson.ObjectID, set bson.M, unset ...string) error {
	if err := s.ApplySale(ctx, id, s.qty, true); err != nil {
		return err
	}
	return s.ProductStore.UpdateProduct(ctx, id, set, unset...)
}

func TestUpdateProductKeepsConcurrentSale(t *testing.T) {
	store := &saleDuringUpdate{ProductStore: memory.NewProductStore(), qty: 3}
	svc := NewProductService(store, &recordingUploader{}, 3)
	ctx := context.Background()

	p, err := svc.Create(ctx, dto.CreateProductDTO{Name: "Lamp", Price: 2500, Stock: intPtr(12)}, nil)
	require.NoError(t, err)

	got, err := svc.Update(ctx, p.Id, dto.UpdateProductDTO{Name: strPtr("Desk Lamp")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", got.Name)
	require.NotNil(t, got.Stock)
	assert.Equal(t, 9, *got.Stock)
	assert.Equal(t, 3, got.SalesCount)
	assert.Equal(t, models.StockLimited, got.StockStatus)

	got, err = svc.Update(ctx, p.Id, dto.UpdateProductDTO{Stock: intPtr(20)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, *got.Stock, "an explicit stock edit still wins")
	assert.Equal(t, 6, got.SalesCount)
}

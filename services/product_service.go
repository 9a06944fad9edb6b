package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const DefaultMaxProductImages = 4

type ProductService struct {
	store     database.ProductStore
	uploader  utils.Uploader
	maxImages int
	now       func() time.Time
}

func NewProductService(store database.ProductStore, uploader utils.Uploader, maxImages int) *ProductService {
	if uploader == nil {
		uploader = utils.NoopUploader{}
	}
	if maxImages <= 0 {
		maxImages = DefaultMaxProductImages
	}
	return &ProductService{store: store, uploader: uploader, maxImages: maxImages, now: time.Now}
}

func validateProduct(p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.Invalid("name", "is required")
	}
	if p.Price <= 0 {
		return apperrors.Invalid("price", "must be greater than 0")
	}
	if p.DiscountPercentage < 0 || p.DiscountPercentage > 100 {
		return apperrors.Invalid("discountPercentage", "must be between 0 and 100")
	}
	if !p.Unlimited {
		if p.Stock == nil {
			return apperrors.Invalid("stock", "is required unless the product is unlimited")
		}
		if *p.Stock < 0 {
			return apperrors.Invalid("stock", "must not be negative")
		}
	}
	if !p.StockStatus.Valid() {
		return apperrors.Invalid("stockStatus", "must be one of in-stock, limited, out-of-stock")
	}
	return nil
}

// derive fills the computed fields: discountedPrice always, stockStatus unless overridden.
func derive(p *models.Product, statusOverride *string) {
	if p.Unlimited {
		p.Stock = nil
	}
	p.DiscountedPrice = models.DiscountedPrice(p.Price, p.DiscountPercentage)
	if statusOverride != nil && strings.TrimSpace(*statusOverride) != "" {
		p.StockStatus = models.StockStatus(strings.TrimSpace(*statusOverride))
		return
	}
	p.StockStatus = models.DeriveStockStatus(p.Unlimited, p.Stock)
}

func (s *ProductService) imagePrefix(name string) string {
	return "products/" + utils.GenerateSlug(name)
}

// Create validates, derives stockStatus and discountedPrice, uploads files and
// stores the product. Uploaded files are removed again if the insert fails.
func (s *ProductService) Create(ctx context.Context, in dto.CreateProductDTO, files []*multipart.FileHeader) (*models.Product, error) {
	now := s.now().UTC()
	p := &models.Product{
		Id:                 bson.NewObjectID(),
		Ref:                strings.TrimSpace(in.Ref),
		Name:               strings.TrimSpace(in.Name),
		Description:        in.Description,
		Price:              in.Price,
		Brand:              strings.TrimSpace(in.Brand),
		Category:           strings.TrimSpace(in.Category),
		Subcategory:        strings.TrimSpace(in.Subcategory),
		Images:             append([]string{}, in.Images...),
		Unlimited:          in.Unlimited,
		Stock:              in.Stock,
		HasDiscount:        in.HasDiscount,
		DiscountPercentage: in.DiscountPercentage,
		DiscountEndDate:    in.DiscountEndDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	derive(p, in.StockStatus)
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if len(p.Images)+len(files) > s.maxImages {
		return nil, apperrors.Invalid("images", fmt.Sprintf("at most %d images are allowed", s.maxImages))
	}

	uploaded, err := utils.UploadImages(ctx, s.uploader, s.imagePrefix(p.Name), files, s.maxImages)
	if err != nil {
		return nil, err
	}
	p.Images = append(p.Images, uploaded...)

	if err := s.store.InsertProduct(ctx, p); err != nil {
		s.discard(ctx, uploaded)
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f database.ProductFilter) ([]models.Product, int64, error) {
	switch f.Sort {
	case "", database.SortByName, database.SortPriceAsc, database.SortPriceDesc, database.SortNewest, database.SortBestSelling:
	default:
		return nil, 0, apperrors.Invalid("sort", "must be one of name, price_asc, price_desc, newest, best_selling")
	}
	return s.store.ListProducts(ctx, f)
}

// Update applies the present fields with a field-level $set. stock and
// stockStatus are written only when the request changes stock, unlimited or
// the status override, so edits to other fields never overwrite a concurrent
// sale. discountedPrice is recomputed and salesCount is never written here.
func (s *ProductService) Update(ctx context.Context, id bson.ObjectID, in dto.UpdateProductDTO, files []*multipart.FileHeader) (*models.Product, error) {
	current, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	set := bson.M{}
	if in.Ref != nil {
		next.Ref = strings.TrimSpace(*in.Ref)
		set["ref"] = next.Ref
	}
	if in.Name != nil {
		next.Name = strings.TrimSpace(*in.Name)
		set["name"] = next.Name
	}
	if in.Description != nil {
		next.Description = *in.Description
		set["description"] = next.Description
	}
	if in.Price != nil {
		next.Price = *in.Price
		set["price"] = next.Price
	}
	if in.Brand != nil {
		next.Brand = strings.TrimSpace(*in.Brand)
		set["brand"] = next.Brand
	}
	if in.Category != nil {
		next.Category = strings.TrimSpace(*in.Category)
		set["category"] = next.Category
	}
	if in.Subcategory != nil {
		next.Subcategory = strings.TrimSpace(*in.Subcategory)
		set["subcategory"] = next.Subcategory
	}
	if in.Unlimited != nil {
		next.Unlimited = *in.Unlimited
		set["unlimited"] = next.Unlimited
	}
	if in.Stock != nil {
		stock := *in.Stock
		next.Stock = &stock
	}
	if in.HasDiscount != nil {
		next.HasDiscount = *in.HasDiscount
		set["hasDiscount"] = next.HasDiscount
	}
	if in.DiscountPercentage != nil {
		next.DiscountPercentage = *in.DiscountPercentage
		set["discountPercentage"] = next.DiscountPercentage
	}
	var unset []string
	switch {
	case in.ClearDiscountEndDate:
		next.DiscountEndDate = nil
		unset = append(unset, "discountEndDate")
	case in.DiscountEndDate != nil:
		end := *in.DiscountEndDate
		next.DiscountEndDate = &end
		set["discountEndDate"] = end
	}

	removed := utils.IntersectStrings(in.RemovedImagesUrls, current.Images)
	if len(set) == 0 && len(unset) == 0 && in.Stock == nil && in.StockStatus == nil && len(removed) == 0 && len(files) == 0 {
		return nil, apperrors.Invalid("", "no updates provided")
	}

	derive(&next, in.StockStatus)
	if err := validateProduct(&next); err != nil {
		return nil, err
	}
	// stock is shared with checkout; only write it when this request changes it
	stockTouched := in.Stock != nil || (in.Unlimited != nil && *in.Unlimited != current.Unlimited)
	overridden := in.StockStatus != nil && strings.TrimSpace(*in.StockStatus) != ""
	if stockTouched {
		if next.Stock != nil {
			set["stock"] = *next.Stock
		} else if current.Stock != nil {
			unset = append(unset, "stock")
		}
	}
	if stockTouched || overridden {
		set["stockStatus"] = next.StockStatus
	}
	set["discountedPrice"] = next.DiscountedPrice

	if len(current.Images)-len(removed)+len(files) > s.maxImages {
		return nil, apperrors.Invalid("images", fmt.Sprintf("at most %d images are allowed", s.maxImages))
	}
	uploaded, err := utils.UploadImages(ctx, s.uploader, s.imagePrefix(next.Name), files, s.maxImages)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 || len(uploaded) > 0 {
		set["images"] = utils.MergeImageUrlsArrays(current.Images, removed, uploaded)
	}

	set["updatedAt"] = s.now().UTC()
	if err := s.store.UpdateProduct(ctx, id, set, unset...); err != nil {
		s.discard(ctx, uploaded)
		return nil, err
	}

	// the product no longer references them
	s.discard(ctx, removed)
	return s.store.GetProduct(ctx, id)
}

// Delete is a hard delete; image removal afterwards is best effort.
func (s *ProductService) Delete(ctx context.Context, id bson.ObjectID) error {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.discard(ctx, p.Images)
	return nil
}

// UploadImage stores one file outside any product and returns its URL.
func (s *ProductService) UploadImage(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	return s.uploader.Upload(ctx, "uploads", fh)
}

func (s *ProductService) discard(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	if err := s.uploader.Delete(context.WithoutCancel(ctx), urls...); err != nil {
		log.Println("[products.images] delete failed:", err)
	}
}

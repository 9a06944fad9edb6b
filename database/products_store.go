package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoProducts struct {
	col *mongo.Collection
}

func NewProductStore(db *mongo.Database) ProductStore {
	return &mongoProducts{col: db.Collection(ProductsCollection)}
}

func (s *mongoProducts) InsertProduct(ctx context.Context, p *models.Product) error {
	if p.Id.IsZero() {
		p.Id = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *mongoProducts) GetProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

func productFilter(f ProductFilter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Subcategory != "" {
		filter["subcategory"] = f.Subcategory
	}
	if f.Brand != "" {
		filter["brand"] = f.Brand
	}
	if f.Query != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Query), "$options": "i"}
	}
	return filter
}

func productSort(s ProductSort) bson.D {
	switch s {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case SortNewest:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	case SortBestSelling:
		return bson.D{{Key: "salesCount", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	}
}

func (s *mongoProducts) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := productFilter(f)
	opts := options.Find().
		SetSkip(f.Page.Skip).
		SetSort(productSort(f.Sort))
	if f.Page.Limit > 0 {
		opts.SetLimit(f.Page.Limit)
	}

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Product, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	return items, total, nil
}

func (s *mongoProducts) UpdateProduct(ctx context.Context, id bson.ObjectID, set bson.M, unset ...string) error {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		fields := bson.M{}
		for _, f := range unset {
			fields[f] = ""
		}
		update["$unset"] = fields
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("product")
	}
	return nil
}

func (s *mongoProducts) DeleteProduct(ctx context.Context, id bson.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("product")
	}
	return nil
}

// stockPipeline shifts stock and salesCount by the given deltas and re-derives
// stockStatus from the new stock in the same write.
func stockPipeline(stockDelta, salesDelta int, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stock":      bson.M{"$add": bson.A{"$stock", stockDelta}},
			"salesCount": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$salesCount", 0}}, salesDelta}},
			"updatedAt":  now,
		}}},
		{{Key: "$set", Value: bson.M{
			"stockStatus": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{"case": bson.M{"$lte": bson.A{"$stock", 0}}, "then": string(models.StockOutOfStock)},
					bson.M{"case": bson.M{"$lte": bson.A{"$stock", models.LimitedStockThreshold}}, "then": string(models.StockLimited)},
				},
				"default": string(models.StockInStock),
			}},
		}}},
	}
}

func (s *mongoProducts) ApplySale(ctx context.Context, id bson.ObjectID, qty int, trackStock bool) error {
	if qty <= 0 {
		return ErrBadSaleQuantity
	}
	now := time.Now().UTC()
	if !trackStock {
		return s.incSales(ctx, id, qty, now)
	}

	filter := bson.M{"_id": id, "stock": bson.M{"$gte": qty}}
	res, err := s.col.UpdateOne(ctx, filter, stockPipeline(-qty, qty, now))
	if err != nil {
		return fmt.Errorf("apply sale: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := s.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("apply sale: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("product")
	}
	return apperrors.ErrInsufficientStock
}

func (s *mongoProducts) RevertSale(ctx context.Context, id bson.ObjectID, qty int, trackStock bool) error {
	if qty <= 0 {
		return ErrBadSaleQuantity
	}
	now := time.Now().UTC()
	if !trackStock {
		return s.incSales(ctx, id, -qty, now)
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, stockPipeline(qty, -qty, now))
	if err != nil {
		return fmt.Errorf("revert sale: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("product")
	}
	return nil
}

func (s *mongoProducts) incSales(ctx context.Context, id bson.ObjectID, delta int, now time.Time) error {
	update := bson.M{
		"$inc": bson.M{"salesCount": delta},
		"$set": bson.M{"updatedAt": now},
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update sales count: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("product")
	}
	return nil
}

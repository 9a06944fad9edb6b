// Package checkout turns a cart into an order: stock check, stock reservation,
// order numbering and order persistence, with every reservation released again
// when a later step fails.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type LineItem struct {
	ProductID bson.ObjectID
	Quantity  int
}

type productReader interface {
	GetProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error)
}

type StockReport struct {
	Satisfiable bool
	Issues      []apperrors.StockIssue
	// Products holds every product that was found, keyed by id.
	Products map[bson.ObjectID]*models.Product
}

// StockChecker is read-only; its answer can be stale by the time stock is reserved.
type StockChecker struct {
	products productReader
}

func NewStockChecker(products productReader) *StockChecker {
	return &StockChecker{products: products}
}

func (c *StockChecker) Check(ctx context.Context, items []LineItem) (*StockReport, error) {
	report := &StockReport{
		Satisfiable: true,
		Issues:      []apperrors.StockIssue{},
		Products:    make(map[bson.ObjectID]*models.Product, len(items)),
	}

	for _, it := range items {
		p, err := c.products.GetProduct(ctx, it.ProductID)
		if errors.Is(err, apperrors.ErrNotFound) {
			report.Satisfiable = false
			report.Issues = append(report.Issues, apperrors.StockIssue{
				ProductID: it.ProductID.Hex(),
				Requested: it.Quantity,
				Available: 0,
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("check stock of %s: %w", it.ProductID.Hex(), err)
		}

		report.Products[it.ProductID] = p
		if !p.TracksStock() || *p.Stock >= it.Quantity {
			continue
		}
		report.Satisfiable = false
		report.Issues = append(report.Issues, apperrors.StockIssue{
			ProductID: it.ProductID.Hex(),
			Name:      p.Name,
			Requested: it.Quantity,
			Available: max(*p.Stock, 0),
		})
	}
	return report, nil
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"
)

type saleStore interface {
	productReader
	ApplySale(ctx context.Context, id bson.ObjectID, qty int, trackStock bool) error
	RevertSale(ctx context.Context, id bson.ObjectID, qty int, trackStock bool) error
}

// Reservation is one applied sale: stock taken (when tracked) and salesCount raised.
type Reservation struct {
	ProductID bson.ObjectID
	Quantity  int
	Tracked   bool
	// Product is the state read just before the sale was applied.
	Product *models.Product
}

type ProductMutator struct {
	products saleStore
}

func NewProductMutator(products saleStore) *ProductMutator {
	return &ProductMutator{products: products}
}

// Apply reserves every item concurrently. It either returns one reservation
// per item, in item order, or an error after releasing whatever it reserved.
// Stock shortfalls come back together as a *apperrors.StockError.
func (m *ProductMutator) Apply(ctx context.Context, items []LineItem) ([]Reservation, error) {
	var (
		mu      sync.Mutex
		applied = make([]*Reservation, len(items))
		issues  []apperrors.StockIssue
	)

	// a shortfall is not an error here: every line still gets its attempt,
	// so the caller learns about all of them at once
	var g errgroup.Group
	for i, it := range items {
		g.Go(func() error {
			res, issue, err := m.applyOne(ctx, it)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if issue != nil {
				issues = append(issues, *issue)
				return nil
			}
			applied[i] = res
			return nil
		})
	}
	err := g.Wait()

	reservations := make([]Reservation, 0, len(items))
	for _, r := range applied {
		if r != nil {
			reservations = append(reservations, *r)
		}
	}

	if err == nil && len(issues) == 0 {
		return reservations, nil
	}

	if rerr := m.Release(context.WithoutCancel(ctx), reservations); rerr != nil {
		log.Println("[checkout.mutate] release after failed reservation:", rerr)
	}
	if err != nil {
		return nil, err
	}
	return nil, &apperrors.StockError{Issues: issues}
}

func (m *ProductMutator) applyOne(ctx context.Context, it LineItem) (*Reservation, *apperrors.StockIssue, error) {
	p, err := m.products.GetProduct(ctx, it.ProductID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, &apperrors.StockIssue{ProductID: it.ProductID.Hex(), Requested: it.Quantity}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read product %s: %w", it.ProductID.Hex(), err)
	}

	tracked := p.TracksStock()
	err = m.products.ApplySale(ctx, it.ProductID, it.Quantity, tracked)
	switch {
	case errors.Is(err, apperrors.ErrInsufficientStock):
		return nil, &apperrors.StockIssue{
			ProductID: it.ProductID.Hex(),
			Name:      p.Name,
			Requested: it.Quantity,
			Available: max(p.Available(), 0),
		}, nil
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, &apperrors.StockIssue{ProductID: it.ProductID.Hex(), Name: p.Name, Requested: it.Quantity}, nil
	case err != nil:
		return nil, nil, fmt.Errorf("reserve %s: %w", p.Name, err)
	}

	return &Reservation{ProductID: it.ProductID, Quantity: it.Quantity, Tracked: tracked, Product: p}, nil, nil
}

// Release hands stock back and lowers salesCount for each reservation. It
// tries every reservation and reports all failures together.
func (m *ProductMutator) Release(ctx context.Context, reservations []Reservation) error {
	var errs []error
	for _, r := range reservations {
		if err := m.products.RevertSale(ctx, r.ProductID, r.Quantity, r.Tracked); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", r.ProductID.Hex(), err))
		}
	}
	return errors.Join(errs...)
}

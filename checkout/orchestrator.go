package checkout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/cart"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type OrchestratorConfig struct {
	Checker *StockChecker
	Mutator *ProductMutator
	Counter *OrderCounter
	Writer  *OrderWriter
	Carts   cart.Store
	Now     func() time.Time
}

type Orchestrator struct {
	checker *StockChecker
	mutator *ProductMutator
	counter *OrderCounter
	writer  *OrderWriter
	carts   cart.Store
	now     func() time.Time
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		checker: cfg.Checker,
		mutator: cfg.Mutator,
		counter: cfg.Counter,
		writer:  cfg.Writer,
		carts:   cfg.Carts,
		now:     now,
	}
}

// ConfirmRequest may carry its own lines and shipping; missing parts are taken from the stored cart.
type ConfirmRequest struct {
	Items    []LineItem
	Shipping *models.ShippingInfo
}

// Confirm places an order for userID. Nothing is written when the stock
// check fails; once stock is reserved, any later failure releases it again
// before the error is returned. The stored cart is cleared on success.
func (o *Orchestrator) Confirm(ctx context.Context, userID bson.ObjectID, req ConfirmRequest) (*models.Order, error) {
	items, shipping, err := o.resolveInput(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	report, err := o.checker.Check(ctx, items)
	if err != nil {
		return nil, err
	}
	if !report.Satisfiable {
		return nil, &apperrors.StockError{Issues: report.Issues}
	}

	reservations, err := o.mutator.Apply(ctx, items)
	if err != nil {
		return nil, err
	}
	release := func(cause error) {
		if rerr := o.mutator.Release(context.WithoutCancel(ctx), reservations); rerr != nil {
			log.Printf("[checkout.confirm] user %s: %v; releasing stock also failed: %v", userID.Hex(), cause, rerr)
		}
	}

	number, err := o.counter.Next(ctx)
	if err != nil {
		release(err)
		return nil, err
	}

	now := o.now()
	lines := make([]models.OrderItem, 0, len(reservations))
	for _, r := range reservations {
		line, err := BuildLine(r.Product, r.Quantity, now)
		if err != nil {
			release(err)
			return nil, err
		}
		lines = append(lines, line)
	}

	order, err := o.writer.Write(ctx, OrderDraft{
		UserID:      userID,
		OrderNumber: number,
		Lines:       lines,
		Shipping:    *shipping,
	})
	if err != nil {
		release(err)
		return nil, err
	}

	if err := o.carts.Clear(context.WithoutCancel(ctx), userID.Hex()); err != nil {
		log.Printf("[checkout.confirm] order #%d placed, cart not cleared: %v", order.OrderNumber, err)
	}
	return order, nil
}

func (o *Orchestrator) resolveInput(ctx context.Context, userID bson.ObjectID, req ConfirmRequest) ([]LineItem, *models.ShippingInfo, error) {
	items := req.Items
	shipping := req.Shipping

	if len(items) == 0 || shipping == nil {
		stored, err := o.carts.Get(ctx, userID.Hex())
		if err != nil {
			return nil, nil, fmt.Errorf("load cart: %w", err)
		}
		if len(items) == 0 {
			items, err = CartLines(stored)
			if err != nil {
				return nil, nil, err
			}
		}
		if shipping == nil {
			shipping = stored.Shipping
		}
	}

	items, err := MergeItems(items)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, apperrors.ErrEmptyCart
	}
	if shipping == nil {
		return nil, nil, apperrors.Invalid("shipping", "is required")
	}
	if err := validateShipping(*shipping); err != nil {
		return nil, nil, err
	}
	return items, shipping, nil
}

// CheckStock runs the read-only stock check for items, or for the stored cart when items is empty.
func (o *Orchestrator) CheckStock(ctx context.Context, userID bson.ObjectID, items []LineItem) (*StockReport, error) {
	if len(items) == 0 {
		stored, err := o.carts.Get(ctx, userID.Hex())
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
		if items, err = CartLines(stored); err != nil {
			return nil, err
		}
	}
	items, err := MergeItems(items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.ErrEmptyCart
	}
	return o.checker.Check(ctx, items)
}

// View is what the checkout page shows for one step.
type View struct {
	Step     Step                   `json:"step"`
	StepName string                 `json:"stepName"`
	NextStep Step                   `json:"nextStep"`
	Cart     *cart.Cart             `json:"cart"`
	Lines    []models.OrderItem     `json:"lines"`
	Total    int64                  `json:"total"`
	Issues   []apperrors.StockIssue `json:"issues"`
}

// Summary prices the stored cart and clamps the requested step to what the cart allows.
func (o *Orchestrator) Summary(ctx context.Context, userID bson.ObjectID, requested Step) (*View, error) {
	stored, err := o.carts.Get(ctx, userID.Hex())
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	step := ResolveStep(requested, stored)
	view := &View{
		Step:     step,
		StepName: step.String(),
		NextStep: ResolveStep(step.Next(), stored),
		Cart:     stored,
		Lines:    []models.OrderItem{},
		Issues:   []apperrors.StockIssue{},
	}
	if stored.Empty() {
		return view, nil
	}

	items, err := CartLines(stored)
	if err != nil {
		return nil, err
	}
	items, err = MergeItems(items)
	if err != nil {
		return nil, err
	}
	report, err := o.checker.Check(ctx, items)
	if err != nil {
		return nil, err
	}

	now := o.now()
	for _, it := range items {
		p, ok := report.Products[it.ProductID]
		if !ok {
			continue
		}
		line, err := BuildLine(p, it.Quantity, now)
		if err != nil {
			return nil, err
		}
		view.Lines = append(view.Lines, line)
	}
	if view.Total, err = ComputeTotal(view.Lines); err != nil {
		return nil, err
	}
	view.Issues = report.Issues
	return view, nil
}

// CartLines converts stored cart lines into checkout items.
func CartLines(c *cart.Cart) ([]LineItem, error) {
	items := make([]LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		id, err := bson.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return nil, apperrors.Invalid("productId", "invalid product id "+it.ProductID)
		}
		items = append(items, LineItem{ProductID: id, Quantity: it.Quantity})
	}
	return items, nil
}

// MergeItems folds repeated products into one line. Quantities must be
// positive, and no merged line may exceed models.MaxItemQuantity.
func MergeItems(items []LineItem) ([]LineItem, error) {
	index := make(map[bson.ObjectID]int, len(items))
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.ProductID.IsZero() {
			return nil, apperrors.Invalid("productId", "is required")
		}
		if it.Quantity <= 0 {
			return nil, apperrors.Invalid("quantity", "must be at least 1")
		}
		if it.Quantity > models.MaxItemQuantity {
			return nil, errTooMany
		}
		if i, ok := index[it.ProductID]; ok {
			// both sides are capped, so the sum cannot wrap
			if out[i].Quantity+it.Quantity > models.MaxItemQuantity {
				return nil, errTooMany
			}
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// shippingRules applies the same email rule as the request binding to
// shipping drafts loaded from the stored cart.
var shippingRules = validator.New()

var errTooMany = apperrors.Invalid("quantity", fmt.Sprintf("must be at most %d per product", models.MaxItemQuantity))

func validateShipping(s models.ShippingInfo) error {
	required := []struct {
		field, value string
	}{
		{"fullName", s.FullName},
		{"email", s.Email},
		{"phone", s.Phone},
		{"address", s.Address},
		{"city", s.City},
		{"country", s.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperrors.Invalid("shipping."+r.field, "is required")
		}
	}
	if err := shippingRules.Var(s.Email, "email"); err != nil {
		return apperrors.Invalid("shipping.email", "is not a valid email address")
	}
	return nil
}

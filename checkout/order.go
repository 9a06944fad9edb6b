package checkout

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// OrderCounterName is the counters document that numbers orders.
const OrderCounterName = "orders"

type sequencer interface {
	NextSequence(ctx context.Context, name string) (int64, error)
}

type OrderCounter struct {
	seq sequencer
}

func NewOrderCounter(seq sequencer) *OrderCounter {
	return &OrderCounter{seq: seq}
}

// Next reserves the next order number. A number whose order is never written is simply skipped.
func (c *OrderCounter) Next(ctx context.Context) (int64, error) {
	n, err := c.seq.NextSequence(ctx, OrderCounterName)
	if err != nil {
		return 0, fmt.Errorf("reserve order number: %w", err)
	}
	return n, nil
}

var errAmountTooLarge = apperrors.Invalid("quantity", "order amount is too large")

// mulAmount returns price*qty, refusing negative inputs and int64 overflow.
func mulAmount(price int64, qty int) (int64, error) {
	if price < 0 || qty < 0 {
		return 0, apperrors.Invalid("quantity", "must not be negative")
	}
	if qty > 0 && price > math.MaxInt64/int64(qty) {
		return 0, errAmountTooLarge
	}
	return price * int64(qty), nil
}

// BuildLine snapshots p for an order line priced at now.
func BuildLine(p *models.Product, qty int, now time.Time) (models.OrderItem, error) {
	line := models.OrderItem{
		ProductID: p.Id,
		Name:      p.Name,
		Price:     p.Price,
		UnitPrice: p.CurrentPrice(now),
		Quantity:  qty,
		Images:    append([]string{}, p.Images...),
	}
	if p.IsDiscountValid(now) {
		line.DiscountedPrice = p.DiscountedPrice
	}
	lineTotal, err := mulAmount(line.UnitPrice, qty)
	if err != nil {
		return models.OrderItem{}, err
	}
	line.LineTotal = lineTotal
	return line, nil
}

func ComputeTotal(lines []models.OrderItem) (int64, error) {
	var total int64
	for _, l := range lines {
		amount, err := mulAmount(l.UnitPrice, l.Quantity)
		if err != nil {
			return 0, err
		}
		if total > math.MaxInt64-amount {
			return 0, errAmountTooLarge
		}
		total += amount
	}
	return total, nil
}

type OrderDraft struct {
	UserID      bson.ObjectID
	OrderNumber int64
	Lines       []models.OrderItem
	Shipping    models.ShippingInfo
}

type orderInserter interface {
	InsertOrder(ctx context.Context, o *models.Order) error
}

type orderStatsUpdater interface {
	IncrementOrderStats(ctx context.Context, id bson.ObjectID, at time.Time) error
}

type OrderWriter struct {
	orders orderInserter
	users  orderStatsUpdater
	now    func() time.Time
}

func NewOrderWriter(orders orderInserter, users orderStatsUpdater) *OrderWriter {
	return &OrderWriter{orders: orders, users: users, now: time.Now}
}

// Write persists a pending order. The buyer's order statistics are updated
// afterwards; failing that update does not fail the order.
func (w *OrderWriter) Write(ctx context.Context, d OrderDraft) (*models.Order, error) {
	total, err := ComputeTotal(d.Lines)
	if err != nil {
		return nil, err
	}
	now := w.now().UTC()
	order := &models.Order{
		Id:          bson.NewObjectID(),
		OrderNumber: d.OrderNumber,
		UserID:      d.UserID,
		Items:       d.Lines,
		Shipping:    d.Shipping,
		Total:       total,
		Status:      models.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.orders.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("write order #%d: %w", d.OrderNumber, err)
	}

	if err := w.users.IncrementOrderStats(context.WithoutCancel(ctx), d.UserID, now); err != nil {
		log.Printf("[checkout.write] order #%d saved, user stats not updated: %v", d.OrderNumber, err)
	}
	return order, nil
}

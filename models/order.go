package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// MaxItemQuantity caps the units of one product in a cart or an order.
const MaxItemQuantity = 999

// OrderItem is copied from the product at order time; later product edits do not touch it.
type OrderItem struct {
	ProductID       bson.ObjectID `bson:"productId" json:"productId"`
	Name            string        `bson:"name" json:"name"`
	Price           int64         `bson:"price" json:"price"`
	DiscountedPrice int64         `bson:"discountedPrice,omitempty" json:"discountedPrice,omitempty"`
	UnitPrice       int64         `bson:"unitPrice" json:"unitPrice"`
	Quantity        int           `bson:"quantity" json:"quantity"`
	Images          []string      `bson:"images" json:"images"`
	LineTotal       int64         `bson:"lineTotal" json:"lineTotal"`
}

type ShippingInfo struct {
	FullName   string `bson:"fullName" json:"fullName" binding:"required"`
	Email      string `bson:"email" json:"email" binding:"required,email"`
	Phone      string `bson:"phone" json:"phone" binding:"required"`
	Address    string `bson:"address" json:"address" binding:"required"`
	City       string `bson:"city" json:"city" binding:"required"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
	Country    string `bson:"country" json:"country" binding:"required"`
	Notes      string `bson:"notes,omitempty" json:"notes,omitempty"`
}

type Order struct {
	Id          bson.ObjectID `bson:"_id" json:"id"`
	OrderNumber int64         `bson:"orderNumber" json:"orderNumber"`
	UserID      bson.ObjectID `bson:"userId" json:"userId"`
	Items       []OrderItem   `bson:"items" json:"items"`
	Shipping    ShippingInfo  `bson:"shipping" json:"shipping"`
	Total       int64         `bson:"total" json:"total"`
	Status      OrderStatus   `bson:"status" json:"status"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Counter is a named monotonic sequence; the "orders" counter numbers orders.
type Counter struct {
	Id      string `bson:"_id" json:"id"`
	Current int64  `bson:"current" json:"current"`
}

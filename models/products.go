package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type StockStatus string

const (
	StockInStock    StockStatus = "in-stock"
	StockLimited    StockStatus = "limited"
	StockOutOfStock StockStatus = "out-of-stock"
)

// LimitedStockThreshold is the highest tracked stock level still reported as "limited".
const LimitedStockThreshold = 10

func (s StockStatus) Valid() bool {
	switch s {
	case StockInStock, StockLimited, StockOutOfStock:
		return true
	}
	return false
}

type Product struct {
	Id                 bson.ObjectID `bson:"_id" json:"id"`
	Ref                string        `bson:"ref,omitempty" json:"ref,omitempty"`
	Name               string        `bson:"name" json:"name"`
	Description        string        `bson:"description" json:"description"`
	Price              int64         `bson:"price" json:"price"`
	Brand              string        `bson:"brand" json:"brand"`
	Category           string        `bson:"category" json:"category"`
	Subcategory        string        `bson:"subcategory" json:"subcategory"`
	Images             []string      `bson:"images" json:"images"`
	Unlimited          bool          `bson:"unlimited" json:"unlimited"`
	Stock              *int          `bson:"stock,omitempty" json:"stock,omitempty"`
	StockStatus        StockStatus   `bson:"stockStatus" json:"stockStatus"`
	HasDiscount        bool          `bson:"hasDiscount" json:"hasDiscount"`
	DiscountPercentage int           `bson:"discountPercentage" json:"discountPercentage"`
	DiscountedPrice    int64         `bson:"discountedPrice" json:"discountedPrice"`
	DiscountEndDate    *time.Time    `bson:"discountEndDate,omitempty" json:"discountEndDate,omitempty"`
	SalesCount         int           `bson:"salesCount" json:"salesCount"`
	CreatedAt          time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// IsDiscountValid reports whether the discount applies at now: the flag is set,
// the percentage is positive and the end date, if any, has not been reached.
func (p *Product) IsDiscountValid(now time.Time) bool {
	if !p.HasDiscount || p.DiscountPercentage <= 0 {
		return false
	}
	return p.DiscountEndDate == nil || now.Before(*p.DiscountEndDate)
}

// CurrentPrice is the unit price a buyer pays at now.
func (p *Product) CurrentPrice(now time.Time) int64 {
	if p.IsDiscountValid(now) {
		return p.DiscountedPrice
	}
	return p.Price
}

// TracksStock is false for unlimited products and for products created without a stock value.
func (p *Product) TracksStock() bool {
	return !p.Unlimited && p.Stock != nil
}

// Available returns the units that can be sold, or -1 when stock is not tracked.
func (p *Product) Available() int {
	if !p.TracksStock() {
		return -1
	}
	return *p.Stock
}

func DeriveStockStatus(unlimited bool, stock *int) StockStatus {
	if unlimited || stock == nil {
		return StockInStock
	}
	switch {
	case *stock <= 0:
		return StockOutOfStock
	case *stock <= LimitedStockThreshold:
		return StockLimited
	default:
		return StockInStock
	}
}

// DiscountedPrice applies a whole-number percentage to a price in subunits, rounding down.
func DiscountedPrice(price int64, percentage int) int64 {
	if percentage <= 0 {
		return price
	}
	if percentage >= 100 {
		return 0
	}
	return price * int64(100-percentage) / 100
}

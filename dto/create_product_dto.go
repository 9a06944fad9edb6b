package dto

import "time"

// CreateProductDTO is parsed from the "data" multipart field (JSON).
// Prices are in the smallest currency subunit.
type CreateProductDTO struct {
	Ref                string     `json:"ref"`
	Name               string     `json:"name" binding:"required"`
	Description        string     `json:"description"`
	Price              int64      `json:"price" binding:"required,gt=0"`
	Brand              string     `json:"brand"`
	Category           string     `json:"category"`
	Subcategory        string     `json:"subcategory"`
	Images             []string   `json:"images"`
	Unlimited          bool       `json:"unlimited"`
	Stock              *int       `json:"stock"`
	StockStatus        *string    `json:"stockStatus"` // derived from stock when empty
	HasDiscount        bool       `json:"hasDiscount"`
	DiscountPercentage int        `json:"discountPercentage"`
	DiscountEndDate    *time.Time `json:"discountEndDate"`
}

// UpdateProductDTO only touches the fields that are present. salesCount is
// deliberately absent: it only moves when orders are placed.
type UpdateProductDTO struct {
	Ref                  *string    `json:"ref,omitempty"`
	Name                 *string    `json:"name,omitempty"`
	Description          *string    `json:"description,omitempty"`
	Price                *int64     `json:"price,omitempty"`
	Brand                *string    `json:"brand,omitempty"`
	Category             *string    `json:"category,omitempty"`
	Subcategory          *string    `json:"subcategory,omitempty"`
	Unlimited            *bool      `json:"unlimited,omitempty"`
	Stock                *int       `json:"stock,omitempty"`
	StockStatus          *string    `json:"stockStatus,omitempty"`
	HasDiscount          *bool      `json:"hasDiscount,omitempty"`
	DiscountPercentage   *int       `json:"discountPercentage,omitempty"`
	DiscountEndDate      *time.Time `json:"discountEndDate,omitempty"`
	ClearDiscountEndDate bool       `json:"clearDiscountEndDate,omitempty"`
	RemovedImagesUrls    []string   `json:"removedImagesUrls,omitempty"`
}

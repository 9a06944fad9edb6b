package dto

import "github.com/princinho/storefront/models"

type UpdateOrderStatusDTO struct {
	Status string `json:"status" binding:"required"`
}

type CheckoutItemDTO struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"  binding:"required,min=1,max=999"`
}

// ConfirmCheckoutDTO falls back to the stored cart for whatever it leaves out.
type ConfirmCheckoutDTO struct {
	Items    []CheckoutItemDTO    `json:"items" binding:"omitempty,dive"`
	Shipping *models.ShippingInfo `json:"shipping"`
}

type StockCheckDTO struct {
	Items []CheckoutItemDTO `json:"items" binding:"omitempty,dive"`
}

type CartItemDTO struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"  binding:"min=0,max=999"`
}

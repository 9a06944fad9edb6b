package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/checkout"
	"github.com/princinho/storefront/dto"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func lineItems(in []dto.CheckoutItemDTO) ([]checkout.LineItem, error) {
	out := make([]checkout.LineItem, 0, len(in))
	for i, it := range in {
		id, err := bson.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return nil, apperrors.Invalid(fmt.Sprintf("items[%d].productId", i), "invalid product id")
		}
		out = append(out, checkout.LineItem{ProductID: id, Quantity: it.Quantity})
	}
	return out, nil
}

func (a *App) GetCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		cart, err := a.Carts.Get(c.Request.Context(), userID.Hex())
		if err != nil {
			respondError(c, "cart.get", err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

// PUT /cart/items sets one line; quantity 0 removes it.
func (a *App) SetCartItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.CartItemDTO
		if !bindJSON(c, &body) {
			return
		}
		if _, err := bson.ObjectIDFromHex(body.ProductID); err != nil {
			respondError(c, "cart.items", apperrors.Invalid("productId", "invalid product id"))
			return
		}
		cart, err := a.Carts.SetItem(c.Request.Context(), userID.Hex(), body.ProductID, body.Quantity)
		if err != nil {
			respondError(c, "cart.items", err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func (a *App) SetCartShipping() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var body models.ShippingInfo
		if !bindJSON(c, &body) {
			return
		}
		cart, err := a.Carts.SetShipping(c.Request.Context(), userID.Hex(), body)
		if err != nil {
			respondError(c, "cart.shipping", err)
			return
		}
		c.JSON(http.StatusOK, cart)
	}
}

func (a *App) ClearCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		if err := a.Carts.Clear(c.Request.Context(), userID.Hex()); err != nil {
			respondError(c, "cart.clear", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// GET /checkout?step=N returns the step the cart actually allows.
func (a *App) GetCheckout() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		view, err := a.Checkout.Summary(c.Request.Context(), userID, checkout.ParseStep(c.Query("step")))
		if err != nil {
			respondError(c, "checkout.summary", err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (a *App) CheckStock() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.StockCheckDTO
		if c.Request.ContentLength != 0 && !bindJSON(c, &body) {
			return
		}
		items, err := lineItems(body.Items)
		if err != nil {
			respondError(c, "checkout.stock", err)
			return
		}
		report, err := a.Checkout.CheckStock(c.Request.Context(), userID, items)
		if err != nil {
			respondError(c, "checkout.stock", err)
			return
		}
		issues := report.Issues
		if issues == nil {
			issues = []apperrors.StockIssue{}
		}
		c.JSON(http.StatusOK, gin.H{"satisfiable": report.Satisfiable, "issues": issues})
	}
}

func (a *App) ConfirmCheckout() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		var body dto.ConfirmCheckoutDTO
		if c.Request.ContentLength != 0 && !bindJSON(c, &body) {
			return
		}
		items, err := lineItems(body.Items)
		if err != nil {
			respondError(c, "checkout.confirm", err)
			return
		}

		order, err := a.Checkout.Confirm(c.Request.Context(), userID, checkout.ConfirmRequest{
			Items:    items,
			Shipping: body.Shipping,
		})
		if err != nil {
			respondError(c, "checkout.confirm", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"step":     checkout.StepSuccess,
			"stepName": checkout.StepSuccess.String(),
			"order":    order,
		})
	}
}

package controllers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/dto"
)

// GET /admin/orders?status=
func (a *App) GetOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := a.page(c)
		items, total, err := a.Orders.List(c.Request.Context(), strings.TrimSpace(c.Query("status")), p.db)
		if err != nil {
			respondError(c, "admin.orders.list", err)
			return
		}
		c.JSON(http.StatusOK, listResponse(items, p, total))
	}
}

func (a *App) GetOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		order, err := a.Orders.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, "admin.orders.get", err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func (a *App) UpdateOrderStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var body dto.UpdateOrderStatusDTO
		if !bindJSON(c, &body) {
			return
		}
		order, err := a.Orders.UpdateStatus(c.Request.Context(), id, body.Status)
		if err != nil {
			respondError(c, "admin.order.update", err)
			return
		}
		log.Printf("[admin.order.update] order %d -> %s by %s", order.OrderNumber, order.Status, c.GetString("userID"))
		c.JSON(http.StatusOK, order)
	}
}

// GET /me/orders
func (a *App) GetMyOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		p := a.page(c)
		items, total, err := a.Orders.ListForUser(c.Request.Context(), userID, p.db)
		if err != nil {
			respondError(c, "orders.mine", err)
			return
		}
		c.JSON(http.StatusOK, listResponse(items, p, total))
	}
}

// GET /me/orders/:id is the confirmation view after checkout.
func (a *App) GetMyOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		order, err := a.Orders.GetForUser(c.Request.Context(), userID, id)
		if err != nil {
			respondError(c, "orders.mine", err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

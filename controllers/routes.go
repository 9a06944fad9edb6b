package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Guards are the middleware the route table needs from the caller.
type Guards struct {
	Auth    gin.HandlerFunc
	Admin   gin.HandlerFunc
	Limiter gin.HandlerFunc
}

func (a *App) Routes(r *gin.Engine, g Guards) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	auth := r.Group("/auth", g.Limiter)
	auth.POST("/login", a.Login())
	auth.POST("/register", a.Register())
	auth.POST("/refresh", a.Refresh())
	auth.POST("/logout", a.Logout())

	r.GET("/products", a.GetProducts())
	r.GET("/products/:id", a.GetProduct())
	r.GET("/categories", a.GetCategories())
	r.GET("/categories/:id", a.GetCategory())
	r.GET("/categories/slug/:slug", a.GetCategoryBySlug())
	r.GET("/categories/:id/subcategories", a.GetSubcategories())

	user := r.Group("", g.Auth)
	{
		user.GET("/me", a.Me())
		user.GET("/me/orders", a.GetMyOrders())
		user.GET("/me/orders/:id", a.GetMyOrder())

		user.GET("/cart", a.GetCart())
		user.PUT("/cart/items", a.SetCartItem())
		user.PUT("/cart/shipping", a.SetCartShipping())
		user.DELETE("/cart", a.ClearCart())

		user.GET("/checkout", a.GetCheckout())
		user.POST("/checkout/stock-check", a.CheckStock())
		user.POST("/checkout/confirm", g.Limiter, a.ConfirmCheckout())
	}

	admin := r.Group("/admin", g.Auth, g.Admin, g.Limiter)
	{
		admin.GET("/products", a.GetProducts())
		admin.POST("/products", a.AddProduct())
		admin.PATCH("/products/:id", a.UpdateProduct())
		admin.DELETE("/products/:id", a.DeleteProduct())

		admin.POST("/categories", a.AddCategory())
		admin.PATCH("/categories/:id", a.UpdateCategory())
		admin.DELETE("/categories/:id", a.DeleteCategory())
		admin.POST("/categories/:id/subcategories", a.AddSubcategory())
		admin.PATCH("/subcategories/:id", a.UpdateSubcategory())
		admin.DELETE("/subcategories/:id", a.DeleteSubcategory())

		admin.GET("/orders", a.GetOrders())
		admin.GET("/orders/:id", a.GetOrder())
		admin.PATCH("/orders/:id/status", a.UpdateOrderStatus())

		admin.POST("/users", a.CreateUser())
		admin.POST("/users/me/password", a.ChangeMyPassword())

		admin.POST("/uploads", a.UploadImage())

		admin.GET("/todos", a.GetTodos())
		admin.POST("/todos", a.AddTodo())
		admin.PATCH("/todos/:id", a.UpdateTodo())
		admin.DELETE("/todos/:id", a.DeleteTodo())
	}
}

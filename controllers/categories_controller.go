package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/princinho/storefront/dto"
)

func (a *App) AddCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateCategoryDTO
		if !bindJSON(c, &body) {
			return
		}
		cat, err := a.Catalog.CreateCategory(c.Request.Context(), body)
		if err != nil {
			respondError(c, "admin.categories.create", err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}

func (a *App) GetCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := a.page(c)
		items, total, err := a.Catalog.ListCategories(c.Request.Context(), strings.TrimSpace(c.Query("q")), p.db)
		if err != nil {
			respondError(c, "categories.list", err)
			return
		}
		c.JSON(http.StatusOK, listResponse(items, p, total))
	}
}

func (a *App) GetCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		cat, err := a.Catalog.GetCategory(c.Request.Context(), id)
		if err != nil {
			respondError(c, "categories.get", err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

func (a *App) GetCategoryBySlug() gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := strings.TrimSpace(c.Param("slug"))
		if slug == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no slug provided"})
			return
		}
		cat, err := a.Catalog.GetCategoryBySlug(c.Request.Context(), slug)
		if err != nil {
			respondError(c, "categories.get", err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

func (a *App) UpdateCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var body dto.UpdateCategoryDTO
		if !bindJSON(c, &body) {
			return
		}
		cat, err := a.Catalog.UpdateCategory(c.Request.Context(), id, body)
		if err != nil {
			respondError(c, "admin.categories.update", err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

// DeleteCategory removes the category together with its subcategories.
func (a *App) DeleteCategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		removed, err := a.Catalog.DeleteCategory(c.Request.Context(), id)
		if err != nil {
			respondError(c, "admin.categories.delete", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true, "subcategoriesDeleted": removed})
	}
}

// subcategories

func (a *App) GetSubcategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		items, err := a.Catalog.ListSubcategories(c.Request.Context(), id)
		if err != nil {
			respondError(c, "subcategories.list", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func (a *App) AddSubcategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var body dto.CreateSubcategoryDTO
		if !bindJSON(c, &body) {
			return
		}
		sub, err := a.Catalog.CreateSubcategory(c.Request.Context(), id, body)
		if err != nil {
			respondError(c, "admin.subcategories.create", err)
			return
		}
		c.JSON(http.StatusCreated, sub)
	}
}

func (a *App) UpdateSubcategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var body dto.UpdateSubcategoryDTO
		if !bindJSON(c, &body) {
			return
		}
		sub, err := a.Catalog.UpdateSubcategory(c.Request.Context(), id, body)
		if err != nil {
			respondError(c, "admin.subcategories.update", err)
			return
		}
		c.JSON(http.StatusOK, sub)
	}
}

func (a *App) DeleteSubcategory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := a.Catalog.DeleteSubcategory(c.Request.Context(), id); err != nil {
			respondError(c, "admin.subcategories.delete", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

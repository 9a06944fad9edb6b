package controllers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/dto"
)

// productPayload reads the product fields either from the "data" field of a
// multipart form (with image files under "images") or from a JSON body.
func (a *App) productPayload(c *gin.Context, dst any) ([]*multipart.FileHeader, bool) {
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return nil, bindJSON(c, dst)
	}

	jsonData := c.PostForm("data")
	if jsonData == "" {
		respondError(c, "bind", apperrors.Invalid("data", "missing data"))
		return nil, false
	}
	if err := json.Unmarshal([]byte(jsonData), dst); err != nil {
		respondError(c, "bind", apperrors.Invalid("data", "invalid data json"))
		return nil, false
	}
	if err := binding.Validator.ValidateStruct(dst); err != nil {
		respondError(c, "bind", invalidBody(err))
		return nil, false
	}

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["images"]
	}
	if a.Files != nil {
		if err := a.Files.ValidateFiles(files); err != nil {
			respondError(c, "bind", apperrors.Invalid("images", err.Error()))
			return nil, false
		}
	}
	return files, true
}

func (a *App) GetProducts() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := a.page(c)
		sortParam := strings.TrimSpace(c.Query("sort"))
		filter := database.ProductFilter{
			Category:    strings.TrimSpace(c.Query("category")),
			Subcategory: strings.TrimSpace(c.Query("subcategory")),
			Brand:       strings.TrimSpace(c.Query("brand")),
			Query:       strings.TrimSpace(c.Query("q")),
			Sort:        database.ProductSort(sortParam),
			Page:        p.db,
		}

		items, total, err := a.Products.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, "products.list", err)
			return
		}
		resp := listResponse(items, p, total)
		resp["category"] = filter.Category
		resp["sort"] = sortParam
		c.JSON(http.StatusOK, resp)
	}
}

func (a *App) GetProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		product, err := a.Products.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, "products.get", err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func (a *App) AddProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.CreateProductDTO
		files, ok := a.productPayload(c, &body)
		if !ok {
			return
		}
		product, err := a.Products.Create(c.Request.Context(), body, files)
		if err != nil {
			respondError(c, "admin.products.create", err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func (a *App) UpdateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var body dto.UpdateProductDTO
		files, ok := a.productPayload(c, &body)
		if !ok {
			return
		}
		product, err := a.Products.Update(c.Request.Context(), id, body, files)
		if err != nil {
			respondError(c, "admin.products.update", err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func (a *App) DeleteProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := a.Products.Delete(c.Request.Context(), id); err != nil {
			respondError(c, "admin.products.delete", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": true})
	}
}

// POST /admin/uploads (multipart "file")
func (a *App) UploadImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			respondError(c, "admin.uploads", apperrors.Invalid("file", "missing file"))
			return
		}
		if a.Files != nil {
			if _, err := a.Files.ValidateFile(fh); err != nil {
				respondError(c, "admin.uploads", apperrors.Invalid("file", err.Error()))
				return
			}
		}
		url, err := a.Products.UploadImage(c.Request.Context(), fh)
		if err != nil {
			respondError(c, "admin.uploads", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"url": url})
	}
}

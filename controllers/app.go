package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/cart"
	"github.com/princinho/storefront/checkout"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/middleware"
	"github.com/princinho/storefront/services"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// App holds everything the handlers need. Handlers are built by methods
// returning gin.HandlerFunc.
type App struct {
	Catalog  *services.CatalogService
	Products *services.ProductService
	Orders   *services.OrderService
	Users    *services.UserService
	Todos    *services.TodoService
	Carts    *cart.Service
	Checkout *checkout.Orchestrator

	Cookies utils.CookieConfig
	Files   *utils.FileValidator
	Limits  utils.QueryLimits
}

type Options struct {
	Tokens    *utils.TokenManager
	Uploader  utils.Uploader
	Carts     cart.Store
	MaxImages int
	Cookies   utils.CookieConfig
	Files     *utils.FileValidator
	Limits    utils.QueryLimits
}

// NewApp builds the services and the checkout pipeline over one set of stores.
func NewApp(stores *database.Stores, opts Options) *App {
	carts := opts.Carts
	if carts == nil {
		carts = cart.NewMemoryStore()
	}
	orchestrator := checkout.NewOrchestrator(checkout.OrchestratorConfig{
		Checker: checkout.NewStockChecker(stores.Products),
		Mutator: checkout.NewProductMutator(stores.Products),
		Counter: checkout.NewOrderCounter(stores.Counters),
		Writer:  checkout.NewOrderWriter(stores.Orders, stores.Users),
		Carts:   carts,
	})

	return &App{
		Catalog:  services.NewCatalogService(stores.Categories),
		Products: services.NewProductService(stores.Products, opts.Uploader, opts.MaxImages),
		Orders:   services.NewOrderService(stores.Orders),
		Users:    services.NewUserService(stores.Users, stores.RefreshTokens, opts.Tokens),
		Todos:    services.NewTodoService(stores.Todos),
		Carts:    cart.NewService(carts),
		Checkout: orchestrator,
		Cookies:  opts.Cookies,
		Files:    opts.Files,
		Limits:   opts.Limits,
	}
}

// respondError maps service errors to status codes. Anything unrecognised is
// logged under tag and reported as a generic 500.
func respondError(c *gin.Context, tag string, err error) {
	var verr *apperrors.ValidationError
	var serr *apperrors.StockError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Message}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &serr):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock", "issues": serr.Issues})
	case errors.Is(err, apperrors.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient stock"})
	case errors.Is(err, apperrors.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cart is empty"})
	case errors.Is(err, apperrors.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSlugExists):
		c.JSON(http.StatusConflict, gin.H{"error": "slug already exists", "field": "slug"})
	case errors.Is(err, apperrors.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered", "field": "email"})
	case errors.Is(err, utils.ErrUploadsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Printf("[%s] %v", tag, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	r := []rune(field)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// invalidBody turns a binding failure into a ValidationError naming the first bad field.
func invalidBody(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Invalid(jsonName(fe.Field()), "failed on "+fe.Tag())
	}
	return apperrors.Invalid("", "invalid request body")
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, "bind", invalidBody(err))
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return bson.ObjectID{}, false
	}
	return id, true
}

func currentUser(c *gin.Context) (bson.ObjectID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
	}
	return id, ok
}

type pageInfo struct {
	page, limit int
	db          database.Page
}

func (a *App) page(c *gin.Context) pageInfo {
	page, limit, skip := utils.Pagination(c.Query("page"), c.Query("limit"), a.Limits)
	return pageInfo{page: page, limit: limit, db: database.Page{Skip: skip, Limit: int64(limit)}}
}

func listResponse[T any](items []T, p pageInfo, total int64) gin.H {
	if items == nil {
		items = []T{}
	}
	return gin.H{"items": items, "page": p.page, "limit": p.limit, "total": total}
}

package database

import (
	"context"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Page is a skip/limit window over an ordered listing.
type Page struct {
	Skip  int64
	Limit int64
}

type ProductSort string

const (
	SortByName      ProductSort = "name"
	SortPriceAsc    ProductSort = "price_asc"
	SortPriceDesc   ProductSort = "price_desc"
	SortNewest      ProductSort = "newest"
	SortBestSelling ProductSort = "best_selling"
)

// ProductFilter fields are equality filters; empty means "any". Query is a
// case-insensitive name match.
type ProductFilter struct {
	Category    string
	Subcategory string
	Brand       string
	Query       string
	Sort        ProductSort
	Page        Page
}

type OrderFilter struct {
	UserID *bson.ObjectID
	Status models.OrderStatus
	Page   Page
}

// ErrBadSaleQuantity is returned by ApplySale and RevertSale for qty <= 0.
var ErrBadSaleQuantity = apperrors.Invalid("quantity", "must be at least 1")

type ProductStore interface {
	InsertProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	// UpdateProduct applies a field-level $set (and optional $unset).
	UpdateProduct(ctx context.Context, id bson.ObjectID, set bson.M, unset ...string) error
	DeleteProduct(ctx context.Context, id bson.ObjectID) error
	// ApplySale adds qty to salesCount and, when trackStock is set, removes qty
	// from stock only if at least qty units remain. A failed condition returns
	// apperrors.ErrInsufficientStock and leaves the product untouched.
	ApplySale(ctx context.Context, id bson.ObjectID, qty int, trackStock bool) error
	// RevertSale undoes ApplySale.
	RevertSale(ctx context.Context, id bson.ObjectID, qty int, trackStock bool) error
}

type CategoryStore interface {
	InsertCategory(ctx context.Context, c *models.Category) error
	GetCategory(ctx context.Context, id bson.ObjectID) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context, q string, page Page) ([]models.Category, int64, error)
	UpdateCategory(ctx context.Context, id bson.ObjectID, set bson.M) error
	DeleteCategory(ctx context.Context, id bson.ObjectID) error

	InsertSubcategory(ctx context.Context, s *models.Subcategory) error
	GetSubcategory(ctx context.Context, id bson.ObjectID) (*models.Subcategory, error)
	ListSubcategories(ctx context.Context, categoryID bson.ObjectID) ([]models.Subcategory, error)
	UpdateSubcategory(ctx context.Context, id bson.ObjectID, set bson.M) error
	UpdateSubcategoriesOf(ctx context.Context, categoryID bson.ObjectID, set bson.M) error
	DeleteSubcategory(ctx context.Context, id bson.ObjectID) error
	DeleteSubcategoriesOf(ctx context.Context, categoryID bson.ObjectID) (int64, error)
}

type OrderStore interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id bson.ObjectID) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id bson.ObjectID, status models.OrderStatus, at time.Time) error
}

type CounterStore interface {
	// NextSequence atomically increments the named counter (starting from 0) and returns the new value.
	NextSequence(ctx context.Context, name string) (int64, error)
}

type UserStore interface {
	InsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id bson.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpsertUserByEmail inserts u unless a user with the same email exists and returns the stored user.
	UpsertUserByEmail(ctx context.Context, u *models.User) (*models.User, bool, error)
	UpdateUser(ctx context.Context, id bson.ObjectID, set bson.M) error
	IncrementOrderStats(ctx context.Context, id bson.ObjectID, at time.Time) error
}

type RefreshTokenStore interface {
	InsertRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	FindActiveRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id bson.ObjectID, replacedBy *string, at time.Time) error
	RevokeRefreshTokenByHash(ctx context.Context, tokenHash string, at time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID bson.ObjectID, at time.Time) error
}

type TodoStore interface {
	InsertTodo(ctx context.Context, t *models.Todo) error
	ListTodos(ctx context.Context) ([]models.Todo, error)
	UpdateTodo(ctx context.Context, id bson.ObjectID, set bson.M) error
	DeleteTodo(ctx context.Context, id bson.ObjectID) error
}

// Stores bundles one implementation of every store.
type Stores struct {
	Products      ProductStore
	Categories    CategoryStore
	Orders        OrderStore
	Counters      CounterStore
	Users         UserStore
	RefreshTokens RefreshTokenStore
	Todos         TodoStore
}

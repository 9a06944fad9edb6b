// Package memory keeps every store in process memory. It backs the test suites
// and STORE_DRIVER=memory, and enforces the same uniqueness and conditional
// stock rules as the MongoDB stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/database"
	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func NewStores() *database.Stores {
	return &database.Stores{
		Products:      NewProductStore(),
		Categories:    NewCategoryStore(),
		Orders:        NewOrderStore(),
		Counters:      NewCounterStore(),
		Users:         NewUserStore(),
		RefreshTokens: NewRefreshTokenStore(),
		Todos:         NewTodoStore(),
	}
}

// clone copies a document through its bson encoding so callers never share slices with the store.
func clone[T any](doc *T) (*T, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// patch applies top-level $set and $unset fields the way the server would.
func patch[T any](doc *T, set bson.M, unset []string) (*T, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for k, v := range set {
		m[k] = v
	}
	for _, k := range unset {
		delete(m, k)
	}
	raw, err = bson.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func window[T any](items []T, p database.Page) []T {
	if p.Skip >= int64(len(items)) {
		return make([]T, 0)
	}
	items = items[p.Skip:]
	if p.Limit > 0 && p.Limit < int64(len(items)) {
		items = items[:p.Limit]
	}
	return items
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// products

type ProductStore struct {
	mu    sync.RWMutex
	items map[bson.ObjectID]*models.Product
}

func NewProductStore() *ProductStore {
	return &ProductStore{items: make(map[bson.ObjectID]*models.Product)}
}

func (s *ProductStore) InsertProduct(_ context.Context, p *models.Product) error {
	if p.Id.IsZero() {
		p.Id = bson.NewObjectID()
	}
	cp, err := clone(p)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.Id] = cp
	return nil
}

func (s *ProductStore) GetProduct(_ context.Context, id bson.ObjectID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return nil, apperrors.NotFound("product")
	}
	return clone(p)
}

func (s *ProductStore) ListProducts(_ context.Context, f database.ProductFilter) ([]models.Product, int64, error) {
	s.mu.RLock()
	matched := make([]models.Product, 0, len(s.items))
	for _, p := range s.items {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Subcategory != "" && p.Subcategory != f.Subcategory {
			continue
		}
		if f.Brand != "" && p.Brand != f.Brand {
			continue
		}
		if f.Query != "" && !containsFold(p.Name, f.Query) {
			continue
		}
		cp, err := clone(p)
		if err != nil {
			s.mu.RUnlock()
			return nil, 0, err
		}
		matched = append(matched, *cp)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch f.Sort {
		case database.SortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case database.SortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		case database.SortNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.Id.Hex() > b.Id.Hex()
		case database.SortBestSelling:
			if a.SalesCount != b.SalesCount {
				return a.SalesCount > b.SalesCount
			}
		default:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		}
		return a.Id.Hex() < b.Id.Hex()
	})

	return window(matched, f.Page), int64(len(matched)), nil
}

func (s *ProductStore) UpdateProduct(_ context.Context, id bson.ObjectID, set bson.M, unset ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return apperrors.NotFound("product")
	}
	next, err := patch(p, set, unset)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	s.items[id] = next
	return nil
}

func (s *ProductStore) DeleteProduct(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apperrors.NotFound("product")
	}
	delete(s.items, id)
	return nil
}

func (s *ProductStore) ApplySale(_ context.Context, id bson.ObjectID, qty int, trackStock bool) error {
	if qty <= 0 {
		return database.ErrBadSaleQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return apperrors.NotFound("product")
	}
	if trackStock {
		if p.Stock == nil || *p.Stock < qty {
			return apperrors.ErrInsufficientStock
		}
		left := *p.Stock - qty
		p.Stock = &left
		p.StockStatus = models.DeriveStockStatus(false, p.Stock)
	}
	p.SalesCount += qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ProductStore) RevertSale(_ context.Context, id bson.ObjectID, qty int, trackStock bool) error {
	if qty <= 0 {
		return database.ErrBadSaleQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return apperrors.NotFound("product")
	}
	if trackStock {
		restored := qty
		if p.Stock != nil {
			restored += *p.Stock
		}
		p.Stock = &restored
		p.StockStatus = models.DeriveStockStatus(false, p.Stock)
	}
	p.SalesCount -= qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// categories and subcategories

type CategoryStore struct {
	mu            sync.RWMutex
	categories    map[bson.ObjectID]*models.Category
	subcategories map[bson.ObjectID]*models.Subcategory
}

func NewCategoryStore() *CategoryStore {
	return &CategoryStore{
		categories:    make(map[bson.ObjectID]*models.Category),
		subcategories: make(map[bson.ObjectID]*models.Subcategory),
	}
}

func (s *CategoryStore) slugTaken(slug string, except bson.ObjectID) bool {
	for id, c := range s.categories {
		if id != except && c.Slug == slug {
			return true
		}
	}
	return false
}

func (s *CategoryStore) subSlugTaken(categoryID bson.ObjectID, slug string, except bson.ObjectID) bool {
	for id, sub := range s.subcategories {
		if id != except && sub.CategoryId == categoryID && sub.Slug == slug {
			return true
		}
	}
	return false
}

func (s *CategoryStore) InsertCategory(_ context.Context, c *models.Category) error {
	if c.Id.IsZero() {
		c.Id = bson.NewObjectID()
	}
	cp, err := clone(c)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugTaken(c.Slug, c.Id) {
		return apperrors.ErrSlugExists
	}
	s.categories[c.Id] = cp
	return nil
}

func (s *CategoryStore) GetCategory(_ context.Context, id bson.ObjectID) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, apperrors.NotFound("category")
	}
	return clone(c)
}

func (s *CategoryStore) GetCategoryBySlug(_ context.Context, slug string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.Slug == slug {
			return clone(c)
		}
	}
	return nil, apperrors.NotFound("category")
}

func (s *CategoryStore) ListCategories(_ context.Context, q string, page database.Page) ([]models.Category, int64, error) {
	s.mu.RLock()
	items := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if q != "" && !containsFold(c.Name, q) {
			continue
		}
		items = append(items, *c)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Id.Hex() < items[j].Id.Hex()
	})
	return window(items, page), int64(len(items)), nil
}

func (s *CategoryStore) UpdateCategory(_ context.Context, id bson.ObjectID, set bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return apperrors.NotFound("category")
	}
	next, err := patch(c, set, nil)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if s.slugTaken(next.Slug, id) {
		return apperrors.ErrSlugExists
	}
	s.categories[id] = next
	return nil
}

func (s *CategoryStore) DeleteCategory(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return apperrors.NotFound("category")
	}
	delete(s.categories, id)
	return nil
}

func (s *CategoryStore) InsertSubcategory(_ context.Context, sub *models.Subcategory) error {
	if sub.Id.IsZero() {
		sub.Id = bson.NewObjectID()
	}
	cp, err := clone(sub)
	if err != nil {
		return fmt.Errorf("insert subcategory: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subSlugTaken(sub.CategoryId, sub.Slug, sub.Id) {
		return apperrors.ErrSlugExists
	}
	s.subcategories[sub.Id] = cp
	return nil
}

func (s *CategoryStore) GetSubcategory(_ context.Context, id bson.ObjectID) (*models.Subcategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subcategories[id]
	if !ok {
		return nil, apperrors.NotFound("subcategory")
	}
	return clone(sub)
}

func (s *CategoryStore) ListSubcategories(_ context.Context, categoryID bson.ObjectID) ([]models.Subcategory, error) {
	s.mu.RLock()
	items := make([]models.Subcategory, 0)
	for _, sub := range s.subcategories {
		if sub.CategoryId == categoryID {
			items = append(items, *sub)
		}
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Id.Hex() < items[j].Id.Hex()
	})
	return items, nil
}

func (s *CategoryStore) UpdateSubcategory(_ context.Context, id bson.ObjectID, set bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subcategories[id]
	if !ok {
		return apperrors.NotFound("subcategory")
	}
	next, err := patch(sub, set, nil)
	if err != nil {
		return fmt.Errorf("update subcategory: %w", err)
	}
	if s.subSlugTaken(next.CategoryId, next.Slug, id) {
		return apperrors.ErrSlugExists
	}
	s.subcategories[id] = next
	return nil
}

func (s *CategoryStore) UpdateSubcategoriesOf(_ context.Context, categoryID bson.ObjectID, set bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subcategories {
		if sub.CategoryId != categoryID {
			continue
		}
		next, err := patch(sub, set, nil)
		if err != nil {
			return fmt.Errorf("update subcategories: %w", err)
		}
		s.subcategories[id] = next
	}
	return nil
}

func (s *CategoryStore) DeleteSubcategory(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subcategories[id]; !ok {
		return apperrors.NotFound("subcategory")
	}
	delete(s.subcategories, id)
	return nil
}

func (s *CategoryStore) DeleteSubcategoriesOf(_ context.Context, categoryID bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sub := range s.subcategories {
		if sub.CategoryId == categoryID {
			delete(s.subcategories, id)
			n++
		}
	}
	return n, nil
}

// orders

type OrderStore struct {
	mu    sync.RWMutex
	items map[bson.ObjectID]*models.Order
	// FailInsert makes the next InsertOrder calls fail; tests use it to exercise compensation.
	FailInsert error
}

func NewOrderStore() *OrderStore {
	return &OrderStore{items: make(map[bson.ObjectID]*models.Order)}
}

func (s *OrderStore) InsertOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		return fmt.Errorf("insert order: %w", s.FailInsert)
	}
	if o.Id.IsZero() {
		o.Id = bson.NewObjectID()
	}
	cp, err := clone(o)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	s.items[o.Id] = cp
	return nil
}

func (s *OrderStore) GetOrder(_ context.Context, id bson.ObjectID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.items[id]
	if !ok {
		return nil, apperrors.NotFound("order")
	}
	return clone(o)
}

func (s *OrderStore) ListOrders(_ context.Context, f database.OrderFilter) ([]models.Order, int64, error) {
	s.mu.RLock()
	items := make([]models.Order, 0)
	for _, o := range s.items {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		cp, err := clone(o)
		if err != nil {
			s.mu.RUnlock()
			return nil, 0, err
		}
		items = append(items, *cp)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].OrderNumber > items[j].OrderNumber
	})
	return window(items, f.Page), int64(len(items)), nil
}

func (s *OrderStore) UpdateOrderStatus(_ context.Context, id bson.ObjectID, status models.OrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return apperrors.NotFound("order")
	}
	o.Status = status
	o.UpdatedAt = at
	return nil
}

// counters

type CounterStore struct {
	mu     sync.Mutex
	values map[string]int64
	// FailNext makes NextSequence fail; tests use it to exercise compensation.
	FailNext error
}

func NewCounterStore() *CounterStore {
	return &CounterStore{values: make(map[string]int64)}
}

func (s *CounterStore) NextSequence(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, s.FailNext)
	}
	s.values[name]++
	return s.values[name], nil
}

// users

type UserStore struct {
	mu    sync.RWMutex
	items map[bson.ObjectID]*models.User
}

func NewUserStore() *UserStore {
	return &UserStore{items: make(map[bson.ObjectID]*models.User)}
}

func (s *UserStore) byEmail(email string) *models.User {
	for _, u := range s.items {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (s *UserStore) InsertUser(_ context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	cp, err := clone(u)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmail(u.Email) != nil {
		return apperrors.ErrEmailTaken
	}
	s.items[u.ID] = cp
	return nil
}

func (s *UserStore) GetUser(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.items[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	return clone(u)
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.byEmail(email); u != nil {
		return clone(u)
	}
	return nil, apperrors.NotFound("user")
}

func (s *UserStore) UpsertUserByEmail(_ context.Context, u *models.User) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.byEmail(u.Email); existing != nil {
		out, err := clone(existing)
		return out, false, err
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	cp, err := clone(u)
	if err != nil {
		return nil, false, fmt.Errorf("upsert user: %w", err)
	}
	s.items[u.ID] = cp
	out, err := clone(cp)
	return out, true, err
}

func (s *UserStore) UpdateUser(_ context.Context, id bson.ObjectID, set bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return apperrors.NotFound("user")
	}
	next, err := patch(u, set, nil)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if other := s.byEmail(next.Email); other != nil && other.ID != id {
		return apperrors.ErrEmailTaken
	}
	s.items[id] = next
	return nil
}

func (s *UserStore) IncrementOrderStats(_ context.Context, id bson.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return apperrors.NotFound("user")
	}
	u.OrderHistory++
	u.Orders++
	last := at
	u.LastOrderDate = &last
	u.UpdatedAt = at
	return nil
}

// refresh tokens

type RefreshTokenStore struct {
	mu    sync.Mutex
	items map[bson.ObjectID]*models.RefreshToken
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{items: make(map[bson.ObjectID]*models.RefreshToken)}
}

func (s *RefreshTokenStore) InsertRefreshToken(_ context.Context, rt *models.RefreshToken) error {
	if rt.ID.IsZero() {
		rt.ID = bson.NewObjectID()
	}
	cp := *rt
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rt.ID] = &cp
	return nil
}

func (s *RefreshTokenStore) FindActiveRefreshToken(_ context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.items {
		if rt.TokenHash == tokenHash && rt.RevokedAt == nil && rt.ExpiresAt.After(now) {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("refresh token")
}

func (s *RefreshTokenStore) RevokeRefreshToken(_ context.Context, id bson.ObjectID, replacedBy *string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rt, ok := s.items[id]; ok {
		revoked := at
		rt.RevokedAt = &revoked
		rt.ReplacedBy = replacedBy
	}
	return nil
}

func (s *RefreshTokenStore) RevokeRefreshTokenByHash(_ context.Context, tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.items {
		if rt.TokenHash == tokenHash && rt.RevokedAt == nil {
			revoked := at
			rt.RevokedAt = &revoked
		}
	}
	return nil
}

func (s *RefreshTokenStore) RevokeAllRefreshTokens(_ context.Context, userID bson.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.items {
		if rt.UserID == userID && rt.RevokedAt == nil {
			revoked := at
			rt.RevokedAt = &revoked
		}
	}
	return nil
}

// todos

type TodoStore struct {
	mu    sync.RWMutex
	items map[bson.ObjectID]*models.Todo
}

func NewTodoStore() *TodoStore {
	return &TodoStore{items: make(map[bson.ObjectID]*models.Todo)}
}

func (s *TodoStore) InsertTodo(_ context.Context, t *models.Todo) error {
	if t.Id.IsZero() {
		t.Id = bson.NewObjectID()
	}
	cp := *t
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[t.Id] = &cp
	return nil
}

func (s *TodoStore) ListTodos(_ context.Context) ([]models.Todo, error) {
	s.mu.RLock()
	items := make([]models.Todo, 0, len(s.items))
	for _, t := range s.items {
		items = append(items, *t)
	}
	s.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].Id.Hex() > items[j].Id.Hex()
	})
	return items, nil
}

func (s *TodoStore) UpdateTodo(_ context.Context, id bson.ObjectID, set bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok {
		return apperrors.NotFound("todo")
	}
	next, err := patch(t, set, nil)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	s.items[id] = next
	return nil
}

func (s *TodoStore) DeleteTodo(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return apperrors.NotFound("todo")
	}
	delete(s.items, id)
	return nil
}

var (
	_ database.ProductStore      = (*ProductStore)(nil)
	_ database.CategoryStore     = (*CategoryStore)(nil)
	_ database.OrderStore        = (*OrderStore)(nil)
	_ database.CounterStore      = (*CounterStore)(nil)
	_ database.UserStore         = (*UserStore)(nil)
	_ database.RefreshTokenStore = (*RefreshTokenStore)(nil)
	_ database.TodoStore         = (*TodoStore)(nil)
)

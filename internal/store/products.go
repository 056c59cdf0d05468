package store

import (
	"context"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// ProductService is what ProductStore needs from the service layer.
type ProductService interface {
	Backend[types.Product, types.ProductDraft]
	List(ctx context.Context, filter types.ProductFilter) ([]types.Product, error)
}

// UserLookup reports the signed-in user.
type UserLookup interface {
	User() types.User
}

// ProductLookups are the stores a product form reads from. Any of them may
// be nil.
type ProductLookups struct {
	Departments DepartmentLookup
	Categories  CategoryLookup
	Users       UserLookup
}

// ProductStore holds the product collection and form.
//
// On create the slug is derived from the draft name. When a user is signed
// in, an unset created_by is stamped with their ID on create, and updated_by
// is stamped on create when unset and on every update.
type ProductStore struct {
	*Collection[types.Product, types.ProductDraft]
	svc     ProductService
	lookups ProductLookups
}

// NewProductStore returns an empty product store.
func NewProductStore(svc ProductService, lookups ProductLookups, opts Options) *ProductStore {
	s := &ProductStore{svc: svc, lookups: lookups}
	s.Collection = newCollection(collectionConfig[types.Product, types.ProductDraft]{
		backend:  svc,
		empty:    types.NewProductDraft,
		set:      (*types.ProductDraft).Set,
		fromItem: types.DraftFromProduct,
		prepare:  s.prepare,
		names:    naming{title: "Product", single: "product", plural: "products"},
	}, opts)
	return s
}

// FetchAll replaces the collection with every product.
func (s *ProductStore) FetchAll(ctx context.Context) error {
	return s.FetchFiltered(ctx, types.ProductFilter{})
}

// FetchFiltered replaces the collection with the products matching f.
func (s *ProductStore) FetchFiltered(ctx context.Context, f types.ProductFilter) error {
	return s.fetch(ctx, func(ctx context.Context) ([]types.Product, error) {
		return s.svc.List(ctx, f)
	})
}

// Department resolves the department of p.
func (s *ProductStore) Department(p types.Product) (types.Department, bool) {
	if s.lookups.Departments == nil {
		return types.Department{}, false
	}
	return s.lookups.Departments.Find(p.DepartmentID)
}

// Category resolves the category of p.
func (s *ProductStore) Category(p types.Product) (types.Category, bool) {
	if s.lookups.Categories == nil {
		return types.Category{}, false
	}
	return s.lookups.Categories.Find(p.CategoryID)
}

func (s *ProductStore) prepare(d types.ProductDraft, creating bool) types.ProductDraft {
	if creating {
		d.Slug = types.Slugify(d.Name)
	}
	if s.lookups.Users == nil {
		return d
	}
	user := s.lookups.Users.User()
	if user.ID.IsZero() {
		return d
	}
	if creating && d.CreatedBy.IsZero() {
		d.CreatedBy = user.ID
	}
	if d.UpdatedBy.IsZero() || !creating {
		d.UpdatedBy = user.ID
	}
	return d
}

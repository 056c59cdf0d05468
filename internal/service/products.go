package service

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Products talks to /products.
type Products struct {
	r resource[types.Product, types.ProductDraft]
}

// NewProducts returns the product service.
func NewProducts(c Client) *Products {
	return &Products{r: resource[types.Product, types.ProductDraft]{client: c, path: "products", single: "product"}}
}

// List returns the products matching f. The zero filter lists everything.
func (s *Products) List(ctx context.Context, f types.ProductFilter) ([]types.Product, error) {
	return s.r.list(ctx, filterQuery(f))
}

// Get returns one product.
func (s *Products) Get(ctx context.Context, id types.ID) (types.Product, error) {
	return s.r.get(ctx, id)
}

// Create submits a new product and returns the stored record.
func (s *Products) Create(ctx context.Context, d types.ProductDraft) (types.Product, error) {
	return s.r.create(ctx, d)
}

// Update replaces the product with id and returns the stored record.
func (s *Products) Update(ctx context.Context, id types.ID, d types.ProductDraft) (types.Product, error) {
	return s.r.update(ctx, id, d)
}

// Delete removes the product with id.
func (s *Products) Delete(ctx context.Context, id types.ID) error {
	return s.r.delete(ctx, id)
}

func filterQuery(f types.ProductFilter) url.Values {
	q := url.Values{}
	if !f.CategoryID.IsZero() {
		q.Set("category_id", f.CategoryID.String())
	}
	if !f.DepartmentID.IsZero() {
		q.Set("department_id", f.DepartmentID.String())
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

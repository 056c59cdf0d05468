package service

import (
	"context"
	"net/url"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Categories talks to /categories.
type Categories struct {
	r resource[types.Category, types.CategoryDraft]
}

// NewCategories returns the category service.
func NewCategories(c Client) *Categories {
	return &Categories{r: resource[types.Category, types.CategoryDraft]{client: c, path: "categories", single: "category"}}
}

// List returns every category.
func (s *Categories) List(ctx context.Context) ([]types.Category, error) {
	return s.r.list(ctx, nil)
}

// ListByDepartment returns the categories filed under departmentID.
func (s *Categories) ListByDepartment(ctx context.Context, departmentID types.ID) ([]types.Category, error) {
	return s.r.list(ctx, url.Values{"department_id": {departmentID.String()}})
}

// Get returns one category.
func (s *Categories) Get(ctx context.Context, id types.ID) (types.Category, error) {
	return s.r.get(ctx, id)
}

// Create submits a new category and returns the stored record.
func (s *Categories) Create(ctx context.Context, d types.CategoryDraft) (types.Category, error) {
	return s.r.create(ctx, d)
}

// Update replaces the category with id and returns the stored record.
func (s *Categories) Update(ctx context.Context, id types.ID, d types.CategoryDraft) (types.Category, error) {
	return s.r.update(ctx, id, d)
}

// Delete removes the category with id.
func (s *Categories) Delete(ctx context.Context, id types.ID) error {
	return s.r.delete(ctx, id)
}

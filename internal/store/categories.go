package store

import (
	"context"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// CategoryService is what CategoryStore needs from the service layer.
type CategoryService interface {
	Backend[types.Category, types.CategoryDraft]
	List(ctx context.Context) ([]types.Category, error)
	ListByDepartment(ctx context.Context, departmentID types.ID) ([]types.Category, error)
}

// CategoryLookup resolves a category by ID from an already fetched
// collection.
type CategoryLookup interface {
	Find(id types.ID) (types.Category, bool)
}

// CategoryStore holds the category collection and form. Departments, when
// set, resolves the department a category belongs to; the store never
// fetches departments itself.
type CategoryStore struct {
	*Collection[types.Category, types.CategoryDraft]
	svc         CategoryService
	departments DepartmentLookup
}

// NewCategoryStore returns an empty category store. departments may be nil.
func NewCategoryStore(svc CategoryService, departments DepartmentLookup, opts Options) *CategoryStore {
	return &CategoryStore{
		Collection: newCollection(collectionConfig[types.Category, types.CategoryDraft]{
			backend:  svc,
			empty:    func() types.CategoryDraft { return types.CategoryDraft{} },
			set:      (*types.CategoryDraft).Set,
			fromItem: types.DraftFromCategory,
			names:    naming{title: "Category", single: "category", plural: "categories"},
		}, opts),
		svc:         svc,
		departments: departments,
	}
}

// FetchAll replaces the collection with every category.
func (s *CategoryStore) FetchAll(ctx context.Context) error {
	return s.fetch(ctx, s.svc.List)
}

// FetchByDepartment replaces the collection with the categories of one
// department.
func (s *CategoryStore) FetchByDepartment(ctx context.Context, departmentID types.ID) error {
	return s.fetch(ctx, func(ctx context.Context) ([]types.Category, error) {
		return s.svc.ListByDepartment(ctx, departmentID)
	})
}

// ForDepartment returns the loaded categories of one department, in
// collection order.
func (s *CategoryStore) ForDepartment(departmentID types.ID) []types.Category {
	var out []types.Category
	for _, c := range s.Items() {
		if c.DepartmentID == departmentID {
			out = append(out, c)
		}
	}
	return out
}

// Department resolves the department of c. It reports false when no lookup
// is configured or the department is not loaded.
func (s *CategoryStore) Department(c types.Category) (types.Department, bool) {
	if s.departments == nil {
		return types.Department{}, false
	}
	return s.departments.Find(c.DepartmentID)
}

// Parent resolves the parent category of c among the loaded categories.
func (s *CategoryStore) Parent(c types.Category) (types.Category, bool) {
	if c.ParentID.IsZero() {
		return types.Category{}, false
	}
	return s.Find(c.ParentID)
}

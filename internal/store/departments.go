package store

import (
	"context"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// DepartmentService is what DepartmentStore needs from the service layer.
type DepartmentService interface {
	Backend[types.Department, types.DepartmentDraft]
	List(ctx context.Context) ([]types.Department, error)
}

// DepartmentLookup resolves a department by ID from an already fetched
// collection.
type DepartmentLookup interface {
	Find(id types.ID) (types.Department, bool)
}

// DepartmentStore holds the department collection and form.
type DepartmentStore struct {
	*Collection[types.Department, types.DepartmentDraft]
	svc DepartmentService
}

// NewDepartmentStore returns an empty department store.
func NewDepartmentStore(svc DepartmentService, opts Options) *DepartmentStore {
	return &DepartmentStore{
		Collection: newCollection(collectionConfig[types.Department, types.DepartmentDraft]{
			backend:  svc,
			empty:    func() types.DepartmentDraft { return types.DepartmentDraft{} },
			set:      (*types.DepartmentDraft).Set,
			fromItem: types.DraftFromDepartment,
			names:    naming{title: "Department", single: "department", plural: "departments"},
		}, opts),
		svc: svc,
	}
}

// FetchAll replaces the collection with every department.
func (s *DepartmentStore) FetchAll(ctx context.Context) error {
	return s.fetch(ctx, s.svc.List)
}

package service

import (
	"context"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Departments talks to /departments. The service answers with bare JSON for
// this resource; an envelope is accepted too.
type Departments struct {
	r resource[types.Department, types.DepartmentDraft]
}

// NewDepartments returns the department service.
func NewDepartments(c Client) *Departments {
	return &Departments{r: resource[types.Department, types.DepartmentDraft]{client: c, path: "departments", single: "department"}}
}

// List returns every department.
func (s *Departments) List(ctx context.Context) ([]types.Department, error) {
	return s.r.list(ctx, nil)
}

// Get returns one department.
func (s *Departments) Get(ctx context.Context, id types.ID) (types.Department, error) {
	return s.r.get(ctx, id)
}

// Create submits a new department and returns the stored record.
func (s *Departments) Create(ctx context.Context, d types.DepartmentDraft) (types.Department, error) {
	return s.r.create(ctx, d)
}

// Update replaces the department with id and returns the stored record.
func (s *Departments) Update(ctx context.Context, id types.ID, d types.DepartmentDraft) (types.Department, error) {
	return s.r.update(ctx, id, d)
}

// Delete removes the department with id.
func (s *Departments) Delete(ctx context.Context, id types.ID) error {
	return s.r.delete(ctx, id)
}

package store_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalog/internal/store"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

func TestDepartmentStore_CreateElectronics(t *testing.T) {
	f := newFixture(t)
	s := f.departments
	ctx := context.Background()

	require.NoError(t, s.SetFormField("name", "Electronics"))
	require.NoError(t, s.SetFormField("slug", "electronics"))
	before := len(s.Items())

	require.NoError(t, s.Create(ctx))

	items := s.Items()
	require.Len(t, items, before+1)
	assert.Equal(t, "Electronics", items[0].Name)
	assert.False(t, items[0].ID.IsZero(), "server-assigned ID populates the local copy")
	assert.Equal(t, types.DepartmentDraft{}, s.Draft())
	assert.False(t, s.Loading())
	assert.Equal(t, store.Notice{Level: store.LevelSuccess, Message: "Department created successfully"}, f.notices.last())
	assert.Equal(t, 1, f.srv.Primes(), "token primed once, with no error surfaced")
	assert.Empty(t, f.notices.errors())
}

func TestDepartmentStore_CreateFailureKeepsDraft(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{name: "server message surfaces verbatim", message: "The slug has already been taken.", want: "The slug has already been taken."},
		{name: "generic fallback", message: "", want: "Failed to create department"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := f.departments
			f.srv.FailNext(http.MethodPost, "/departments", http.StatusUnprocessableEntity, tt.message)

			s.UpdateForm(func(d *types.DepartmentDraft) { d.Name, d.Slug = "Toys", "toys" })
			err := s.Create(context.Background())
			require.Error(t, err)

			assert.Empty(t, s.Items())
			assert.Equal(t, types.DepartmentDraft{Name: "Toys", Slug: "toys"}, s.Draft())
			assert.Equal(t, store.Notice{Level: store.LevelError, Message: tt.want}, f.notices.last())
			assert.False(t, s.Loading())
			assert.Equal(t, err, s.Snapshot().Err)
		})
	}
}

func TestDepartmentStore_FetchAll(t *testing.T) {
	f := newFixture(t)
	f.srv.AddDepartment(types.Department{Name: "Books", Slug: "books"})
	f.srv.AddDepartment(types.Department{Name: "Music", Slug: "music"})

	require.NoError(t, f.departments.FetchAll(context.Background()))
	items := f.departments.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Books", items[0].Name, "insertion order is kept")
	assert.Equal(t, "Music", items[1].Name)
	assert.Nil(t, f.departments.Snapshot().Err)
}

func TestDepartmentStore_FailedUpdateLeavesEntryIdentical(t *testing.T) {
	f := newFixture(t)
	s := f.departments
	ctx := context.Background()
	d := f.srv.AddDepartment(types.Department{Name: "Books", Slug: "books"})
	require.NoError(t, s.FetchAll(ctx))
	before := s.Items()

	require.True(t, s.Edit(d.ID))
	require.NoError(t, s.SetFormField("name", "Printed Books"))
	f.srv.FailNext(http.MethodPut, "/departments/"+d.ID.String(), http.StatusInternalServerError, "")

	err := s.Update(ctx, d.ID)
	require.Error(t, err)
	assert.Equal(t, before, s.Items())
	assert.Equal(t, "Failed to update department", f.notices.last().Message)
	assert.Equal(t, "Printed Books", s.Draft().Name, "draft is kept for a retry")
}

func TestDepartmentStore_UpdateReplacesWithServerCopy(t *testing.T) {
	f := newFixture(t)
	s := f.departments
	ctx := context.Background()
	books := f.srv.AddDepartment(types.Department{Name: "Books", Slug: "books"})
	music := f.srv.AddDepartment(types.Department{Name: "Music", Slug: "music"})
	require.NoError(t, s.FetchAll(ctx))

	require.True(t, s.Edit(books.ID))
	assert.Equal(t, types.DepartmentDraft{Name: "Books", Slug: "books"}, s.Draft())
	require.NoError(t, s.SetFormField("name", "Literature"))
	require.NoError(t, s.Update(ctx, books.ID))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, books.ID, items[0].ID)
	assert.Equal(t, "Literature", items[0].Name)
	assert.Equal(t, music, items[1])
	assert.Equal(t, types.DepartmentDraft{}, s.Draft())
	assert.Equal(t, "Department updated successfully", f.notices.last().Message)
}

func TestDepartmentStore_UpdateOfUnloadedIDIsLocalNoop(t *testing.T) {
	f := newFixture(t)
	s := f.departments
	d := f.srv.AddDepartment(types.Department{Name: "Books", Slug: "books"})

	s.UpdateForm(func(dr *types.DepartmentDraft) { dr.Name, dr.Slug = "Literature", "literature" })
	require.NoError(t, s.Update(context.Background(), d.ID))

	assert.Empty(t, s.Items())
	assert.Equal(t, 1, f.srv.CountRequests(http.MethodPut, "/departments/"+d.ID.String()))
	assert.Equal(t, "Literature", f.srv.Departments()[0].Name)
}

func TestDepartmentStore_DeleteAfterConfirm(t *testing.T) {
	f := newFixture(t)
	s := f.departments
	ctx := context.Background()
	d := f.srv.AddDepartment(types.Department{Name: "Books", Slug: "books"})
	require.NoError(t, s.FetchAll(ctx))

	// Prime first so the held request is the delete itself.
	require.NoError(t, f.auth.PrimeCSRF(ctx))
	gate := f.srv.Hold(http.MethodDelete, "/departments/"+d.ID.String())

	done := make(chan error, 1)
	go func() { done <- s.Delete(ctx, d.ID) }()

	select {
	case <-gate.Entered():
	case <-time.After(5 * time.Second):
		t.Fatal("delete request never reached the service")
	}
	_, present := s.Find(d.ID)
	assert.True(t, present, "entry must stay while the delete is in flight")
	assert.True(t, s.Loading())

	gate.Release()
	require.NoError(t, <-done)

	_, present = s.Find(d.ID)
	assert.False(t, present)
	assert.False(t, s.Loading())
	assert.Equal(t, "Department deleted successfully", f.notices.last().Message)
}

func TestDepartmentStore_DeleteFailure(t *testing.T) {
	f := newFixture(t)
	s := f.departments
	ctx := context.Background()
	d := f.srv.AddDepartment(types.Department{Name: "Books", Slug: "books"})
	require.NoError(t, s.FetchAll(ctx))
	f.srv.FailNext(http.MethodDelete, "/departments/"+d.ID.String(), http.StatusConflict, "Department still has categories.")

	err := s.Delete(ctx, d.ID)
	require.Error(t, err)
	assert.Len(t, s.Items(), 1)
	assert.Equal(t, store.Notice{Level: store.LevelError, Message: "Department still has categories."}, f.notices.last())
}

func TestDepartmentStore_Subscribe(t *testing.T) {
	f := newFixture(t)
	s := f.departments
	f.srv.AddDepartment(types.Department{Name: "Books", Slug: "books"})

	var seen []store.Snapshot[types.Department, types.DepartmentDraft]
	unsubscribe := s.Subscribe(func(snap store.Snapshot[types.Department, types.DepartmentDraft]) {
		seen = append(seen, snap)
	})

	require.NoError(t, s.FetchAll(context.Background()))
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.Empty(t, seen[0].Items)
	assert.False(t, seen[1].Loading)
	assert.Len(t, seen[1].Items, 1)

	// Snapshots are copies.
	seen[1].Items[0].Name = "mutated"
	assert.Equal(t, "Books", s.Items()[0].Name)

	unsubscribe()
	unsubscribe()
	s.ResetForm()
	assert.Len(t, seen, 2)
}

func TestDepartmentStore_SetFormField(t *testing.T) {
	f := newFixture(t)
	s := f.departments

	err := s.SetFormField("colour", "red")
	assert.True(t, errors.Is(err, types.ErrUnknownField))
	assert.Equal(t, types.DepartmentDraft{}, s.Draft())

	require.NoError(t, s.SetFormField("name", 42))
	assert.Equal(t, "42", s.Draft().Name)

	assert.False(t, s.Edit("404"))
	assert.Equal(t, "42", s.Draft().Name)

	s.EditFrom(types.Department{ID: "3", Name: "Garden", Slug: "garden"})
	assert.Equal(t, types.DepartmentDraft{Name: "Garden", Slug: "garden"}, s.Draft())
	s.ResetForm()
	assert.Equal(t, types.DepartmentDraft{}, s.Draft())
}

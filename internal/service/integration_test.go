package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/catalog/internal/apitest"
	"github.com/mesh-intelligence/catalog/internal/logging"
	"github.com/mesh-intelligence/catalog/internal/service"
	"github.com/mesh-intelligence/catalog/internal/transport"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

func newTransport(t *testing.T, srv *apitest.Server) *transport.Client {
	t.Helper()
	c, err := transport.New(transport.Config{
		BaseURL: srv.BaseURL(),
		Log:     logging.Component(logging.Discard(), "transport"),
	})
	require.NoError(t, err)
	return c
}

func TestServicesAgainstFakeService(t *testing.T) {
	srv := apitest.New(t)
	c := newTransport(t, srv)
	ctx := context.Background()

	departments := service.NewDepartments(c)
	categories := service.NewCategories(c)
	products := service.NewProducts(c)

	electronics, err := departments.Create(ctx, types.DepartmentDraft{Name: "Electronics", Slug: "electronics"})
	require.NoError(t, err)
	garden, err := departments.Create(ctx, types.DepartmentDraft{Name: "Garden", Slug: "garden"})
	require.NoError(t, err)

	laptops, err := categories.Create(ctx, types.CategoryDraft{Name: "Laptops", DepartmentID: electronics.ID})
	require.NoError(t, err)
	assert.Equal(t, "laptops", laptops.Slug)
	_, err = categories.Create(ctx, types.CategoryDraft{Name: "Tools", DepartmentID: garden.ID})
	require.NoError(t, err)

	byDept, err := categories.ListByDepartment(ctx, electronics.ID)
	require.NoError(t, err)
	require.Len(t, byDept, 1)
	assert.Equal(t, laptops.ID, byDept[0].ID)

	draft := types.NewProductDraft()
	draft.Name, draft.Slug, draft.Price = "Ultrabook 13", "ultrabook-13", 999
	draft.DepartmentID, draft.CategoryID = electronics.ID, laptops.ID
	book, err := products.Create(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, types.ProductStatusActive, book.Status)

	cheap := 100.0
	none, err := products.List(ctx, types.ProductFilter{MaxPrice: &cheap})
	require.NoError(t, err)
	assert.Empty(t, none)

	found, err := products.List(ctx, types.ProductFilter{Search: "ultra"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	draft.Price = 899
	updated, err := products.Update(ctx, book.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, 899.0, updated.Price)
	assert.Equal(t, "ultrabook-13", updated.Slug)

	require.NoError(t, products.Delete(ctx, book.ID))
	_, err = products.Get(ctx, book.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = products.Delete(ctx, book.ID)
	assert.ErrorIs(t, err, types.ErrNotFound, "second delete is a normal error")
}

func TestAuthAgainstFakeService(t *testing.T) {
	srv := apitest.New(t)
	c := newTransport(t, srv)
	auth := service.NewAuth(c, c)
	ctx := context.Background()

	_, err := auth.CurrentUser(ctx)
	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.NoError(t, auth.PrimeCSRF(ctx))
	resp, err := auth.Register(ctx, types.Credentials{Name: "Ada", Email: "ada@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)

	me, err := auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.User, me)

	_, err = auth.Login(ctx, types.Credentials{Email: "ada@example.com", Password: "wrong"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "These credentials do not match our records.", apiErr.Message)
}

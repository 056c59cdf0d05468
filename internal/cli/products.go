package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/app"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

var productFields = []formFlag{
	{name: "name", key: "name", usage: "product name; the slug is derived from it on create"},
	{name: "description", key: "description", usage: "product description"},
	{name: "price", key: "price", usage: "unit price"},
	{name: "status", key: "status", usage: "active, inactive, out_of_stock, discontinued or published"},
	{name: "department", key: "department_id", usage: "ID of the department"},
	{name: "category", key: "category_id", usage: "ID of the category"},
	{name: "quantity", key: "quantity", usage: "stock quantity; empty clears it"},
}

func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product", "prod"},
		Short:   "List and manage products",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List products matching the given filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := productFilter(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Departments.FetchAll(ctx); err != nil {
					return failed(err)
				}
				if err := a.Categories.FetchAll(ctx); err != nil {
					return failed(err)
				}
				if err := a.Products.FetchFiltered(ctx, filter); err != nil {
					return failed(err)
				}
				return printProducts(cmd.OutOrStdout(), productViews(a, a.Products.Items()))
			})
		},
	}
	lf := list.Flags()
	lf.String("department", "", "only products of this department ID")
	lf.String("category", "", "only products of this category ID")
	lf.String("status", "", "only products with this status")
	lf.Float64("min-price", 0, "lowest price")
	lf.Float64("max-price", 0, "highest price")
	lf.String("search", "", "text to search for")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := a.Products
				if err := applyFormFlags(cmd, productFields, s.SetFormField); err != nil {
					return err
				}
				if err := checkDraft(s.Draft()); err != nil {
					return err
				}
				// Stamps created_by and updated_by when signed in.
				a.Auth.FetchUser(ctx)
				created, err := s.CreateEntity(ctx)
				if err != nil {
					return failed(err)
				}
				return printProducts(cmd.OutOrStdout(), productViews(a, []types.Product{created}))
			})
		},
	}
	addFormFlags(create, productFields)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := a.Products
				if err := s.FetchAll(ctx); err != nil {
					return failed(err)
				}
				if !s.Edit(id) {
					return userError(fmt.Errorf("product %s: %w", id, types.ErrNotFound))
				}
				if err := applyFormFlags(cmd, productFields, s.SetFormField); err != nil {
					return err
				}
				if err := checkDraft(s.Draft()); err != nil {
					return err
				}
				a.Auth.FetchUser(ctx)
				if err := s.Update(ctx, id); err != nil {
					return failed(err)
				}
				p, _ := s.Find(id)
				return printProducts(cmd.OutOrStdout(), productViews(a, []types.Product{p}))
			})
		},
	}
	addFormFlags(update, productFields)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			if !deleteConfirmed(cmd, "product", id) {
				return userError(errNotConfirmed)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Products.Delete(ctx, id); err != nil {
					return failed(err)
				}
				return nil
			})
		},
	}
	del.Flags().BoolP("yes", "y", false, "delete without asking")

	cmd.AddCommand(list, create, update, del)
	return cmd
}

// productFilter reads the list filter flags. Flags left out are not sent.
func productFilter(cmd *cobra.Command) (types.ProductFilter, error) {
	fs := cmd.Flags()
	var f types.ProductFilter
	for flag, dst := range map[string]*types.ID{"department": &f.DepartmentID, "category": &f.CategoryID} {
		raw, _ := fs.GetString(flag)
		if raw == "" {
			continue
		}
		id, err := parseIDArg(raw)
		if err != nil {
			return f, err
		}
		*dst = id
	}
	f.Status, _ = fs.GetString("status")
	f.Search, _ = fs.GetString("search")
	if fs.Changed("min-price") {
		v, _ := fs.GetFloat64("min-price")
		f.MinPrice = &v
	}
	if fs.Changed("max-price") {
		v, _ := fs.GetFloat64("max-price")
		f.MaxPrice = &v
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, userError(fmt.Errorf("--min-price %v is above --max-price %v", *f.MinPrice, *f.MaxPrice))
	}
	return f, nil
}

func productViews(a *app.App, ps []types.Product) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		v := productView{Product: p}
		if d, ok := a.Products.Department(p); ok {
			v.Department = d.Name
		}
		if c, ok := a.Products.Category(p); ok {
			v.Category = c.Name
		}
		out = append(out, v)
	}
	return out
}

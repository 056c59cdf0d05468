package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/app"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

var categoryFields = []formFlag{
	{name: "name", key: "name", usage: "category name"},
	{name: "slug", key: "slug", usage: "URL slug (default: derived from the name)"},
	{name: "department", key: "department_id", usage: "ID of the owning department"},
	{name: "parent", key: "parent_id", usage: "ID of the parent category"},
}

func newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "List and manage categories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories, optionally of one department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var department types.ID
			if raw, _ := cmd.Flags().GetString("department"); raw != "" {
				id, err := parseIDArg(raw)
				if err != nil {
					return err
				}
				department = id
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Departments.FetchAll(ctx); err != nil {
					return failed(err)
				}
				var err error
				if department.IsZero() {
					err = a.Categories.FetchAll(ctx)
				} else {
					err = a.Categories.FetchByDepartment(ctx, department)
				}
				if err != nil {
					return failed(err)
				}
				return printCategories(cmd.OutOrStdout(), categoryViews(a, a.Categories.Items()))
			})
		},
	}
	list.Flags().String("department", "", "only categories of this department ID")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := a.Categories
				if err := applyFormFlags(cmd, categoryFields, s.SetFormField); err != nil {
					return err
				}
				s.UpdateForm(func(d *types.CategoryDraft) {
					if d.Slug == "" {
						d.Slug = types.Slugify(d.Name)
					}
				})
				if err := checkDraft(s.Draft()); err != nil {
					return err
				}
				created, err := s.CreateEntity(ctx)
				if err != nil {
					return failed(err)
				}
				return printCategories(cmd.OutOrStdout(), categoryViews(a, []types.Category{created}))
			})
		},
	}
	addFormFlags(create, categoryFields)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := a.Categories
				if err := s.FetchAll(ctx); err != nil {
					return failed(err)
				}
				if !s.Edit(id) {
					return userError(fmt.Errorf("category %s: %w", id, types.ErrNotFound))
				}
				if err := applyFormFlags(cmd, categoryFields, s.SetFormField); err != nil {
					return err
				}
				if err := checkDraft(s.Draft()); err != nil {
					return err
				}
				if err := s.Update(ctx, id); err != nil {
					return failed(err)
				}
				c, _ := s.Find(id)
				return printCategories(cmd.OutOrStdout(), categoryViews(a, []types.Category{c}))
			})
		},
	}
	addFormFlags(update, categoryFields)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			if !deleteConfirmed(cmd, "category", id) {
				return userError(errNotConfirmed)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Categories.Delete(ctx, id); err != nil {
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

func categoryViews(a *app.App, cs []types.Category) []categoryView {
	out := make([]categoryView, 0, len(cs))
	for _, c := range cs {
		v := categoryView{Category: c}
		if d, ok := a.Categories.Department(c); ok {
			v.Department = d.Name
		}
		out = append(out, v)
	}
	return out
}

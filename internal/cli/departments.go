package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/app"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

var departmentFields = []formFlag{
	{name: "name", key: "name", usage: "department name"},
	{name: "slug", key: "slug", usage: "URL slug (default: derived from the name)"},
}

func newDepartmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "departments",
		Aliases: []string{"department", "dept"},
		Short:   "List and manage departments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List departments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Departments.FetchAll(ctx); err != nil {
					return failed(err)
				}
				return printDepartments(cmd.OutOrStdout(), a.Departments.Items())
			})
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := a.Departments
				if err := applyFormFlags(cmd, departmentFields, s.SetFormField); err != nil {
					return err
				}
				s.UpdateForm(func(d *types.DepartmentDraft) {
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
				return printDepartments(cmd.OutOrStdout(), []types.Department{created})
			})
		},
	}
	addFormFlags(create, departmentFields)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := a.Departments
				if err := s.FetchAll(ctx); err != nil {
					return failed(err)
				}
				if !s.Edit(id) {
					return userError(fmt.Errorf("department %s: %w", id, types.ErrNotFound))
				}
				if err := applyFormFlags(cmd, departmentFields, s.SetFormField); err != nil {
					return err
				}
				if err := checkDraft(s.Draft()); err != nil {
					return err
				}
				if err := s.Update(ctx, id); err != nil {
					return failed(err)
				}
				d, _ := s.Find(id)
				return printDepartments(cmd.OutOrStdout(), []types.Department{d})
			})
		},
	}
	addFormFlags(update, departmentFields)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a department",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			if !deleteConfirmed(cmd, "department", id) {
				return userError(errNotConfirmed)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Departments.Delete(ctx, id); err != nil {
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

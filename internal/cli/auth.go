package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/app"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

var errNotSignedIn = errors.New("not signed in")

func newCSRFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csrf",
		Short: "Fetch a CSRF token ahead of the first change",
		Long: "Fetch a fresh CSRF token from the service and keep it with the session.\n" +
			"With --clear, forget the stored session and token instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			forget, _ := cmd.Flags().GetBool("clear")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if forget {
					if err := a.ClearCookies(); err != nil {
						return sysError(fmt.Errorf("clear cookies: %w", err))
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
					return nil
				}
				if err := a.Auth.PrimeCSRF(ctx); err != nil {
					return sysError(fmt.Errorf("prime CSRF token: %w", err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "CSRF token ready")
				return nil
			})
		},
	}
	cmd.Flags().Bool("clear", false, "forget the stored session and token")
	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				a.Auth.FetchUser(ctx)
				st := a.Auth.State()
				if st.Err != nil && errors.Is(st.Err, types.ErrTransport) {
					return sysError(st.Err)
				}
				if !st.Authenticated() {
					return userError(errNotSignedIn)
				}
				return printUser(cmd.OutOrStdout(), st.User)
			})
		},
	}
}

// credentialField is one input of the sign-in and registration forms.
type credentialField struct {
	key   string
	label string
}

var (
	loginFields = []credentialField{
		{key: "email", label: "Email"},
		{key: "password", label: "Password"},
	}
	registerFields = []credentialField{
		{key: "name", label: "Name"},
		{key: "email", label: "Email"},
		{key: "password", label: "Password"},
	}
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, loginFields, func(ctx context.Context, a *app.App) error {
				return a.Auth.Login(ctx)
			})
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, registerFields, func(ctx context.Context, a *app.App) error {
				return a.Auth.Register(ctx)
			})
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	return cmd
}

// authenticate fills the auth form from the command's flags, checks that
// every field is filled in, and submits with submit.
func authenticate(cmd *cobra.Command, fields []credentialField, submit func(context.Context, *app.App) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		for _, f := range fields {
			value, _ := cmd.Flags().GetString(f.key)
			if err := a.Auth.SetFormField(f.key, value); err != nil {
				return sysError(err)
			}
		}
		missing := false
		for _, f := range fields {
			if !a.Auth.CheckRequired(f.key, f.label) {
				missing = true
			}
		}
		if missing {
			return userError(errors.New(fieldErrors(a.Auth.State().FieldErrors)))
		}

		if err := submit(ctx, a); err != nil {
			return failed(err)
		}
		return printUser(cmd.OutOrStdout(), a.Auth.User())
	})
}

func fieldErrors(m map[string]string) string {
	msgs := make([]string, 0, len(m))
	for _, msg := range m {
		if msg != "" {
			msgs = append(msgs, msg)
		}
	}
	sort.Strings(msgs)
	return strings.Join(msgs, " ")
}

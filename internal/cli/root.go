// Package cli implements the catalog command-line interface: a thin layer
// that turns flags into store form fields, runs one store operation, and
// prints the result.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/paths"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	baseURL   string
	jsonMode  bool
	logLevel  string
	metrics   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "catalog" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}

	root := &cobra.Command{
		Use:   "catalog",
		Short: "Manage a product catalog through its REST service",
		Long: "Catalog manages departments, categories and products on a catalog\n" +
			"service, keeping the session and CSRF token between runs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory for cookies and logs (env "+paths.EnvDataDir+")")
	pf.StringVar(&flags.baseURL, "base-url", "", "API base URL (default "+types.DefaultBaseURL+")")
	pf.BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&flags.metrics, "metrics", false, "print client metrics to stderr on exit")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newCSRFCmd())
	root.AddCommand(newWhoamiCmd())
	root.AddCommand(newLoginCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newDepartmentsCmd())
	root.AddCommand(newCategoriesCmd())
	root.AddCommand(newProductsCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if !ee.reported {
			fmt.Fprintln(stderr, "Error:", ee.err)
		}
		return ee.code
	}
	// Flag and argument errors from cobra.
	fmt.Fprintln(stderr, "Error:", err)
	return exitUserError
}

// exitError carries the process exit code for a failed command. A reported
// error has already been shown to the user as a notice.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

func sysError(err error) error {
	return &exitError{code: exitSysError, err: err}
}

// failed wraps an error returned by a store operation, whose notice the
// user has already seen. Failures to reach the service are system errors;
// anything the service answered is the user's.
func failed(err error) error {
	code := exitUserError
	if errors.Is(err, types.ErrTransport) || errors.Is(err, context.DeadlineExceeded) {
		code = exitSysError
	}
	return &exitError{code: code, err: err, reported: true}
}

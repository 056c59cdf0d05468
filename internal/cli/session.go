package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/app"
	"github.com/mesh-intelligence/catalog/internal/store"
)

// withApp builds an App from the resolved configuration, runs fn, and
// closes the App. Store notices go to stderr; success notices are left
// out in JSON mode.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, _, err := resolveConfig()
	if err != nil {
		return sysError(err)
	}
	if err := cfg.Validate(); err != nil {
		return userError(fmt.Errorf("invalid config: %w", err))
	}

	stderr := cmd.ErrOrStderr()
	a, err := app.New(cfg, app.WithNotifier(noticePrinter(stderr, flags.jsonMode)))
	if err != nil {
		return sysError(err)
	}
	defer a.Close()

	runErr := fn(cmd.Context(), a)

	if flags.metrics {
		if err := a.Metrics.WriteText(stderr); err != nil {
			a.Log.WithError(err).Warn("write metrics")
		}
	}
	return runErr
}

func noticePrinter(w io.Writer, quiet bool) store.Notifier {
	return store.NotifierFunc(func(n store.Notice) {
		switch {
		case n.Level == store.LevelError:
			fmt.Fprintln(w, "Error:", n.Message)
		case !quiet:
			fmt.Fprintln(w, n.Message)
		}
	})
}

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/catalog/internal/logging"
	"github.com/mesh-intelligence/catalog/internal/paths"
	"github.com/mesh-intelligence/catalog/internal/sqlite"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize catalog configuration and storage",
		Long: "Create the configuration and data directories, write a default\n" +
			"config.yaml if none exists, and create the cookie database.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, configDir, err := resolveConfig()
	if err != nil {
		return sysError(err)
	}
	if err := cfg.Validate(); err != nil {
		return userError(fmt.Errorf("invalid config: %w", err))
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}
	configPath := paths.ConfigFile(configDir)
	written, err := writeConfigIfMissing(configPath, cfg)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create data directory: %w", err))
	}
	if cfg.CookieStore == types.CookieStoreSQLite {
		jar, err := sqlite.OpenCookieJar(cfg.DataDir, logging.Component(logging.Discard(), "cookies"))
		if err != nil {
			return sysError(fmt.Errorf("initialize cookie store: %w", err))
		}
		if err := jar.Close(); err != nil {
			return sysError(fmt.Errorf("finalize cookie store: %w", err))
		}
	}

	if flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"config_file":    configPath,
			"config_written": written,
			"data_dir":       cfg.DataDir,
		})
	}
	out := cmd.OutOrStdout()
	if written {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	}
	fmt.Fprintf(out, "Catalog initialized (data: %s)\n", cfg.DataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. It reports whether it wrote the file.
func writeConfigIfMissing(path string, cfg types.Config) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# Catalog CLI configuration. CATALOG_* environment variables and\n# command-line flags take precedence.\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}

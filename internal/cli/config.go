package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/catalog/internal/paths"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "CATALOG"
	dotEnvFile     = ".env"
)

// loadConfig reads config.yaml from configDir using Viper, layered over
// the built-in defaults and under CATALOG_* environment variables. A
// .env file in configDir, then in the working directory, is loaded into
// the environment first without overriding variables already set. A
// missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	for _, path := range []string{filepath.Join(configDir, dotEnvFile), dotEnvFile} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	v := viper.New()
	setDefaults(v, types.DefaultConfig())
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// setDefaults registers every key so AutomaticEnv can see it during
// Unmarshal.
func setDefaults(v *viper.Viper, c types.Config) {
	v.SetDefault("base_url", c.BaseURL)
	v.SetDefault("csrf_url", c.CSRFURL)
	v.SetDefault("timeout", c.Timeout)
	v.SetDefault("requests_per_second", c.RequestsPerSecond)
	v.SetDefault("burst", c.Burst)
	v.SetDefault("cookie_store", c.CookieStore)
	v.SetDefault("data_dir", c.DataDir)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.output", c.Log.Output)
	v.SetDefault("log.file", c.Log.File)
	v.SetDefault("log.max_size", c.Log.MaxSize)
	v.SetDefault("log.max_backups", c.Log.MaxBackups)
	v.SetDefault("log.max_age", c.Log.MaxAge)
	v.SetDefault("log.compress", c.Log.Compress)
}

// resolveConfig builds the effective Config: defaults, then config.yaml,
// then the environment, then global flags.
func resolveConfig() (types.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, "", err
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, "", fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir, err = paths.ResolveDataDir(flags.dataDir, cfg.DataDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve data dir: %w", err)
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, configDir, nil
}

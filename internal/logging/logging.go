// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Output destinations.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
	OutputBoth   = "both"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// DefaultFileName is used when file output is selected without a path.
const DefaultFileName = "catalog.log"

// New returns a logger configured by cfg. dataDir is where a relative log
// file path is placed.
func New(cfg types.LogConfig, dataDir string) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}

	var writers []io.Writer
	output := strings.ToLower(cfg.Output)
	if output == "" {
		output = OutputStderr
	}
	switch output {
	case OutputStderr:
		writers = append(writers, os.Stderr)
	case OutputFile, OutputBoth:
		writers = append(writers, fileWriter(cfg, dataDir))
		if output == OutputBoth {
			writers = append(writers, os.Stderr)
		}
	default:
		return nil, fmt.Errorf("unknown log output %q", cfg.Output)
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger, nil
}

// Discard returns a logger that drops everything. Tests and library callers
// that do not care about logs use it.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Component returns an entry tagged with the component name.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithField("component", name)
}

func fileWriter(cfg types.LogConfig, dataDir string) *lumberjack.Logger {
	path := cfg.File
	if path == "" {
		path = DefaultFileName
	}
	if !filepath.IsAbs(path) && dataDir != "" {
		path = filepath.Join(dataDir, path)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

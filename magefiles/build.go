//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the catalog project using Mage.
//
// Usage:
//
//	mage build             Compile the catalog binary to bin/
//	mage test:all          Run all tests
//	mage test:unit         Run tests that need no end-to-end wiring
//	mage test:integration  Run the CLI and composition-root tests
//	mage test:cover        Write a coverage profile to bin/
//	mage lint              Run golangci-lint
//	mage clean             Remove build artifacts
//	mage install           Install catalog to GOPATH/bin
//	mage stats             Print Go LOC as a JSON record
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "catalog"
	binaryDir  = "bin"
	cmdDir     = "./cmd/catalog"
	versionVar = "github.com/mesh-intelligence/catalog/internal/cli.Version"
)

// Build compiles the catalog binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := version(); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// version returns the release version from CATALOG_VERSION or the latest
// git tag, without a leading "v". Empty keeps the compiled-in default.
func version() string {
	v := os.Getenv("CATALOG_VERSION")
	if v == "" {
		v, _ = sh.Output("git", "describe", "--tags", "--abbrev=0")
	}
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

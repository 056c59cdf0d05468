//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, integration, cover).
type Test mg.Namespace

// integrationPkgs drive the whole stack against the fake service.
var integrationPkgs = []string{"/internal/cli", "/internal/app"}

// All runs every test with the race detector.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs the package tests, leaving out the integration packages.
func (Test) Unit() error {
	pkgs, err := packages(false)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	return sh.RunV(binGo, append([]string{"test", "-v"}, pkgs...)...)
}

// Integration runs the CLI and composition-root tests.
func (Test) Integration() error {
	pkgs, err := packages(true)
	if err != nil {
		return err
	}
	return sh.RunV(binGo, append([]string{"test", "-v"}, pkgs...)...)
}

// Cover writes a coverage profile to bin/coverage.out and prints the
// per-function summary.
func (Test) Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(binaryDir, "coverage.out")
	if err := sh.RunV(binGo, "test", "-coverprofile", profile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func", profile)
}

// packages lists module packages, selecting either the integration
// packages or everything else.
func packages(integration bool) ([]string, error) {
	out, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for pkg := range strings.SplitSeq(out, "\n") {
		if pkg == "" || strings.HasSuffix(pkg, "/magefiles") {
			continue
		}
		if isIntegration(pkg) == integration {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs, nil
}

func isIntegration(pkg string) bool {
	for _, suffix := range integrationPkgs {
		if strings.HasSuffix(pkg, suffix) {
			return true
		}
	}
	return false
}

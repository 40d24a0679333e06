// Package main provides build targets for the casefile project using Mage.
//
// Usage:
//
//	mage build           Compile the casefile binary to bin/
//	mage test            Run all tests (unit + integration)
//	mage testUnit        Run only unit tests (exclude integration)
//	mage testIntegration Run only integration tests (builds first)
//	mage lint            Run golangci-lint
//	mage clean           Remove build artifacts
//	mage install         Install casefile to GOPATH/bin

//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "casefile"
	binaryDir  = "bin"
	cmdDir     = "./cmd/casefile"
)

// Build compiles the casefile binary into bin/, stamping the version
// from git describe when available.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binaryDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := fmt.Sprintf("-X main.version=%s", version)
	return sh.RunV("go", "build", "-ldflags", ldflags,
		"-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs the full suite.
func Test() error {
	mg.Deps(TestUnit, TestIntegration)
	return nil
}

// TestUnit runs package tests, skipping the integration tree.
func TestUnit() error {
	return sh.RunV("go", "test", "./cmd/...", "./internal/...", "./pkg/...")
}

// TestIntegration builds first, then runs the end-to-end tests.
func TestIntegration() error {
	mg.Deps(Build)
	return sh.RunV("go", "test", "./tests/integration/...")
}

// Lint runs golangci-lint over the module.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}

// Install installs the casefile binary to GOPATH/bin.
func Install() error {
	return sh.RunV("go", "install", cmdDir)
}
